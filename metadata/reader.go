/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package metadata

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/containerd/go-squashfs/compression"
)

// Reader exposes a byte cursor over the metadata block stream. Seek
// positions the cursor at a Reference; Read then yields record bytes,
// transparently decompressing and chaining into the next block when a
// record was written across a block boundary by a foreign producer.
//
// A Reader is not safe for concurrent use. The underlying storage is
// read-only, so independent Readers over the same region may run in
// parallel, sharing one Codec.
type Reader struct {
	r     io.ReaderAt
	base  int64 // file offset of the metadata region
	size  int64 // region length, or -1 when unknown
	codec compression.Codec

	block []byte // current uncompressed block
	pos   int    // cursor within block
	next  int64  // region offset of the block after the current one
}

// NewReader returns a Reader over the metadata region starting at file
// offset base within r. size bounds the region; pass a negative size
// when the region extent is unknown and only I/O errors bound reads.
func NewReader(r io.ReaderAt, base, size int64, codec compression.Codec) *Reader {
	return &Reader{r: r, base: base, size: size, codec: codec}
}

// Seek positions the cursor at the record named by ref.
func (r *Reader) Seek(ref Reference) error {
	if err := r.load(int64(ref.Block)); err != nil {
		return err
	}
	if int(ref.Offset) >= len(r.block) {
		return fmt.Errorf("reference %s beyond block payload of %d bytes: %w",
			ref, len(r.block), ErrCorruptMetadata)
	}
	r.pos = int(ref.Offset)
	return nil
}

// Read fills p from the cursor, loading and decompressing successor
// blocks as the cursor crosses block boundaries. It returns io.EOF only
// at the end of the metadata region.
func (r *Reader) Read(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if r.pos >= len(r.block) {
			if err := r.load(r.next); err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
			r.pos = 0
		}
		n := copy(p, r.block[r.pos:])
		r.pos += n
		total += n
		p = p[n:]
	}
	return total, nil
}

// load reads and decompresses the block at the given region offset.
func (r *Reader) load(off int64) error {
	if off < 0 || (r.size >= 0 && off+headerSize > r.size) {
		if r.size >= 0 && off == r.size {
			return io.EOF
		}
		return fmt.Errorf("block offset %d outside metadata region of %d bytes: %w",
			off, r.size, ErrCorruptMetadata)
	}

	var hdr [headerSize]byte
	if _, err := r.r.ReadAt(hdr[:], r.base+off); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("reading block header at %d: %w", off, err)
	}
	stored := binary.LittleEndian.Uint16(hdr[:])
	length := int(stored &^ uncompressedFlag)
	raw := stored&uncompressedFlag != 0

	if length == 0 || length > BlockSize {
		return fmt.Errorf("stored block length %d at offset %d: %w", length, off, ErrCorruptMetadata)
	}
	if r.size >= 0 && off+headerSize+int64(length) > r.size {
		return fmt.Errorf("block at %d overruns metadata region of %d bytes: %w",
			off, r.size, ErrCorruptMetadata)
	}

	data := make([]byte, length)
	if _, err := r.r.ReadAt(data, r.base+off+headerSize); err != nil {
		return fmt.Errorf("reading block payload at %d: %w", off, err)
	}

	if raw {
		r.block = data
	} else {
		block, err := r.codec.Decompress(data, BlockSize)
		if err != nil {
			return fmt.Errorf("decompressing block at %d: %v: %w", off, err, ErrCorruptMetadata)
		}
		r.block = block
	}
	r.pos = 0
	r.next = off + headerSize + int64(length)
	return nil
}
