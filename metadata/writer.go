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

	"github.com/containerd/errdefs"
	"github.com/containerd/log"

	"github.com/containerd/go-squashfs/compression"
)

// Writer batches serialized records into compressed metadata blocks.
//
// A record never spans the flush boundary: if appending one would
// overflow the current block, the partial block is flushed first and
// the record starts at offset 0 of a fresh block. Every Reference
// returned therefore satisfies Offset+len(record) <= BlockSize.
//
// A Writer is single-threaded by design; image building is a
// single-pass pipeline with one active writer.
type Writer struct {
	w     io.Writer
	codec compression.Codec

	buf     []byte // current uncompressed block
	flushed uint64 // compressed bytes emitted, offset of the current block
	blocks  int
}

// NewWriter returns a Writer emitting compressed metadata blocks to w.
func NewWriter(w io.Writer, codec compression.Codec) *Writer {
	return &Writer{
		w:     w,
		codec: codec,
		buf:   make([]byte, 0, BlockSize),
	}
}

// Append adds one serialized record and returns the reference under
// which it will be addressable once the image is finalized. The
// reference is stable from the moment Append returns; callers must not
// mutate and re-serialize the record afterwards.
//
// A record larger than BlockSize cannot be represented and is rejected
// outright rather than split across blocks.
func (w *Writer) Append(record []byte) (Reference, error) {
	if len(record) > BlockSize {
		return Reference{}, fmt.Errorf("record size %d exceeds metadata block size %d: %w",
			len(record), BlockSize, errdefs.ErrInvalidArgument)
	}
	if len(w.buf)+len(record) > BlockSize {
		if err := w.Flush(); err != nil {
			return Reference{}, err
		}
	}
	ref := Reference{Block: w.flushed, Offset: uint16(len(w.buf))}
	w.buf = append(w.buf, record...)
	return ref, nil
}

// Flush compresses and emits the current block even if it is not full.
// It is a no-op when no bytes are buffered. Callers must Flush once
// after the last record so the final partial block reaches the output.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	payload, stored, err := w.encodeBlock(w.buf)
	if err != nil {
		return err
	}

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint16(hdr[:], stored)
	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}

	log.L.WithFields(log.Fields{
		"block":  w.flushed,
		"raw":    len(w.buf),
		"stored": len(payload),
	}).Debug("flushed metadata block")

	w.flushed += uint64(headerSize + len(payload))
	w.buf = w.buf[:0]
	w.blocks++
	return nil
}

func (w *Writer) encodeBlock(raw []byte) ([]byte, uint16, error) {
	compressed, err := w.codec.Compress(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("compressing metadata block at %d: %w", w.flushed, err)
	}
	if len(compressed) >= len(raw) {
		// Store raw, flagged in the length field.
		return raw, uint16(len(raw)) | uncompressedFlag, nil
	}
	return compressed, uint16(len(compressed)), nil
}

// Position returns the region offset at which the next flushed block
// will start, i.e. the number of compressed bytes emitted so far.
func (w *Writer) Position() uint64 {
	return w.flushed
}

// BlockCount returns the number of blocks flushed so far.
func (w *Writer) BlockCount() int {
	return w.blocks
}
