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

package inode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/containerd/go-squashfs/internal/binutils"
	"github.com/containerd/go-squashfs/metadata"
)

var le = binary.LittleEndian

// Read decodes one inode record from r: the fixed header first, then
// the extra fields of the variant named by the type tag.
func Read(r io.Reader, fc FormatContext) (INode, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated header: %w", ErrMalformedRecord)
		}
		return nil, err
	}

	ino, err := New(Type(le.Uint16(hdr[0:2])))
	if err != nil {
		return nil, err
	}

	b := ino.base()
	b.mode = le.Uint16(hdr[2:4])
	b.uidIndex = le.Uint16(hdr[4:6])
	b.gidIndex = le.Uint16(hdr[6:8])
	b.modTime = int32(le.Uint32(hdr[8:12]))
	b.number = le.Uint32(hdr[12:16])

	if err := ino.readExtra(r, fc); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated %s extra fields: %w", ino.Type(), ErrMalformedRecord)
		}
		return nil, err
	}
	return ino, nil
}

// Write serializes ino into the metadata writer and returns the
// reference addressing the record's first byte.
func Write(w *metadata.Writer, ino INode, fc FormatContext) (metadata.Reference, error) {
	record, err := Marshal(ino, fc)
	if err != nil {
		return metadata.Reference{}, err
	}
	return w.Append(record)
}

// Marshal returns the serialized record bytes: header then extra.
func Marshal(ino INode, fc FormatContext) ([]byte, error) {
	size := SerializedSize(ino, fc)
	buf := bytes.NewBuffer(make([]byte, 0, size))

	var hdr [HeaderSize]byte
	b := ino.base()
	le.PutUint16(hdr[0:2], uint16(ino.Type()))
	le.PutUint16(hdr[2:4], b.mode)
	le.PutUint16(hdr[4:6], b.uidIndex)
	le.PutUint16(hdr[6:8], b.gidIndex)
	le.PutUint32(hdr[8:12], uint32(b.modTime))
	le.PutUint32(hdr[12:16], b.number)
	buf.Write(hdr[:])

	if err := ino.writeExtra(buf); err != nil {
		return nil, err
	}
	if buf.Len() != size {
		return nil, fmt.Errorf("%s serialized to %d bytes, computed size %d: %w",
			ino.Type(), buf.Len(), size, ErrMalformedRecord)
	}
	return buf.Bytes(), nil
}

// SerializedSize returns the exact on-disk byte length of ino. For file
// variants it depends on the block-length entry count derived from the
// file size and the data block size supplied by fc.
func SerializedSize(ino INode, fc FormatContext) int {
	return HeaderSize + ino.extraSize(fc)
}

// Dump renders every field of ino as fixed-width labeled lines for
// diagnostics. Output is deterministic for identical input. A width of
// zero or less selects the variant's preferred label width.
func Dump(ino INode, width int) string {
	if width <= 0 {
		width = ino.dumpWidth()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s {\n", ino.Type())
	binutils.DumpOctal(&b, width, "mode", uint64(ino.Mode()))
	binutils.DumpUint(&b, width, "uidIdx", uint64(ino.UIDIndex()))
	binutils.DumpUint(&b, width, "gidIdx", uint64(ino.GIDIndex()))
	binutils.DumpInt(&b, width, "modifiedTime", int64(ino.ModTime()))
	binutils.DumpUint(&b, width, "inodeNumber", uint64(ino.Number()))
	ino.dumpExtra(&b, width)
	b.WriteString("}")
	return b.String()
}

// readExact fills buf from r, used by the per-variant extra readers.
func readExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
