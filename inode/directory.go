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
	"io"
	"math"
	"strings"

	"github.com/containerd/go-squashfs/internal/binutils"
)

// DirectoryINode is implemented by both directory encodings. Getters
// use the widths of the extended form; the basic form widens.
type DirectoryINode interface {
	INode

	// StartBlock is the directory table block holding the entries.
	StartBlock() uint32
	// Offset is the entry start within the uncompressed block.
	Offset() uint16
	FileSize() uint32
	ParentInode() uint32
	// IndexCount is the number of directory index records; always zero
	// for the basic encoding.
	IndexCount() uint16
}

// BasicDirectory is inode type 1. Extra layout: start block (u32),
// link count (u32), file size (u16), block offset (u16), parent inode
// number (u32).
type BasicDirectory struct {
	inodeBase
	nlinkField
	noXattr

	startBlock  uint32
	fileSize    uint16
	offset      uint16
	parentInode uint32
}

func NewBasicDirectory() *BasicDirectory {
	return &BasicDirectory{nlinkField: nlinkField{nlink: 1}}
}

func (*BasicDirectory) Type() Type { return TypeBasicDirectory }

func (i *BasicDirectory) StartBlock() uint32      { return i.startBlock }
func (i *BasicDirectory) SetStartBlock(v uint32)  { i.startBlock = v }
func (i *BasicDirectory) FileSize() uint32        { return uint32(i.fileSize) }
func (i *BasicDirectory) SetFileSize(v uint16)    { i.fileSize = v }
func (i *BasicDirectory) Offset() uint16          { return i.offset }
func (i *BasicDirectory) SetOffset(v uint16)      { i.offset = v }
func (i *BasicDirectory) ParentInode() uint32     { return i.parentInode }
func (i *BasicDirectory) SetParentInode(v uint32) { i.parentInode = v }
func (i *BasicDirectory) IndexCount() uint16      { return 0 }

func (i *BasicDirectory) extraSize(FormatContext) int { return 16 }

func (i *BasicDirectory) readExtra(r io.Reader, _ FormatContext) error {
	var b [16]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.startBlock = le.Uint32(b[0:4])
	i.nlink = le.Uint32(b[4:8])
	i.fileSize = le.Uint16(b[8:10])
	i.offset = le.Uint16(b[10:12])
	i.parentInode = le.Uint32(b[12:16])
	return nil
}

func (i *BasicDirectory) writeExtra(w io.Writer) error {
	var b [16]byte
	le.PutUint32(b[0:4], i.startBlock)
	le.PutUint32(b[4:8], i.nlink)
	le.PutUint16(b[8:10], i.fileSize)
	le.PutUint16(b[10:12], i.offset)
	le.PutUint32(b[12:16], i.parentInode)
	_, err := w.Write(b[:])
	return err
}

func (i *BasicDirectory) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "startBlock", uint64(i.startBlock))
	binutils.DumpUint(b, width, "nlink", uint64(i.nlink))
	binutils.DumpUint(b, width, "fileSize", uint64(i.fileSize))
	binutils.DumpUint(b, width, "offset", uint64(i.offset))
	binutils.DumpUint(b, width, "parentInode", uint64(i.parentInode))
}

func (*BasicDirectory) dumpWidth() int { return 12 }

// ExtendedDirectory is inode type 8. Extra layout: link count (u32),
// file size (u32), start block (u32), parent inode (u32), index count
// (u16), block offset (u16), xattr index (u32). The index records it
// counts live in the directory table and are encoded there.
type ExtendedDirectory struct {
	inodeBase
	nlinkField
	xattrField

	fileSize    uint32
	startBlock  uint32
	parentInode uint32
	indexCount  uint16
	offset      uint16
}

func NewExtendedDirectory() *ExtendedDirectory {
	return &ExtendedDirectory{
		nlinkField: nlinkField{nlink: 1},
		xattrField: xattrField{xattrIndex: XattrNotPresent},
	}
}

func (*ExtendedDirectory) Type() Type { return TypeExtendedDirectory }

func (i *ExtendedDirectory) StartBlock() uint32      { return i.startBlock }
func (i *ExtendedDirectory) SetStartBlock(v uint32)  { i.startBlock = v }
func (i *ExtendedDirectory) FileSize() uint32        { return i.fileSize }
func (i *ExtendedDirectory) SetFileSize(v uint32)    { i.fileSize = v }
func (i *ExtendedDirectory) Offset() uint16          { return i.offset }
func (i *ExtendedDirectory) SetOffset(v uint16)      { i.offset = v }
func (i *ExtendedDirectory) ParentInode() uint32     { return i.parentInode }
func (i *ExtendedDirectory) SetParentInode(v uint32) { i.parentInode = v }
func (i *ExtendedDirectory) IndexCount() uint16      { return i.indexCount }
func (i *ExtendedDirectory) SetIndexCount(v uint16)  { i.indexCount = v }

func (i *ExtendedDirectory) extraSize(FormatContext) int { return 24 }

func (i *ExtendedDirectory) readExtra(r io.Reader, _ FormatContext) error {
	var b [24]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.nlink = le.Uint32(b[0:4])
	i.fileSize = le.Uint32(b[4:8])
	i.startBlock = le.Uint32(b[8:12])
	i.parentInode = le.Uint32(b[12:16])
	i.indexCount = le.Uint16(b[16:18])
	i.offset = le.Uint16(b[18:20])
	i.xattrIndex = le.Uint32(b[20:24])
	return nil
}

func (i *ExtendedDirectory) writeExtra(w io.Writer) error {
	var b [24]byte
	le.PutUint32(b[0:4], i.nlink)
	le.PutUint32(b[4:8], i.fileSize)
	le.PutUint32(b[8:12], i.startBlock)
	le.PutUint32(b[12:16], i.parentInode)
	le.PutUint16(b[16:18], i.indexCount)
	le.PutUint16(b[18:20], i.offset)
	le.PutUint32(b[20:24], i.xattrIndex)
	_, err := w.Write(b[:])
	return err
}

func (i *ExtendedDirectory) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "nlink", uint64(i.nlink))
	binutils.DumpUint(b, width, "fileSize", uint64(i.fileSize))
	binutils.DumpUint(b, width, "startBlock", uint64(i.startBlock))
	binutils.DumpUint(b, width, "parentInode", uint64(i.parentInode))
	binutils.DumpUint(b, width, "indexCount", uint64(i.indexCount))
	binutils.DumpUint(b, width, "offset", uint64(i.offset))
	binutils.DumpHex(b, width, "xattrIndex", uint64(i.xattrIndex))
}

func (*ExtendedDirectory) dumpWidth() int { return 12 }

// simplify collapses an extended directory whose extended fields carry
// no information back to the basic encoding.
func (i *ExtendedDirectory) simplify() INode {
	if i.IsXattrPresent() || i.indexCount != 0 || i.fileSize > math.MaxUint16 {
		return i
	}
	s := NewBasicDirectory()
	s.inodeBase = i.inodeBase
	s.nlink = i.nlink
	s.startBlock = i.startBlock
	s.fileSize = uint16(i.fileSize)
	s.offset = i.offset
	s.parentInode = i.parentInode
	return s
}

var (
	_ DirectoryINode = (*BasicDirectory)(nil)
	_ DirectoryINode = (*ExtendedDirectory)(nil)
)
