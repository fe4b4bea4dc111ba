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
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/containerd/go-squashfs/internal/binutils"
)

// maxBlockEntries caps the block-length table of a single file inode.
// The format stores no explicit count, so a corrupt file size would
// otherwise drive an unbounded allocation while decoding.
const maxBlockEntries = 1 << 24

// FileINode is implemented by both regular file encodings. Getters use
// the widths of the extended form; the basic form widens.
type FileINode interface {
	INode

	// StartBlock is the file offset of the first data block.
	StartBlock() uint64
	FileSize() uint64
	FragmentIndex() uint32
	FragmentOffset() uint32
	IsFragmentPresent() bool
	// Sparse is the number of bytes saved by sparse block elision;
	// always zero for the basic encoding.
	Sparse() uint64
	// BlockSizes lists the compressed length of each data block. The
	// entry count is derived from the file size and the data block
	// size, never stored.
	BlockSizes() []uint32
}

// blockEntryCount derives the number of block-length entries of a file
// inode. A file ending in a fragment stores entries only for its full
// blocks; otherwise the tail block gets an entry too.
func blockEntryCount(fileSize uint64, blockSize uint32, fragment bool) int {
	if blockSize == 0 {
		return 0
	}
	if fragment {
		return int(fileSize / uint64(blockSize))
	}
	return int((fileSize + uint64(blockSize) - 1) / uint64(blockSize))
}

func readBlockSizes(r io.Reader, count int) ([]uint32, error) {
	if count > maxBlockEntries {
		return nil, fmt.Errorf("block-length table of %d entries: %w", count, ErrMalformedRecord)
	}
	if count == 0 {
		return nil, nil
	}
	raw := make([]byte, 4*count)
	if err := readExact(r, raw); err != nil {
		return nil, err
	}
	sizes := make([]uint32, count)
	for n := range sizes {
		sizes[n] = le.Uint32(raw[4*n:])
	}
	return sizes, nil
}

func writeBlockSizes(w io.Writer, sizes []uint32) error {
	raw := make([]byte, 4*len(sizes))
	for n, s := range sizes {
		le.PutUint32(raw[4*n:], s)
	}
	_, err := w.Write(raw)
	return err
}

// BasicFile is inode type 2. Extra layout: start block (u32), fragment
// index (u32), fragment offset (u32), file size (u32), then one u32
// compressed length per data block.
type BasicFile struct {
	inodeBase
	noXattr

	startBlock     uint32
	fragmentIndex  uint32
	fragmentOffset uint32
	fileSize       uint32
	blockSizes     []uint32
}

func NewBasicFile() *BasicFile {
	return &BasicFile{fragmentIndex: FragmentNotPresent}
}

func (*BasicFile) Type() Type { return TypeBasicFile }

// Nlink is 1: the basic file encoding stores no link count.
func (*BasicFile) Nlink() uint32 { return 1 }

func (i *BasicFile) StartBlock() uint64         { return uint64(i.startBlock) }
func (i *BasicFile) SetStartBlock(v uint32)     { i.startBlock = v }
func (i *BasicFile) FileSize() uint64           { return uint64(i.fileSize) }
func (i *BasicFile) SetFileSize(v uint32)       { i.fileSize = v }
func (i *BasicFile) FragmentIndex() uint32      { return i.fragmentIndex }
func (i *BasicFile) SetFragmentIndex(v uint32)  { i.fragmentIndex = v }
func (i *BasicFile) FragmentOffset() uint32     { return i.fragmentOffset }
func (i *BasicFile) SetFragmentOffset(v uint32) { i.fragmentOffset = v }
func (i *BasicFile) Sparse() uint64             { return 0 }
func (i *BasicFile) BlockSizes() []uint32       { return i.blockSizes }
func (i *BasicFile) SetBlockSizes(v []uint32)   { i.blockSizes = v }

func (i *BasicFile) IsFragmentPresent() bool {
	return i.fragmentIndex != FragmentNotPresent
}

func (i *BasicFile) entryCount(fc FormatContext) int {
	return blockEntryCount(uint64(i.fileSize), fc.DataBlockSize(), i.IsFragmentPresent())
}

func (i *BasicFile) extraSize(fc FormatContext) int {
	return 16 + 4*i.entryCount(fc)
}

func (i *BasicFile) readExtra(r io.Reader, fc FormatContext) error {
	var b [16]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.startBlock = le.Uint32(b[0:4])
	i.fragmentIndex = le.Uint32(b[4:8])
	i.fragmentOffset = le.Uint32(b[8:12])
	i.fileSize = le.Uint32(b[12:16])

	sizes, err := readBlockSizes(r, i.entryCount(fc))
	if err != nil {
		return err
	}
	i.blockSizes = sizes
	return nil
}

func (i *BasicFile) writeExtra(w io.Writer) error {
	var b [16]byte
	le.PutUint32(b[0:4], i.startBlock)
	le.PutUint32(b[4:8], i.fragmentIndex)
	le.PutUint32(b[8:12], i.fragmentOffset)
	le.PutUint32(b[12:16], i.fileSize)
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	// A mismatch between len(blockSizes) and the count the file size
	// implies is caught by the size consistency check in Marshal.
	return writeBlockSizes(w, i.blockSizes)
}

func (i *BasicFile) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "startBlock", uint64(i.startBlock))
	binutils.DumpHex(b, width, "fragmentIndex", uint64(i.fragmentIndex))
	binutils.DumpUint(b, width, "fragmentOffset", uint64(i.fragmentOffset))
	binutils.DumpUint(b, width, "fileSize", uint64(i.fileSize))
	binutils.DumpUints(b, width, "blockSizes", i.blockSizes)
}

func (*BasicFile) dumpWidth() int { return 14 }

// ExtendedFile is inode type 9. Extra layout: start block (u64), file
// size (u64), sparse bytes (u64), link count (u32), fragment index
// (u32), fragment offset (u32), xattr index (u32), then one u32
// compressed length per data block.
type ExtendedFile struct {
	inodeBase
	nlinkField
	xattrField

	startBlock     uint64
	fileSize       uint64
	sparse         uint64
	fragmentIndex  uint32
	fragmentOffset uint32
	blockSizes     []uint32
}

func NewExtendedFile() *ExtendedFile {
	return &ExtendedFile{
		nlinkField:    nlinkField{nlink: 1},
		xattrField:    xattrField{xattrIndex: XattrNotPresent},
		fragmentIndex: FragmentNotPresent,
	}
}

func (*ExtendedFile) Type() Type { return TypeExtendedFile }

func (i *ExtendedFile) StartBlock() uint64         { return i.startBlock }
func (i *ExtendedFile) SetStartBlock(v uint64)     { i.startBlock = v }
func (i *ExtendedFile) FileSize() uint64           { return i.fileSize }
func (i *ExtendedFile) SetFileSize(v uint64)       { i.fileSize = v }
func (i *ExtendedFile) Sparse() uint64             { return i.sparse }
func (i *ExtendedFile) SetSparse(v uint64)         { i.sparse = v }
func (i *ExtendedFile) FragmentIndex() uint32      { return i.fragmentIndex }
func (i *ExtendedFile) SetFragmentIndex(v uint32)  { i.fragmentIndex = v }
func (i *ExtendedFile) FragmentOffset() uint32     { return i.fragmentOffset }
func (i *ExtendedFile) SetFragmentOffset(v uint32) { i.fragmentOffset = v }
func (i *ExtendedFile) BlockSizes() []uint32       { return i.blockSizes }
func (i *ExtendedFile) SetBlockSizes(v []uint32)   { i.blockSizes = v }

func (i *ExtendedFile) IsFragmentPresent() bool {
	return i.fragmentIndex != FragmentNotPresent
}

func (i *ExtendedFile) entryCount(fc FormatContext) int {
	return blockEntryCount(i.fileSize, fc.DataBlockSize(), i.IsFragmentPresent())
}

func (i *ExtendedFile) extraSize(fc FormatContext) int {
	return 40 + 4*i.entryCount(fc)
}

func (i *ExtendedFile) readExtra(r io.Reader, fc FormatContext) error {
	var b [40]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.startBlock = le.Uint64(b[0:8])
	i.fileSize = le.Uint64(b[8:16])
	i.sparse = le.Uint64(b[16:24])
	i.nlink = le.Uint32(b[24:28])
	i.fragmentIndex = le.Uint32(b[28:32])
	i.fragmentOffset = le.Uint32(b[32:36])
	i.xattrIndex = le.Uint32(b[36:40])

	sizes, err := readBlockSizes(r, i.entryCount(fc))
	if err != nil {
		return err
	}
	i.blockSizes = sizes
	return nil
}

func (i *ExtendedFile) writeExtra(w io.Writer) error {
	var b [40]byte
	le.PutUint64(b[0:8], i.startBlock)
	le.PutUint64(b[8:16], i.fileSize)
	le.PutUint64(b[16:24], i.sparse)
	le.PutUint32(b[24:28], i.nlink)
	le.PutUint32(b[28:32], i.fragmentIndex)
	le.PutUint32(b[32:36], i.fragmentOffset)
	le.PutUint32(b[36:40], i.xattrIndex)
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	return writeBlockSizes(w, i.blockSizes)
}

func (i *ExtendedFile) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "startBlock", i.startBlock)
	binutils.DumpUint(b, width, "fileSize", i.fileSize)
	binutils.DumpUint(b, width, "sparse", i.sparse)
	binutils.DumpUint(b, width, "nlink", uint64(i.nlink))
	binutils.DumpHex(b, width, "fragmentIndex", uint64(i.fragmentIndex))
	binutils.DumpUint(b, width, "fragmentOffset", uint64(i.fragmentOffset))
	binutils.DumpHex(b, width, "xattrIndex", uint64(i.xattrIndex))
	binutils.DumpUints(b, width, "blockSizes", i.blockSizes)
}

func (*ExtendedFile) dumpWidth() int { return 14 }

// simplify collapses an extended file whose extended fields carry no
// information back to the basic encoding.
func (i *ExtendedFile) simplify() INode {
	if i.IsXattrPresent() || i.sparse != 0 || i.nlink != 1 ||
		i.startBlock > math.MaxUint32 || i.fileSize > math.MaxUint32 {
		return i
	}
	s := NewBasicFile()
	s.inodeBase = i.inodeBase
	s.startBlock = uint32(i.startBlock)
	s.fragmentIndex = i.fragmentIndex
	s.fragmentOffset = i.fragmentOffset
	s.fileSize = uint32(i.fileSize)
	s.blockSizes = i.blockSizes
	return s
}

var (
	_ FileINode = (*BasicFile)(nil)
	_ FileINode = (*ExtendedFile)(nil)
)
