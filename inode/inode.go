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

// Package inode models the SquashFS inode table records and their
// serialized form.
//
// Every inode kind exists in a basic and an extended encoding; the
// extended form carries an explicit link count and an xattr table index
// at a larger fixed cost. Records share a 16-byte little-endian header
// (type tag, permission bits, uid/gid table indices, modification time,
// inode number) followed by variant-specific extra fields whose byte
// length is known without parsing.
package inode

import (
	"fmt"
	"io"
	"strings"

	"github.com/containerd/errdefs"
)

const (
	// HeaderSize is the fixed serialized size of the common header.
	HeaderSize = 16

	// XattrNotPresent is the xattr table index sentinel meaning the
	// inode carries no extended attributes.
	XattrNotPresent uint32 = 0xffffffff

	// FragmentNotPresent is the fragment index sentinel meaning a file
	// ends on a block boundary instead of in a shared fragment.
	FragmentNotPresent uint32 = 0xffffffff
)

var (
	// ErrMalformedRecord indicates a record that cannot be decoded:
	// unknown type tag, truncated header, or inconsistent field values.
	ErrMalformedRecord = fmt.Errorf("malformed inode record: %w", errdefs.ErrInvalidArgument)

	// ErrUnsupportedVariant indicates access to a field the concrete
	// inode variant does not carry.
	ErrUnsupportedVariant = fmt.Errorf("unsupported inode variant: %w", errdefs.ErrInvalidArgument)
)

// Type is the on-disk inode type tag.
type Type uint16

const (
	TypeBasicDirectory Type = iota + 1
	TypeBasicFile
	TypeBasicSymlink
	TypeBasicBlockDevice
	TypeBasicCharDevice
	TypeBasicFifo
	TypeBasicSocket
	TypeExtendedDirectory
	TypeExtendedFile
	TypeExtendedSymlink
	TypeExtendedBlockDevice
	TypeExtendedCharDevice
	TypeExtendedFifo
	TypeExtendedSocket
)

var typeNames = map[Type]string{
	TypeBasicDirectory:      "basic-dir-inode",
	TypeBasicFile:           "basic-file-inode",
	TypeBasicSymlink:        "basic-symlink-inode",
	TypeBasicBlockDevice:    "basic-block-dev-inode",
	TypeBasicCharDevice:     "basic-char-dev-inode",
	TypeBasicFifo:           "basic-fifo-inode",
	TypeBasicSocket:         "basic-socket-inode",
	TypeExtendedDirectory:   "extended-dir-inode",
	TypeExtendedFile:        "extended-file-inode",
	TypeExtendedSymlink:     "extended-symlink-inode",
	TypeExtendedBlockDevice: "extended-block-dev-inode",
	TypeExtendedCharDevice:  "extended-char-dev-inode",
	TypeExtendedFifo:        "extended-fifo-inode",
	TypeExtendedSocket:      "extended-socket-inode",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown-inode-type-%d", uint16(t))
}

// Basic reports whether t is one of the basic (non-extended) encodings.
func (t Type) Basic() bool {
	return t >= TypeBasicDirectory && t <= TypeBasicSocket
}

// FormatContext supplies the format-level parameters needed to
// interpret inode layouts. All current variants are version-stable, so
// implementations reduce to returning superblock constants; the
// interface stays abstract so newer format revisions can gate field
// presence here without changing the codec control flow.
type FormatContext interface {
	// DataBlockSize returns the data block size in bytes. File inodes
	// derive their block-length entry count from it.
	DataBlockSize() uint32
}

// INode is one inode table record. The concrete types behind it form a
// closed set, one per on-disk type tag; the codec dispatches on the tag
// with an exhaustive switch.
//
// Records are compared by identity during a build pass. A record must
// not be mutated once it has been serialized and its metadata reference
// published, or the reference goes stale.
type INode interface {
	Type() Type

	Mode() uint16
	SetMode(uint16)
	UIDIndex() uint16
	SetUIDIndex(uint16)
	GIDIndex() uint16
	SetGIDIndex(uint16)
	ModTime() int32
	SetModTime(int32)
	Number() uint32
	SetNumber(uint32)

	// Nlink returns the link count. Variants without a stored link
	// count report 1.
	Nlink() uint32

	// XattrIndex returns the xattr table index, XattrNotPresent when
	// the variant stores none or the index equals the sentinel.
	XattrIndex() uint32
	IsXattrPresent() bool

	extraSize(fc FormatContext) int
	readExtra(r io.Reader, fc FormatContext) error
	writeExtra(w io.Writer) error
	dumpExtra(b *strings.Builder, width int)
	dumpWidth() int
	base() *inodeBase
}

// inodeBase carries the common header fields shared by all variants.
type inodeBase struct {
	mode     uint16
	uidIndex uint16
	gidIndex uint16
	modTime  int32
	number   uint32
}

func (b *inodeBase) base() *inodeBase { return b }

func (b *inodeBase) Mode() uint16 { return b.mode }

// SetMode stores the 12-bit permission mask; type bits are implied by
// the variant and stripped here.
func (b *inodeBase) SetMode(mode uint16) { b.mode = mode & 0o7777 }

func (b *inodeBase) UIDIndex() uint16       { return b.uidIndex }
func (b *inodeBase) SetUIDIndex(idx uint16) { b.uidIndex = idx }
func (b *inodeBase) GIDIndex() uint16       { return b.gidIndex }
func (b *inodeBase) SetGIDIndex(idx uint16) { b.gidIndex = idx }
func (b *inodeBase) ModTime() int32         { return b.modTime }
func (b *inodeBase) SetModTime(t int32)     { b.modTime = t }
func (b *inodeBase) Number() uint32         { return b.number }
func (b *inodeBase) SetNumber(n uint32)     { b.number = n }

// nlinkField is embedded by variants that store a link count.
type nlinkField struct {
	nlink uint32
}

func (n *nlinkField) Nlink() uint32     { return n.nlink }
func (n *nlinkField) SetNlink(v uint32) { n.nlink = v }

// noXattr is embedded by basic variants, which never carry xattrs.
type noXattr struct{}

func (noXattr) XattrIndex() uint32   { return XattrNotPresent }
func (noXattr) IsXattrPresent() bool { return false }

// xattrField is embedded by extended variants.
type xattrField struct {
	xattrIndex uint32
}

func (x *xattrField) XattrIndex() uint32       { return x.xattrIndex }
func (x *xattrField) SetXattrIndex(idx uint32) { x.xattrIndex = idx }
func (x *xattrField) IsXattrPresent() bool     { return x.xattrIndex != XattrNotPresent }

// New returns a fresh inode of the given type with the original's
// defaults: link count 1 and, on extended variants, no xattrs.
func New(t Type) (INode, error) {
	switch t {
	case TypeBasicDirectory:
		return NewBasicDirectory(), nil
	case TypeBasicFile:
		return NewBasicFile(), nil
	case TypeBasicSymlink:
		return NewBasicSymlink(), nil
	case TypeBasicBlockDevice:
		return NewBasicBlockDevice(), nil
	case TypeBasicCharDevice:
		return NewBasicCharDevice(), nil
	case TypeBasicFifo:
		return NewBasicFifo(), nil
	case TypeBasicSocket:
		return NewBasicSocket(), nil
	case TypeExtendedDirectory:
		return NewExtendedDirectory(), nil
	case TypeExtendedFile:
		return NewExtendedFile(), nil
	case TypeExtendedSymlink:
		return NewExtendedSymlink(), nil
	case TypeExtendedBlockDevice:
		return NewExtendedBlockDevice(), nil
	case TypeExtendedCharDevice:
		return NewExtendedCharDevice(), nil
	case TypeExtendedFifo:
		return NewExtendedFifo(), nil
	case TypeExtendedSocket:
		return NewExtendedSocket(), nil
	default:
		return nil, fmt.Errorf("type tag %d outside 1..14: %w", uint16(t), ErrMalformedRecord)
	}
}
