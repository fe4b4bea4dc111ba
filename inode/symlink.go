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

// SymlinkINode is implemented by both symlink encodings.
type SymlinkINode interface {
	INode

	Target() string
}

// symlinkFields is the extra layout shared by both symlink encodings:
// link count (u32), target length (u16), target bytes. The target is
// stored without a terminating NUL.
type symlinkFields struct {
	nlinkField
	target []byte
}

func (s *symlinkFields) Target() string     { return string(s.target) }
func (s *symlinkFields) SetTarget(t string) { s.target = []byte(t) }

func (s *symlinkFields) size() int { return 6 + len(s.target) }

func (s *symlinkFields) read(r io.Reader) error {
	var b [6]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	s.nlink = le.Uint32(b[0:4])
	s.target = make([]byte, le.Uint16(b[4:6]))
	return readExact(r, s.target)
}

func (s *symlinkFields) write(w io.Writer) error {
	if len(s.target) > math.MaxUint16 {
		return fmt.Errorf("symlink target of %d bytes: %w", len(s.target), ErrMalformedRecord)
	}
	var b [6]byte
	le.PutUint32(b[0:4], s.nlink)
	le.PutUint16(b[4:6], uint16(len(s.target)))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	_, err := w.Write(s.target)
	return err
}

func (s *symlinkFields) dump(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "nlink", uint64(s.nlink))
	binutils.DumpUint(b, width, "targetSize", uint64(len(s.target)))
	binutils.DumpString(b, width, "target", string(s.target))
}

// BasicSymlink is inode type 3.
type BasicSymlink struct {
	inodeBase
	noXattr
	symlinkFields
}

func NewBasicSymlink() *BasicSymlink {
	s := &BasicSymlink{}
	s.nlink = 1
	return s
}

func (*BasicSymlink) Type() Type { return TypeBasicSymlink }

func (i *BasicSymlink) extraSize(FormatContext) int { return i.size() }

func (i *BasicSymlink) readExtra(r io.Reader, _ FormatContext) error { return i.read(r) }

func (i *BasicSymlink) writeExtra(w io.Writer) error { return i.write(w) }

func (i *BasicSymlink) dumpExtra(b *strings.Builder, width int) { i.dump(b, width) }

func (*BasicSymlink) dumpWidth() int { return 12 }

// ExtendedSymlink is inode type 10; the xattr index (u32) follows the
// target bytes.
type ExtendedSymlink struct {
	inodeBase
	xattrField
	symlinkFields
}

func NewExtendedSymlink() *ExtendedSymlink {
	s := &ExtendedSymlink{xattrField: xattrField{xattrIndex: XattrNotPresent}}
	s.nlink = 1
	return s
}

func (*ExtendedSymlink) Type() Type { return TypeExtendedSymlink }

func (i *ExtendedSymlink) extraSize(FormatContext) int { return i.size() + 4 }

func (i *ExtendedSymlink) readExtra(r io.Reader, _ FormatContext) error {
	if err := i.read(r); err != nil {
		return err
	}
	var b [4]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.xattrIndex = le.Uint32(b[:])
	return nil
}

func (i *ExtendedSymlink) writeExtra(w io.Writer) error {
	if err := i.write(w); err != nil {
		return err
	}
	var b [4]byte
	le.PutUint32(b[:], i.xattrIndex)
	_, err := w.Write(b[:])
	return err
}

func (i *ExtendedSymlink) dumpExtra(b *strings.Builder, width int) {
	i.dump(b, width)
	binutils.DumpHex(b, width, "xattrIndex", uint64(i.xattrIndex))
}

func (*ExtendedSymlink) dumpWidth() int { return 12 }

// simplify collapses an extended symlink without xattrs back to the
// basic encoding.
func (i *ExtendedSymlink) simplify() INode {
	if i.IsXattrPresent() {
		return i
	}
	s := NewBasicSymlink()
	s.inodeBase = i.inodeBase
	s.symlinkFields = i.symlinkFields
	return s
}

var (
	_ SymlinkINode = (*BasicSymlink)(nil)
	_ SymlinkINode = (*ExtendedSymlink)(nil)
)
