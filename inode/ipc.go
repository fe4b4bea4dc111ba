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
	"strings"

	"github.com/containerd/go-squashfs/internal/binutils"
)

// IPCINode is implemented by the fifo and socket encodings, which
// carry no payload beyond the link count (and xattr index when
// extended).
type IPCINode interface {
	INode

	ipc()
}

// basicIPC is the shared shape of inode types 6 and 7. Extra layout:
// link count (u32).
type basicIPC struct {
	inodeBase
	nlinkField
	noXattr
}

func (*basicIPC) ipc() {}

func (i *basicIPC) extraSize(FormatContext) int { return 4 }

func (i *basicIPC) readExtra(r io.Reader, _ FormatContext) error {
	var b [4]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.nlink = le.Uint32(b[:])
	return nil
}

func (i *basicIPC) writeExtra(w io.Writer) error {
	var b [4]byte
	le.PutUint32(b[:], i.nlink)
	_, err := w.Write(b[:])
	return err
}

func (i *basicIPC) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "nlink", uint64(i.nlink))
}

func (*basicIPC) dumpWidth() int { return 12 }

// BasicFifo is inode type 6.
type BasicFifo struct {
	basicIPC
}

func NewBasicFifo() *BasicFifo {
	i := &BasicFifo{}
	i.nlink = 1
	return i
}

func (*BasicFifo) Type() Type { return TypeBasicFifo }

// BasicSocket is inode type 7.
type BasicSocket struct {
	basicIPC
}

func NewBasicSocket() *BasicSocket {
	i := &BasicSocket{}
	i.nlink = 1
	return i
}

func (*BasicSocket) Type() Type { return TypeBasicSocket }

// extendedIPC is the shared shape of inode types 13 and 14. Extra
// layout: link count (u32), xattr index (u32).
type extendedIPC struct {
	inodeBase
	nlinkField
	xattrField
}

func (*extendedIPC) ipc() {}

func (i *extendedIPC) extraSize(FormatContext) int { return 8 }

func (i *extendedIPC) readExtra(r io.Reader, _ FormatContext) error {
	var b [8]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	i.nlink = le.Uint32(b[0:4])
	i.xattrIndex = le.Uint32(b[4:8])
	return nil
}

func (i *extendedIPC) writeExtra(w io.Writer) error {
	var b [8]byte
	le.PutUint32(b[0:4], i.nlink)
	le.PutUint32(b[4:8], i.xattrIndex)
	_, err := w.Write(b[:])
	return err
}

func (i *extendedIPC) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "nlink", uint64(i.nlink))
	binutils.DumpHex(b, width, "xattrIndex", uint64(i.xattrIndex))
}

func (*extendedIPC) dumpWidth() int { return 12 }

// ExtendedFifo is inode type 13.
type ExtendedFifo struct {
	extendedIPC
}

func NewExtendedFifo() *ExtendedFifo {
	i := &ExtendedFifo{}
	i.nlink = 1
	i.xattrIndex = XattrNotPresent
	return i
}

func (*ExtendedFifo) Type() Type { return TypeExtendedFifo }

// ExtendedSocket is inode type 14.
type ExtendedSocket struct {
	extendedIPC
}

func NewExtendedSocket() *ExtendedSocket {
	i := &ExtendedSocket{}
	i.nlink = 1
	i.xattrIndex = XattrNotPresent
	return i
}

func (*ExtendedSocket) Type() Type { return TypeExtendedSocket }

// simplify collapses an extended fifo or socket without xattrs to the
// matching basic encoding.
func (i *ExtendedFifo) simplify() INode {
	if i.IsXattrPresent() {
		return i
	}
	s := NewBasicFifo()
	s.inodeBase = i.inodeBase
	s.nlink = i.nlink
	return s
}

func (i *ExtendedSocket) simplify() INode {
	if i.IsXattrPresent() {
		return i
	}
	s := NewBasicSocket()
	s.inodeBase = i.inodeBase
	s.nlink = i.nlink
	return s
}

var (
	_ IPCINode = (*BasicFifo)(nil)
	_ IPCINode = (*BasicSocket)(nil)
	_ IPCINode = (*ExtendedFifo)(nil)
	_ IPCINode = (*ExtendedSocket)(nil)
)
