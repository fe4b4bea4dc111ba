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
	"strings"

	"github.com/containerd/go-squashfs/internal/binutils"
)

// DeviceNumber is the packed on-disk device number: 12-bit major,
// 20-bit minor, laid out as (major<<8) | (minor&0xff) | ((minor>>8)<<20).
type DeviceNumber uint32

// NewDeviceNumber packs major and minor. Values are masked to their
// field widths (12 and 20 bits).
func NewDeviceNumber(major, minor uint32) DeviceNumber {
	major &= 0xfff
	minor &= 0xfffff
	return DeviceNumber(major<<8 | minor&0xff | (minor>>8)<<20)
}

func (d DeviceNumber) Major() uint32 {
	return uint32(d) >> 8 & 0xfff
}

func (d DeviceNumber) Minor() uint32 {
	return uint32(d)&0xff | uint32(d)>>20<<8
}

func (d DeviceNumber) String() string {
	return fmt.Sprintf("%d:%d", d.Major(), d.Minor())
}

// DeviceINode is implemented by the four device encodings.
type DeviceINode interface {
	INode

	Device() DeviceNumber
}

// basicDevice is the shared shape of inode types 4 and 5. Extra
// layout: link count (u32), device number (u32).
type basicDevice struct {
	inodeBase
	nlinkField
	noXattr

	device DeviceNumber
}

func (d *basicDevice) Device() DeviceNumber     { return d.device }
func (d *basicDevice) SetDevice(v DeviceNumber) { d.device = v }

func (d *basicDevice) extraSize(FormatContext) int { return 8 }

func (d *basicDevice) readExtra(r io.Reader, _ FormatContext) error {
	var b [8]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	d.nlink = le.Uint32(b[0:4])
	d.device = DeviceNumber(le.Uint32(b[4:8]))
	return nil
}

func (d *basicDevice) writeExtra(w io.Writer) error {
	var b [8]byte
	le.PutUint32(b[0:4], d.nlink)
	le.PutUint32(b[4:8], uint32(d.device))
	_, err := w.Write(b[:])
	return err
}

func (d *basicDevice) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "nlink", uint64(d.nlink))
	binutils.DumpUint(b, width, "device", uint64(d.device))
}

func (*basicDevice) dumpWidth() int { return 12 }

// BasicBlockDevice is inode type 4.
type BasicBlockDevice struct {
	basicDevice
}

func NewBasicBlockDevice() *BasicBlockDevice {
	d := &BasicBlockDevice{}
	d.nlink = 1
	return d
}

func (*BasicBlockDevice) Type() Type { return TypeBasicBlockDevice }

// BasicCharDevice is inode type 5.
type BasicCharDevice struct {
	basicDevice
}

func NewBasicCharDevice() *BasicCharDevice {
	d := &BasicCharDevice{}
	d.nlink = 1
	return d
}

func (*BasicCharDevice) Type() Type { return TypeBasicCharDevice }

// extendedDevice is the shared shape of inode types 11 and 12. Extra
// layout: link count (u32), device number (u32), xattr index (u32).
type extendedDevice struct {
	inodeBase
	nlinkField
	xattrField

	device DeviceNumber
}

func (d *extendedDevice) Device() DeviceNumber     { return d.device }
func (d *extendedDevice) SetDevice(v DeviceNumber) { d.device = v }

func (d *extendedDevice) extraSize(FormatContext) int { return 12 }

func (d *extendedDevice) readExtra(r io.Reader, _ FormatContext) error {
	var b [12]byte
	if err := readExact(r, b[:]); err != nil {
		return err
	}
	d.nlink = le.Uint32(b[0:4])
	d.device = DeviceNumber(le.Uint32(b[4:8]))
	d.xattrIndex = le.Uint32(b[8:12])
	return nil
}

func (d *extendedDevice) writeExtra(w io.Writer) error {
	var b [12]byte
	le.PutUint32(b[0:4], d.nlink)
	le.PutUint32(b[4:8], uint32(d.device))
	le.PutUint32(b[8:12], d.xattrIndex)
	_, err := w.Write(b[:])
	return err
}

func (d *extendedDevice) dumpExtra(b *strings.Builder, width int) {
	binutils.DumpUint(b, width, "nlink", uint64(d.nlink))
	binutils.DumpUint(b, width, "device", uint64(d.device))
	binutils.DumpHex(b, width, "xattrIndex", uint64(d.xattrIndex))
}

func (*extendedDevice) dumpWidth() int { return 12 }

// ExtendedBlockDevice is inode type 11.
type ExtendedBlockDevice struct {
	extendedDevice
}

func NewExtendedBlockDevice() *ExtendedBlockDevice {
	d := &ExtendedBlockDevice{}
	d.nlink = 1
	d.xattrIndex = XattrNotPresent
	return d
}

func (*ExtendedBlockDevice) Type() Type { return TypeExtendedBlockDevice }

// ExtendedCharDevice is inode type 12.
type ExtendedCharDevice struct {
	extendedDevice
}

func NewExtendedCharDevice() *ExtendedCharDevice {
	d := &ExtendedCharDevice{}
	d.nlink = 1
	d.xattrIndex = XattrNotPresent
	return d
}

func (*ExtendedCharDevice) Type() Type { return TypeExtendedCharDevice }

// simplify collapses an extended device inode without xattrs to the
// matching basic encoding.
func (i *ExtendedBlockDevice) simplify() INode {
	if i.IsXattrPresent() {
		return i
	}
	s := NewBasicBlockDevice()
	s.inodeBase = i.inodeBase
	s.nlink = i.nlink
	s.device = i.device
	return s
}

func (i *ExtendedCharDevice) simplify() INode {
	if i.IsXattrPresent() {
		return i
	}
	s := NewBasicCharDevice()
	s.inodeBase = i.inodeBase
	s.nlink = i.nlink
	s.device = i.device
	return s
}

var (
	_ DeviceINode = (*BasicBlockDevice)(nil)
	_ DeviceINode = (*BasicCharDevice)(nil)
	_ DeviceINode = (*ExtendedBlockDevice)(nil)
	_ DeviceINode = (*ExtendedCharDevice)(nil)
)
