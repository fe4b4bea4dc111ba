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
	"math/rand"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContext is a fixed-constant format context, the common case for
// version 4.0 images.
type testContext uint32

func (c testContext) DataBlockSize() uint32 { return uint32(c) }

const testBlockSize = testContext(131072)

func roundTrip(t *testing.T, ino INode, fc FormatContext) INode {
	t.Helper()
	record, err := Marshal(ino, fc)
	require.NoError(t, err)
	require.Len(t, record, SerializedSize(ino, fc))

	decoded, err := Read(bytes.NewReader(record), fc)
	require.NoError(t, err)
	return decoded
}

func newTestHeader(ino INode, seed uint32) {
	ino.SetMode(uint16(0o640 + seed&0o137))
	ino.SetUIDIndex(uint16(seed % 7))
	ino.SetGIDIndex(uint16(seed % 5))
	ino.SetModTime(int32(1600000000 + seed))
	ino.SetNumber(seed + 1)
}

func TestRoundTripAllVariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, tc := range []struct {
		name  string
		build func() INode
	}{
		{"basic-dir", func() INode {
			i := NewBasicDirectory()
			i.SetStartBlock(rng.Uint32())
			i.SetNlink(3)
			i.SetFileSize(uint16(rng.Uint32()))
			i.SetOffset(uint16(rng.Uint32()))
			i.SetParentInode(rng.Uint32())
			return i
		}},
		{"basic-file", func() INode {
			i := NewBasicFile()
			i.SetStartBlock(rng.Uint32())
			i.SetFileSize(300000)
			i.SetBlockSizes([]uint32{131072, 131072, 37856})
			return i
		}},
		{"basic-file-fragment", func() INode {
			i := NewBasicFile()
			i.SetFragmentIndex(7)
			i.SetFragmentOffset(1234)
			i.SetFileSize(131072 + 100)
			i.SetBlockSizes([]uint32{131072})
			return i
		}},
		{"basic-symlink", func() INode {
			i := NewBasicSymlink()
			i.SetNlink(2)
			i.SetTarget("/usr/lib/os-release")
			return i
		}},
		{"basic-block-dev", func() INode {
			i := NewBasicBlockDevice()
			i.SetNlink(2)
			i.SetDevice(NewDeviceNumber(8, 1))
			return i
		}},
		{"basic-char-dev", func() INode {
			i := NewBasicCharDevice()
			i.SetDevice(NewDeviceNumber(1, 3))
			return i
		}},
		{"basic-fifo", func() INode {
			i := NewBasicFifo()
			i.SetNlink(4)
			return i
		}},
		{"basic-socket", func() INode {
			return NewBasicSocket()
		}},
		{"extended-dir", func() INode {
			i := NewExtendedDirectory()
			i.SetNlink(5)
			i.SetFileSize(1 << 20)
			i.SetStartBlock(rng.Uint32())
			i.SetParentInode(rng.Uint32())
			i.SetIndexCount(0)
			i.SetOffset(uint16(rng.Uint32()))
			i.SetXattrIndex(99)
			return i
		}},
		{"extended-file", func() INode {
			i := NewExtendedFile()
			i.SetStartBlock(uint64(rng.Uint32()) << 12)
			i.SetFileSize(uint64(131072)*2 + 17)
			i.SetSparse(4096)
			i.SetNlink(2)
			i.SetBlockSizes([]uint32{131072, 131072, 17})
			i.SetXattrIndex(12)
			return i
		}},
		{"extended-symlink", func() INode {
			i := NewExtendedSymlink()
			i.SetTarget("../../etc/passwd")
			i.SetXattrIndex(3)
			return i
		}},
		{"extended-block-dev", func() INode {
			i := NewExtendedBlockDevice()
			i.SetDevice(NewDeviceNumber(259, 77))
			i.SetXattrIndex(1)
			return i
		}},
		{"extended-char-dev", func() INode {
			i := NewExtendedCharDevice()
			i.SetDevice(NewDeviceNumber(4095, 1<<20-1))
			return i
		}},
		{"extended-fifo", func() INode {
			i := NewExtendedFifo()
			i.SetNlink(9)
			i.SetXattrIndex(5)
			return i
		}},
		{"extended-socket", func() INode {
			return NewExtendedSocket()
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ino := tc.build()
			newTestHeader(ino, uint32(rng.Intn(1000)))

			decoded := roundTrip(t, ino, testBlockSize)
			require.Equal(t, ino, decoded)
		})
	}
}

func TestRoundTripRandomizedHeaders(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for n := 0; n < 200; n++ {
		ino := NewBasicFifo()
		ino.SetMode(uint16(rng.Intn(1 << 12)))
		ino.SetUIDIndex(uint16(rng.Uint32()))
		ino.SetGIDIndex(uint16(rng.Uint32()))
		ino.SetModTime(int32(rng.Uint32()))
		ino.SetNumber(rng.Uint32() | 1)
		ino.SetNlink(rng.Uint32())

		decoded := roundTrip(t, ino, testBlockSize)
		require.Equal(t, INode(ino), decoded)
	}
}

func TestSymlinkSerializedSize(t *testing.T) {
	ino := NewBasicSymlink()
	ino.SetMode(0o777)
	ino.SetNumber(42)
	ino.SetTarget("../target")

	// 16 header + 4 nlink + 2 target length + 9 target bytes.
	require.Equal(t, 31, SerializedSize(ino, testBlockSize))

	decoded := roundTrip(t, ino, testBlockSize)
	link, err := SymlinkOf(decoded)
	require.NoError(t, err)
	assert.Equal(t, "../target", link.Target())
	assert.Equal(t, uint16(0o777), decoded.Mode())
	assert.Equal(t, uint32(42), decoded.Number())
}

func TestSerializedSizes(t *testing.T) {
	for _, tc := range []struct {
		ino  INode
		size int
	}{
		{NewBasicDirectory(), 32},
		{NewBasicFile(), 32},
		{NewBasicBlockDevice(), 24},
		{NewBasicCharDevice(), 24},
		{NewBasicFifo(), 20},
		{NewBasicSocket(), 20},
		{NewExtendedDirectory(), 40},
		{NewExtendedFile(), 56},
		{NewExtendedBlockDevice(), 28},
		{NewExtendedCharDevice(), 28},
		{NewExtendedFifo(), 24},
		{NewExtendedSocket(), 24},
	} {
		assert.Equal(t, tc.size, SerializedSize(tc.ino, testBlockSize), tc.ino.Type().String())
	}
}

func TestFileBlockEntryCount(t *testing.T) {
	fc := testContext(4096)

	f := NewBasicFile()
	f.SetFileSize(4096 * 3)
	f.SetBlockSizes([]uint32{100, 200, 300})
	require.Equal(t, 16+16+12, SerializedSize(f, fc))

	// A trailing partial block gets its own entry when no fragment is
	// used...
	f.SetFileSize(4096*3 + 1)
	f.SetBlockSizes([]uint32{100, 200, 300, 1})
	require.Equal(t, 16+16+16, SerializedSize(f, fc))

	// ...and none when the tail lives in a fragment.
	f.SetFragmentIndex(0)
	f.SetBlockSizes([]uint32{100, 200, 300})
	require.Equal(t, 16+16+12, SerializedSize(f, fc))

	decoded := roundTrip(t, f, fc)
	require.Equal(t, INode(f), decoded)
}

func TestMarshalRejectsInconsistentBlockTable(t *testing.T) {
	f := NewBasicFile()
	f.SetFileSize(4096 * 2)
	f.SetBlockSizes([]uint32{1}) // file size implies two entries

	_, err := Marshal(f, testContext(4096))
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestReadUnknownTypeTag(t *testing.T) {
	for _, tag := range []uint16{0, 15, 255, 0xffff} {
		record := make([]byte, HeaderSize)
		le.PutUint16(record[0:2], tag)

		_, err := Read(bytes.NewReader(record), testBlockSize)
		require.ErrorIs(t, err, ErrMalformedRecord)
		require.True(t, errdefs.IsInvalidArgument(err))
	}
}

func TestReadTruncated(t *testing.T) {
	// Truncated header.
	_, err := Read(bytes.NewReader(make([]byte, HeaderSize-6)), testBlockSize)
	require.ErrorIs(t, err, ErrMalformedRecord)

	// Valid header, truncated extra fields.
	record, err := Marshal(NewBasicDirectory(), testBlockSize)
	require.NoError(t, err)
	_, err = Read(bytes.NewReader(record[:len(record)-4]), testBlockSize)
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestXattrSentinel(t *testing.T) {
	// Basic variants never report xattrs.
	basic := NewBasicFifo()
	assert.False(t, basic.IsXattrPresent())
	assert.Equal(t, XattrNotPresent, basic.XattrIndex())

	ext := NewExtendedFifo()
	assert.False(t, ext.IsXattrPresent())

	ext.SetXattrIndex(0)
	assert.True(t, ext.IsXattrPresent())

	ext.SetXattrIndex(XattrNotPresent)
	assert.False(t, ext.IsXattrPresent())
}

func TestVariantAccessors(t *testing.T) {
	dir := NewBasicDirectory()

	_, err := FileOf(dir)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
	require.True(t, errdefs.IsInvalidArgument(err))

	_, err = DeviceOf(dir)
	require.ErrorIs(t, err, ErrUnsupportedVariant)

	d, err := DirectoryOf(dir)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), d.IndexCount())

	_, err = SymlinkOf(NewExtendedSocket())
	require.ErrorIs(t, err, ErrUnsupportedVariant)

	_, err = IPCOf(NewBasicSocket())
	require.NoError(t, err)
}

func TestDumpDeterministic(t *testing.T) {
	ino := NewExtendedBlockDevice()
	ino.SetNlink(2)
	ino.SetDevice(NewDeviceNumber(8, 16))
	newTestHeader(ino, 11)

	first := Dump(ino, 0)
	second := Dump(ino, 0)
	require.Equal(t, first, second)

	assert.Contains(t, first, "extended-block-dev-inode {")
	assert.Contains(t, first, "nlink")
	assert.Contains(t, first, "xattrIndex")

	// An explicit width changes the layout but not the content.
	wide := Dump(ino, 20)
	require.NotEqual(t, first, wide)
	assert.Contains(t, wide, "device")
}
