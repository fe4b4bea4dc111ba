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

// Package superblock reads and writes the 96-byte SquashFS superblock,
// the format context for every other codec: it names the compression
// algorithm, the data block size, the feature flags and the start
// offsets of the metadata tables.
package superblock

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/containerd/errdefs"

	"github.com/containerd/go-squashfs/compression"
	"github.com/containerd/go-squashfs/metadata"
)

const (
	// Magic identifies a SquashFS image ("hsqs" little-endian).
	Magic uint32 = 0x73717368

	// Size is the serialized superblock size in bytes.
	Size = 96

	// VersionMajor and VersionMinor identify the format revision this
	// codec produces and accepts.
	VersionMajor uint16 = 4
	VersionMinor uint16 = 0

	// MinBlockLog and MaxBlockLog bound the data block size
	// (4 KiB to 1 MiB).
	MinBlockLog uint16 = 12
	MaxBlockLog uint16 = 20

	// NoTable marks an absent optional table start offset.
	NoTable uint64 = 0xffffffffffffffff
)

// Flags is the superblock feature flag set.
type Flags uint16

const (
	FlagUncompressedInodes Flags = 1 << iota
	FlagUncompressedData
	flagCheck // unused since 3.x, kept for the bit position
	FlagUncompressedFragments
	FlagNoFragments
	FlagAlwaysFragments
	FlagDuplicates
	FlagExportable
	FlagUncompressedXattrs
	FlagNoXattrs
	FlagCompressorOptions
	FlagUncompressedIDs
)

// Has reports whether all bits of f are set.
func (f Flags) Has(bits Flags) bool {
	return f&bits == bits
}

// SuperBlock is the decoded superblock.
type SuperBlock struct {
	InodeCount    uint32
	ModTime       int32
	BlockSize     uint32
	FragmentCount uint32
	Compression   compression.Type
	BlockLog      uint16
	Flags         Flags
	IDCount       uint16
	Major         uint16
	Minor         uint16

	// RootInode addresses the root directory's inode record inside the
	// inode table.
	RootInode metadata.Reference

	BytesUsed           uint64
	IDTableStart        uint64
	XattrIDTableStart   uint64
	InodeTableStart     uint64
	DirectoryTableStart uint64
	FragmentTableStart  uint64
	ExportTableStart    uint64
}

// New returns a superblock with the defaults this codec produces: the
// current format version and a 128 KiB data block size.
func New() *SuperBlock {
	return &SuperBlock{
		BlockSize:          1 << 17,
		BlockLog:           17,
		Compression:        compression.Zlib,
		Major:              VersionMajor,
		Minor:              VersionMinor,
		XattrIDTableStart:  NoTable,
		FragmentTableStart: NoTable,
		ExportTableStart:   NoTable,
	}
}

// DataBlockSize returns the data block size in bytes; it satisfies the
// format context contract of the inode codec.
func (sb *SuperBlock) DataBlockSize() uint32 {
	return sb.BlockSize
}

// Read decodes and validates a superblock from r.
func Read(r io.Reader) (*SuperBlock, error) {
	var b [Size]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated superblock: %w", errdefs.ErrInvalidArgument)
		}
		return nil, err
	}

	le := binary.LittleEndian
	if magic := le.Uint32(b[0:4]); magic != Magic {
		return nil, fmt.Errorf("bad magic 0x%08x: %w", magic, errdefs.ErrInvalidArgument)
	}

	sb := &SuperBlock{
		InodeCount:          le.Uint32(b[4:8]),
		ModTime:             int32(le.Uint32(b[8:12])),
		BlockSize:           le.Uint32(b[12:16]),
		FragmentCount:       le.Uint32(b[16:20]),
		Compression:         compression.Type(le.Uint16(b[20:22])),
		BlockLog:            le.Uint16(b[22:24]),
		Flags:               Flags(le.Uint16(b[24:26])),
		IDCount:             le.Uint16(b[26:28]),
		Major:               le.Uint16(b[28:30]),
		Minor:               le.Uint16(b[30:32]),
		RootInode:           metadata.ParseReference(le.Uint64(b[32:40])),
		BytesUsed:           le.Uint64(b[40:48]),
		IDTableStart:        le.Uint64(b[48:56]),
		XattrIDTableStart:   le.Uint64(b[56:64]),
		InodeTableStart:     le.Uint64(b[64:72]),
		DirectoryTableStart: le.Uint64(b[72:80]),
		FragmentTableStart:  le.Uint64(b[80:88]),
		ExportTableStart:    le.Uint64(b[88:96]),
	}
	if err := sb.Validate(); err != nil {
		return nil, err
	}
	return sb, nil
}

// Validate checks the version and block geometry.
func (sb *SuperBlock) Validate() error {
	if sb.Major != VersionMajor || sb.Minor != VersionMinor {
		return fmt.Errorf("format version %d.%d, want %d.%d: %w",
			sb.Major, sb.Minor, VersionMajor, VersionMinor, errdefs.ErrInvalidArgument)
	}
	if sb.BlockLog < MinBlockLog || sb.BlockLog > MaxBlockLog {
		return fmt.Errorf("block log %d outside %d..%d: %w",
			sb.BlockLog, MinBlockLog, MaxBlockLog, errdefs.ErrInvalidArgument)
	}
	if sb.BlockSize != 1<<sb.BlockLog {
		return fmt.Errorf("block size %d does not match block log %d: %w",
			sb.BlockSize, sb.BlockLog, errdefs.ErrInvalidArgument)
	}
	return nil
}

// WriteTo serializes the superblock. It implements io.WriterTo.
func (sb *SuperBlock) WriteTo(w io.Writer) (int64, error) {
	if err := sb.Validate(); err != nil {
		return 0, err
	}

	var b [Size]byte
	le := binary.LittleEndian
	le.PutUint32(b[0:4], Magic)
	le.PutUint32(b[4:8], sb.InodeCount)
	le.PutUint32(b[8:12], uint32(sb.ModTime))
	le.PutUint32(b[12:16], sb.BlockSize)
	le.PutUint32(b[16:20], sb.FragmentCount)
	le.PutUint16(b[20:22], uint16(sb.Compression))
	le.PutUint16(b[22:24], sb.BlockLog)
	le.PutUint16(b[24:26], uint16(sb.Flags))
	le.PutUint16(b[26:28], sb.IDCount)
	le.PutUint16(b[28:30], sb.Major)
	le.PutUint16(b[30:32], sb.Minor)
	le.PutUint64(b[32:40], sb.RootInode.Raw())
	le.PutUint64(b[40:48], sb.BytesUsed)
	le.PutUint64(b[48:56], sb.IDTableStart)
	le.PutUint64(b[56:64], sb.XattrIDTableStart)
	le.PutUint64(b[64:72], sb.InodeTableStart)
	le.PutUint64(b[72:80], sb.DirectoryTableStart)
	le.PutUint64(b[80:88], sb.FragmentTableStart)
	le.PutUint64(b[88:96], sb.ExportTableStart)

	n, err := w.Write(b[:])
	return int64(n), err
}

// Codec returns the compression codec named by the superblock.
func (sb *SuperBlock) Codec() (compression.Codec, error) {
	return compression.NewCodec(sb.Compression)
}
