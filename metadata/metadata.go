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

// Package metadata implements the SquashFS metadata block codec.
//
// Inode and directory records are batched into blocks of at most
// BlockSize uncompressed bytes. Each block is compressed independently
// and stored as a 2-byte little-endian length followed by the payload;
// the high bit of the length marks a block stored uncompressed because
// compression would not have shrunk it. Records are addressed by a
// Reference, the pair of the block's byte offset within the metadata
// region and the record's byte offset inside the uncompressed block.
package metadata

import (
	"fmt"

	"github.com/containerd/errdefs"
)

const (
	// BlockSize is the maximum uncompressed payload of a metadata block.
	BlockSize = 8192

	// headerSize is the stored block length field preceding each block.
	headerSize = 2

	// uncompressedFlag marks a block stored without compression in the
	// on-disk length field.
	uncompressedFlag = 0x8000
)

// ErrCorruptMetadata indicates a reference pointing outside the
// metadata region, a stored block that fails to decompress, or a block
// length exceeding the format maximum. Images raising it are invalid
// and nothing at this layer retries.
var ErrCorruptMetadata = fmt.Errorf("corrupt metadata: %w", errdefs.ErrDataLoss)

// Reference locates a record inside the metadata block stream. It is a
// plain value: produced once when the record is written, then copied
// freely into directory entries and the superblock root pointer.
type Reference struct {
	// Block is the byte offset of the record's block within the
	// metadata region (not a file offset).
	Block uint64

	// Offset is the record's byte offset inside the uncompressed block.
	Offset uint16
}

// Raw returns the packed 64-bit form used on disk by directory entries
// and the superblock root inode pointer.
func (r Reference) Raw() uint64 {
	return r.Block<<16 | uint64(r.Offset)
}

func (r Reference) String() string {
	return fmt.Sprintf("%d:%d", r.Block, r.Offset)
}

// ParseReference unpacks the 64-bit on-disk reference form.
func ParseReference(raw uint64) Reference {
	return Reference{Block: raw >> 16, Offset: uint16(raw & 0xffff)}
}
