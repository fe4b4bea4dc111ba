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

// Package compression provides the block compressors used for SquashFS
// metadata and data blocks. Blocks are compressed independently, so the
// interface works on whole byte slices rather than streams.
package compression

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// Type is the on-disk compression identifier stored in the superblock.
type Type uint16

const (
	Zlib Type = iota + 1
	LZMA
	LZO
	XZ
	LZ4
	Zstd
)

func (t Type) String() string {
	switch t {
	case Zlib:
		return "zlib"
	case LZMA:
		return "lzma"
	case LZO:
		return "lzo"
	case XZ:
		return "xz"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(t))
	}
}

// Codec compresses and decompresses individual blocks.
//
// Implementations must be safe for concurrent use by multiple
// goroutines; readers decompressing different blocks in parallel share
// a single Codec instance.
type Codec interface {
	// Type returns the on-disk identifier of the algorithm.
	Type() Type

	// Compress returns the compressed form of src. The result may be
	// larger than src; callers decide whether storing raw is cheaper.
	Compress(src []byte) ([]byte, error)

	// Decompress inflates src. maxSize bounds the decompressed output;
	// a block inflating beyond it is an error.
	Decompress(src []byte, maxSize int) ([]byte, error)
}

// NewCodec returns a Codec for the given on-disk compression id.
func NewCodec(t Type) (Codec, error) {
	switch t {
	case Zlib:
		return newZlibCodec(), nil
	case Zstd:
		return newZstdCodec()
	case LZMA, LZO, XZ, LZ4:
		return nil, fmt.Errorf("%s compression: %w", t, errdefs.ErrNotImplemented)
	default:
		return nil, fmt.Errorf("compression id %d: %w", uint16(t), errdefs.ErrInvalidArgument)
	}
}
