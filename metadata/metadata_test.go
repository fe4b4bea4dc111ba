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

package metadata

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/containerd/go-squashfs/compression"
)

func testCodec(t *testing.T) compression.Codec {
	t.Helper()
	codec, err := compression.NewCodec(compression.Zlib)
	require.NoError(t, err)
	return codec
}

func TestReferencePacking(t *testing.T) {
	for _, tc := range []struct {
		ref Reference
		raw uint64
	}{
		{Reference{}, 0},
		{Reference{Block: 0, Offset: 96}, 96},
		{Reference{Block: 8194, Offset: 0}, 8194 << 16},
		{Reference{Block: 1 << 40, Offset: 0xffff}, 1<<56 | 0xffff},
	} {
		assert.Equal(t, tc.raw, tc.ref.Raw())
		assert.Equal(t, tc.ref, ParseReference(tc.raw))
	}
}

func TestWriterFlushesEarly(t *testing.T) {
	// 9000 bytes of mixed small records: the block boundary forces a
	// flush partway through, never a record split.
	var out bytes.Buffer
	w := NewWriter(&out, testCodec(t))

	rng := rand.New(rand.NewSource(1))
	written := 0
	var refs []Reference
	var records [][]byte
	for written < 9000 {
		record := make([]byte, 20+rng.Intn(200))
		rng.Read(record)
		ref, err := w.Append(record)
		require.NoError(t, err)
		require.LessOrEqual(t, int(ref.Offset)+len(record), BlockSize,
			"record must not span the flush boundary")
		refs = append(refs, ref)
		records = append(records, record)
		written += len(record)
	}
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, w.BlockCount())
	assert.Equal(t, uint64(out.Len()), w.Position())

	// Every record reads back from its reference.
	r := NewReader(bytes.NewReader(out.Bytes()), 0, int64(out.Len()), testCodec(t))
	for i, ref := range refs {
		require.NoError(t, r.Seek(ref))
		got := make([]byte, len(records[i]))
		_, err := io.ReadFull(r, got)
		require.NoError(t, err)
		require.Equal(t, records[i], got)
	}
}

func TestWriterRejectsOversizedRecord(t *testing.T) {
	w := NewWriter(io.Discard, testCodec(t))
	_, err := w.Append(make([]byte, BlockSize+1))
	require.True(t, errdefs.IsInvalidArgument(err))

	// Exactly one block is fine.
	_, err = w.Append(make([]byte, BlockSize))
	require.NoError(t, err)
}

func TestWriterFlushEmpty(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, testCodec(t))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	assert.Zero(t, out.Len())
	assert.Zero(t, w.BlockCount())
}

func TestReaderChainsBlocks(t *testing.T) {
	// Two 4096-byte records fill the first block exactly; a logical read
	// beginning in it continues into the next block.
	var out bytes.Buffer
	w := NewWriter(&out, testCodec(t))

	first := bytes.Repeat([]byte{0xa1}, 4096)
	second := bytes.Repeat([]byte{0xb2}, 4096)
	third := bytes.Repeat([]byte{0xc3}, 100)

	_, err := w.Append(first)
	require.NoError(t, err)
	secondRef, err := w.Append(second)
	require.NoError(t, err)
	thirdRef, err := w.Append(third)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	require.Equal(t, 2, w.BlockCount())
	require.NotEqual(t, secondRef.Block, thirdRef.Block)

	r := NewReader(bytes.NewReader(out.Bytes()), 0, int64(out.Len()), testCodec(t))
	require.NoError(t, r.Seek(secondRef))

	got := make([]byte, len(second)+len(third))
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, second, got[:len(second)])
	assert.Equal(t, third, got[len(second):])

	// The region ends after the last block.
	_, err = r.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterStoresIncompressibleRaw(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, testCodec(t))

	record := make([]byte, BlockSize)
	rand.New(rand.NewSource(99)).Read(record)
	ref, err := w.Append(record)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	// Random bytes do not shrink, so the block is stored raw: length
	// header plus the full payload, with the uncompressed bit set.
	require.Equal(t, headerSize+BlockSize, out.Len())
	stored := binary.LittleEndian.Uint16(out.Bytes()[:headerSize])
	assert.NotZero(t, stored&uncompressedFlag)
	assert.Equal(t, BlockSize, int(stored&^uncompressedFlag))

	r := NewReader(bytes.NewReader(out.Bytes()), 0, int64(out.Len()), testCodec(t))
	require.NoError(t, r.Seek(ref))
	got := make([]byte, BlockSize)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestReaderAtNonZeroBase(t *testing.T) {
	var out bytes.Buffer
	out.WriteString("prefix bytes before the region")
	base := int64(out.Len())

	w := NewWriter(&out, testCodec(t))
	ref, err := w.Append([]byte("hello metadata"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	r := NewReader(bytes.NewReader(out.Bytes()), base, int64(out.Len())-base, testCodec(t))
	require.NoError(t, r.Seek(ref))
	got := make([]byte, 14)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, "hello metadata", string(got))
}

func TestReaderCorruptReference(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, testCodec(t))
	_, err := w.Append([]byte("short"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	r := NewReader(bytes.NewReader(out.Bytes()), 0, int64(out.Len()), testCodec(t))

	// Block offset outside the region.
	err = r.Seek(Reference{Block: uint64(out.Len()) + 100})
	require.ErrorIs(t, err, ErrCorruptMetadata)
	require.True(t, errdefs.IsDataLoss(err))

	// Offset beyond the uncompressed payload.
	err = r.Seek(Reference{Block: 0, Offset: 5000})
	require.ErrorIs(t, err, ErrCorruptMetadata)
}

func TestReaderCorruptBlock(t *testing.T) {
	codec := testCodec(t)

	// Stored length larger than the format maximum.
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, uint16(BlockSize+1))
	b.Write(make([]byte, BlockSize+1))
	r := NewReader(bytes.NewReader(b.Bytes()), 0, int64(b.Len()), codec)
	require.ErrorIs(t, r.Seek(Reference{}), ErrCorruptMetadata)

	// Zero stored length.
	r = NewReader(bytes.NewReader([]byte{0, 0}), 0, 2, codec)
	require.ErrorIs(t, r.Seek(Reference{}), ErrCorruptMetadata)

	// Payload that is not a valid compressed stream.
	b.Reset()
	binary.Write(&b, binary.LittleEndian, uint16(4))
	b.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	r = NewReader(bytes.NewReader(b.Bytes()), 0, int64(b.Len()), codec)
	err := r.Seek(Reference{})
	require.ErrorIs(t, err, ErrCorruptMetadata)

	// Header claiming more payload than the region holds.
	b.Reset()
	binary.Write(&b, binary.LittleEndian, uint16(100))
	b.Write(make([]byte, 10))
	r = NewReader(bytes.NewReader(b.Bytes()), 0, int64(b.Len()), codec)
	require.ErrorIs(t, r.Seek(Reference{}), ErrCorruptMetadata)
}

func TestReaderUnknownRegionSize(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out, testCodec(t))
	ref, err := w.Append([]byte("unbounded region"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	r := NewReader(bytes.NewReader(out.Bytes()), 0, -1, testCodec(t))
	require.NoError(t, r.Seek(ref))
	got := make([]byte, 16)
	_, err = io.ReadFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, "unbounded region", string(got))
}
