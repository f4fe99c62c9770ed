// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestChunkFramePanelResolution(t *testing.T) {
	t.Parallel()

	packed := make([]byte, PackedFrameSize)
	chunks := chunkFrame(packed)

	// 721920 / 47 divides exactly: no short final chunk for the real panel.
	require.Len(t, chunks, 15360)
	for i, ch := range chunks {
		require.Equal(t, i, ch.index)
		require.Equal(t, uint32(i*ChunkSize), ch.offset) //nolint:gosec // test indices fit
		require.Len(t, ch.payload, ChunkSize)
	}
}

func TestChunkFrameShortFinalChunk(t *testing.T) {
	t.Parallel()

	packed := make([]byte, 100)
	chunks := chunkFrame(packed)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].payload, ChunkSize)
	assert.Len(t, chunks[1].payload, ChunkSize)
	assert.Len(t, chunks[2].payload, 100%ChunkSize)

	// Offsets stay positional even with a short final chunk.
	assert.Equal(t, uint32(94), chunks[2].offset)
}

func TestChunkFrameEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, chunkFrame(nil))
	assert.Empty(t, chunkFrame([]byte{}))
}

// TestPropertyChunkFrameCoversBuffer verifies chunks cover any buffer with
// no gaps and no overlap, in order.
func TestPropertyChunkFrameCoversBuffer(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		packed := rapid.SliceOfN(rapid.Byte(), 0, 5000).Draw(t, "packed")

		chunks := chunkFrame(packed)

		var joined []byte
		for i, ch := range chunks {
			if ch.index != i {
				t.Fatalf("chunk %d has index %d", i, ch.index)
			}
			if ch.offset != uint32(i*ChunkSize) {
				t.Fatalf("chunk %d has offset %d, want %d", i, ch.offset, i*ChunkSize)
			}
			if i < len(chunks)-1 && len(ch.payload) != ChunkSize {
				t.Fatalf("non-final chunk %d has %d bytes", i, len(ch.payload))
			}
			joined = append(joined, ch.payload...)
		}

		if string(joined) != string(packed) {
			t.Fatalf("chunks do not reassemble into the input buffer")
		}
	})
}
