// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

// ChunkSize is the fixed payload length of one image chunk. It is the only
// size the firmware has been observed to accept. For the supported panel
// resolution the packed frame divides exactly (721920 / 47 = 15360 chunks).
const ChunkSize = 47

// chunk is one addressable slice of a packed frame. The payload aliases the
// packed frame buffer; it is only copied when confirmed into the cache.
type chunk struct {
	payload []byte
	offset  uint32
	index   int
}

// chunkCount returns the number of chunks needed to cover n packed bytes.
func chunkCount(n int) int {
	return (n + ChunkSize - 1) / ChunkSize
}

// chunkFrame partitions a packed frame into consecutive ChunkSize-byte
// chunks covering the whole buffer with no gaps or overlap. Chunk offsets are
// positional (index * ChunkSize) and independent of a trailing short chunk,
// so addressing is stable across frames of the same resolution.
func chunkFrame(packed []byte) []chunk {
	chunks := make([]chunk, 0, chunkCount(len(packed)))

	for start := 0; start < len(packed); start += ChunkSize {
		end := start + ChunkSize
		if end > len(packed) {
			end = len(packed)
		}
		chunks = append(chunks, chunk{
			index:   start / ChunkSize,
			offset:  uint32(start), //nolint:gosec // frame offsets fit in 32 bits
			payload: packed[start:end],
		})
	}

	return chunks
}
