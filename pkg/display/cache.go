// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

import "bytes"

// frameCache tracks, per chunk index, the payload bytes last confirmed as
// written to the display's back buffer. The back buffer cannot be read back,
// so the cache is the only record of what the device holds.
//
// Invariant: the cache is either empty (device state unknown) or it exactly
// mirrors the back buffer. A violated invariant produces corrupted partial
// updates with no local way to detect it; the only recovery is invalidate(),
// which forces a full resend on the next transfer.
type frameCache struct {
	entries    map[int][]byte
	generation uint64
}

func newFrameCache() *frameCache {
	return &frameCache{entries: make(map[int][]byte)}
}

// diff returns the indices of chunks whose payload differs byte-for-byte
// from the last confirmed write, in ascending chunk order. An empty cache
// returns every index: with the device state unknown, all chunks must be
// sent.
func (c *frameCache) diff(chunks []chunk) []int {
	if len(c.entries) == 0 {
		all := make([]int, len(chunks))
		for i := range chunks {
			all[i] = chunks[i].index
		}
		return all
	}

	var changed []int
	for i := range chunks {
		if !bytes.Equal(c.entries[chunks[i].index], chunks[i].payload) {
			changed = append(changed, chunks[i].index)
		}
	}
	return changed
}

// confirm records a chunk as written and acknowledged by the device. Called
// strictly in lockstep with acknowledged writes, never ahead of confirmed
// I/O, so the invariant holds even when a transfer fails partway.
func (c *frameCache) confirm(ch chunk) {
	c.entries[ch.index] = bytes.Clone(ch.payload)
}

// invalidate clears the cache, marking the device state unknown.
func (c *frameCache) invalidate() {
	c.entries = make(map[int][]byte)
	c.generation++
}

func (c *frameCache) size() int {
	return len(c.entries)
}
