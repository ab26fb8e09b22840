// Package ring provides a fixed-capacity ring buffer holding the most recent
// samples of a single-channel float32 stream. Writers append chunks, readers
// pull the trailing window; once full, new samples overwrite the oldest.
package ring

import (
	"fmt"
	"sync"
)

// Buffer is a bounded ring of float32 samples safe for concurrent use.
// One mutex guards every operation, so appends and reads interleave without
// tearing a chunk.
type Buffer struct {
	mu     sync.Mutex
	buf    []float32
	write  int // next write position
	filled int // number of valid samples, <= cap
}

// New returns an empty Buffer with the given capacity in samples.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring: capacity must be > 0: %d", capacity)
	}
	return &Buffer{buf: make([]float32, capacity)}, nil
}

// Cap returns the current capacity in samples.
func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Resize replaces the storage with an empty buffer of the given capacity.
// Stored history is discarded unless the capacity is unchanged.
func (b *Buffer) Resize(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("ring: capacity must be > 0: %d", capacity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if capacity == len(b.buf) {
		return nil
	}
	b.buf = make([]float32, capacity)
	b.write = 0
	b.filled = 0
	return nil
}

// Len returns the number of samples currently stored.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filled
}

// Clear discards all stored samples. Capacity is unchanged.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write = 0
	b.filled = 0
}

// Append stores samples, overwriting the oldest data once the buffer is full.
// Appending a slice at least as long as the capacity replaces the entire
// contents with the trailing capacity samples.
func (b *Buffer) Append(samples []float32) {
	if len(samples) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c := len(b.buf)
	if len(samples) >= c {
		copy(b.buf, samples[len(samples)-c:])
		b.write = 0
		b.filled = c
		return
	}

	n := copy(b.buf[b.write:], samples)
	copy(b.buf, samples[n:])
	b.write = (b.write + len(samples)) % c
	b.filled += len(samples)
	if b.filled > c {
		b.filled = c
	}
}

// Last returns a copy of the most recent n samples in chronological order.
// If fewer than n samples are stored, all stored samples are returned.
// n <= 0 or an empty buffer yields an empty slice.
func (b *Buffer) Last(n int) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.filled {
		n = b.filled
	}
	if n <= 0 {
		return []float32{}
	}

	out := make([]float32, n)
	if b.filled < len(b.buf) {
		// Not yet wrapped: valid data is the prefix [0, filled).
		copy(out, b.buf[b.filled-n:b.filled])
		return out
	}

	start := b.write - n
	if start < 0 {
		start += len(b.buf)
	}
	m := copy(out, b.buf[start:])
	copy(out[m:], b.buf[:b.write])
	return out
}
