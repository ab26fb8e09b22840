// Package input adapts external sample streams into the chunk flow of the
// workbench, so recorded or device-sourced audio can drive the same ring
// and analysis path as the signal generator.
package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cwbudde/wavescope/pipeline"
)

// StreamSource reads little-endian int16 frames from an io.Reader and
// frames them into complete chunks. Start times come from its own sample
// counter, not from any wall clock. A trailing partial chunk, including a
// dangling odd byte, is discarded when the stream ends.
type StreamSource struct {
	r          io.Reader
	sampleRate float64
	chunkLen   int
	scale      float64
	logger     *slog.Logger

	chunkCap int
	chunks   chan pipeline.Chunk
	pos      int64
}

// Option configures a StreamSource.
type Option func(*StreamSource)

// WithSampleRate sets the rate stamped on published chunks.
func WithSampleRate(fs float64) Option {
	return func(s *StreamSource) {
		if fs > 0 {
			s.sampleRate = fs
		}
	}
}

// WithChunkLen sets the chunk length in samples.
func WithChunkLen(n int) Option {
	return func(s *StreamSource) {
		if n > 0 {
			s.chunkLen = n
		}
	}
}

// WithScale sets the factor mapping raw int16 values to float32 samples.
// The default maps the full int16 range onto [-1, 1).
func WithScale(scale float64) Option {
	return func(s *StreamSource) {
		if scale > 0 {
			s.scale = scale
		}
	}
}

// WithLogger sets the logger used by the read loop.
func WithLogger(logger *slog.Logger) Option {
	return func(s *StreamSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChunkBuffer sets the capacity of the Chunks channel.
func WithChunkBuffer(n int) Option {
	return func(s *StreamSource) {
		if n > 0 {
			s.chunkCap = n
		}
	}
}

// NewStreamSource returns a source reading from r.
func NewStreamSource(r io.Reader, opts ...Option) *StreamSource {
	s := &StreamSource{
		r:          r,
		sampleRate: 2000,
		chunkLen:   256,
		scale:      1.0 / 32768,
		logger:     slog.Default(),
		chunkCap:   8,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.chunks = make(chan pipeline.Chunk, s.chunkCap)
	return s
}

// Chunks returns the stream of framed chunks. The channel is closed when
// Run returns.
func (s *StreamSource) Chunks() <-chan pipeline.Chunk {
	return s.chunks
}

// Run reads the stream until it ends, a read fails or ctx is canceled.
// io.EOF ends the run silently. Publishing blocks, so a slow consumer
// backpressures the reader instead of dropping samples.
func (s *StreamSource) Run(ctx context.Context) error {
	defer close(s.chunks)

	frameBytes := 2 * s.chunkLen
	buf := make([]byte, frameBytes)
	fill := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.r.Read(buf[fill:])
		fill += n
		if fill == frameBytes {
			if !s.publish(ctx, buf) {
				return ctx.Err()
			}
			fill = 0
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("input stream ended", "samples", s.pos)
				return nil
			}
			return fmt.Errorf("input: read stream: %w", err)
		}
	}
}

func (s *StreamSource) publish(ctx context.Context, raw []byte) bool {
	samples := make([]float32, s.chunkLen)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(float64(v) * s.scale)
	}
	c := pipeline.Chunk{
		Samples:    samples,
		StartTime:  float64(s.pos) / s.sampleRate,
		SampleRate: s.sampleRate,
	}
	s.pos += int64(len(samples))
	select {
	case s.chunks <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
