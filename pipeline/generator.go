package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwbudde/wavescope/params"
	"github.com/cwbudde/wavescope/ring"
	"github.com/cwbudde/wavescope/signal"
)

const (
	// pausedPoll is how often a paused generator re-reads the globals.
	pausedPoll = 50 * time.Millisecond

	// minChunkInterval floors the tick so tiny chunks at high rates do
	// not turn the loop into a busy spin.
	minChunkInterval = time.Millisecond

	// historySeconds is the wall-clock span the ring is sized to hold.
	historySeconds = 60
)

// Generator owns the signal engine and feeds the shared ring. Each tick it
// pulls the current globals from the store, pushes them into the engine,
// generates one chunk, appends it to the ring and offers it on Chunks.
// The channel send never blocks; a slow consumer misses chunks but the
// ring still sees every sample.
type Generator struct {
	engine *signal.Engine
	buf    *ring.Buffer
	store  *params.Store
	logger *slog.Logger

	chunkCap int
	chunks   chan Chunk

	generated atomic.Uint64
	dropped   atomic.Uint64

	lastRate float64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithChunkBuffer sets the capacity of the Chunks channel.
func WithChunkBuffer(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.chunkCap = n
		}
	}
}

// WithGeneratorLogger sets the logger used by the generator loop.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator returns a generator driving engine into buf, configured by
// the globals held in store.
func NewGenerator(engine *signal.Engine, buf *ring.Buffer, store *params.Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		engine:   engine,
		buf:      buf,
		store:    store,
		logger:   slog.Default(),
		chunkCap: 8,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.chunks = make(chan Chunk, g.chunkCap)
	return g
}

// Chunks returns the stream of generated chunks. Chunks are dropped, not
// queued, when the receiver falls behind.
func (g *Generator) Chunks() <-chan Chunk {
	return g.chunks
}

// Generated reports how many chunks have been produced so far.
func (g *Generator) Generated() uint64 {
	return g.generated.Load()
}

// Dropped reports how many chunks were discarded because the Chunks
// channel was full.
func (g *Generator) Dropped() uint64 {
	return g.dropped.Load()
}

// Run drives the generation loop until ctx is canceled.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("generator started")
	defer g.logger.Info("generator stopped")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		gl := g.store.Globals()
		g.engine.SetConfig(signal.Config{
			SampleRate: gl.SampleRate,
			ChunkLen:   gl.ChunkLen,
			Clip:       gl.AmplitudeClip,
		})
		g.engine.SetPaused(gl.Paused)

		if gl.Paused {
			if !sleepCtx(ctx, pausedPoll) {
				return ctx.Err()
			}
			continue
		}

		g.resizeHistory(gl.SampleRate)

		samples, start := g.engine.GenerateChunk(0)
		if len(samples) > 0 {
			g.buf.Append(samples)
			g.generated.Add(1)
			select {
			case g.chunks <- Chunk{Samples: samples, StartTime: start, SampleRate: gl.SampleRate}:
			default:
				g.dropped.Add(1)
			}
		}

		if !sleepCtx(ctx, chunkInterval(len(samples), gl.SampleRate)) {
			return ctx.Err()
		}
	}
}

// resizeHistory rebuilds the ring when the sample rate changes so the
// stored history keeps spanning the same wall-clock window. Old samples
// are discarded; they no longer map onto the new time base.
func (g *Generator) resizeHistory(rate float64) {
	if rate <= 0 || rate == g.lastRate {
		return
	}
	capacity := int(rate) * historySeconds
	if capacity <= 0 {
		return
	}
	if err := g.buf.Resize(capacity); err != nil {
		g.logger.Warn("ring resize failed", "capacity", capacity, "err", err)
		return
	}
	g.lastRate = rate
}

// chunkInterval is the nominal duration of a chunk, floored at
// minChunkInterval.
func chunkInterval(n int, rate float64) time.Duration {
	if n <= 0 || rate <= 0 {
		return minChunkInterval
	}
	d := time.Duration(float64(time.Second) * float64(n) / rate)
	if d < minChunkInterval {
		d = minChunkInterval
	}
	return d
}
