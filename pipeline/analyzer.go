package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/cwbudde/wavescope/params"
	"github.com/cwbudde/wavescope/ring"
	"github.com/cwbudde/wavescope/schema"
	"github.com/cwbudde/wavescope/transform"
)

const (
	// MaxAnalysisWindow bounds the per-frame workload regardless of the
	// configured window length.
	MaxAnalysisWindow = 1 << 22

	minAnalysisWindow   = 16
	defaultStatusBuffer = 16
)

// Analyzer is the analysis worker. Each frame it snapshots the store,
// pulls the newest analysis window from the ring, runs the selected
// transform and publishes the result. A missing plugin or a transform
// failure produces a status message and the loop carries on; results are
// latest-wins, so an unconsumed frame is replaced rather than queued.
type Analyzer struct {
	registry *transform.Registry
	store    *params.Store
	buf      *ring.Buffer
	logger   *slog.Logger

	statusCap int
	results   chan *transform.Result
	status    chan string

	state  atomic.Int32
	frames atomic.Uint64
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger sets the logger used by the worker loop.
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithStatusBuffer sets the capacity of the Status channel.
func WithStatusBuffer(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.statusCap = n
		}
	}
}

// NewAnalyzer returns an idle worker reading windows from buf and
// resolving transforms through registry.
func NewAnalyzer(registry *transform.Registry, store *params.Store, buf *ring.Buffer, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		registry:  registry,
		store:     store,
		buf:       buf,
		logger:    slog.Default(),
		statusCap: defaultStatusBuffer,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.results = make(chan *transform.Result, 1)
	a.status = make(chan string, a.statusCap)
	a.state.Store(int32(StateIdle))
	return a
}

// State reports the worker lifecycle state.
func (a *Analyzer) State() State {
	return State(a.state.Load())
}

// Results returns the frame stream. Only the most recent unconsumed
// result is retained.
func (a *Analyzer) Results() <-chan *transform.Result {
	return a.results
}

// Status returns the stream of worker status messages. Messages are
// dropped when the channel is full.
func (a *Analyzer) Status() <-chan string {
	return a.status
}

// Frames reports how many results have been published so far.
func (a *Analyzer) Frames() uint64 {
	return a.frames.Load()
}

// Run drives the analysis loop until ctx is canceled.
func (a *Analyzer) Run(ctx context.Context) error {
	a.state.Store(int32(StateRunning))
	a.logger.Info("analysis worker started")
	defer func() {
		a.state.Store(int32(StateStopped))
		a.logger.Info("analysis worker stopped")
	}()
	for {
		if err := ctx.Err(); err != nil {
			a.state.Store(int32(StateStopping))
			return err
		}

		snap := a.store.Snapshot()
		gl := snap.Globals

		if entry, ok := a.registry.Get(snap.TransformID); !ok {
			a.note(fmt.Sprintf("transform plugin not found: %s", snap.TransformID))
		} else {
			window := analysisWindow(gl.WindowSeconds, gl.SampleRate)
			samples := a.buf.Last(window)
			res, err := runTransform(entry.Transform, samples, gl.SampleRate, snap.TransformParams)
			if err != nil {
				a.note(fmt.Sprintf("transform error: %v", err))
			} else {
				a.publish(res)
				a.frames.Add(1)
			}
		}

		if !sleepCtx(ctx, frameInterval(gl.FrameRate)) {
			a.state.Store(int32(StateStopping))
			return ctx.Err()
		}
	}
}

// publish replaces any unconsumed result with res. The worker is the only
// sender, so the swap loop terminates after at most one eviction.
func (a *Analyzer) publish(res *transform.Result) {
	for {
		select {
		case a.results <- res:
			return
		default:
			select {
			case <-a.results:
			default:
			}
		}
	}
}

// note offers a status message without blocking the loop.
func (a *Analyzer) note(msg string) {
	select {
	case a.status <- msg:
	default:
	}
}

// runTransform invokes tr and converts a panic into an error so one bad
// frame cannot take down the worker.
func runTransform(tr transform.Transform, samples []float32, rate float64, p schema.Values) (res *transform.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tr.Transform(samples, rate, p)
}

// analysisWindow converts the configured window length to a sample count
// clamped to [minAnalysisWindow, MaxAnalysisWindow].
func analysisWindow(seconds, rate float64) int {
	v := seconds * rate
	if math.IsNaN(v) || v < minAnalysisWindow {
		return minAnalysisWindow
	}
	if v > MaxAnalysisWindow {
		return MaxAnalysisWindow
	}
	return int(v)
}

// frameInterval is the delay between frames, flooring the rate at 1 fps.
func frameInterval(fps float64) time.Duration {
	if math.IsNaN(fps) || fps < 1 {
		fps = 1
	}
	return time.Duration(float64(time.Second) / fps)
}
