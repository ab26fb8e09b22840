package signal

import (
	"sync"

	"github.com/cwbudde/wavescope/schema"
)

// MaxChunk bounds the number of samples a single GenerateChunk call may
// produce.
const MaxChunk = 131072

// Config holds the generation globals of an [Engine].
type Config struct {
	// SampleRate is the logical sample rate in Hz.
	SampleRate float64
	// ChunkLen is the chunk length in samples used when GenerateChunk is
	// called with n <= 0.
	ChunkLen int
	// Clip limits the summed output to [-Clip, +Clip] when positive. Zero
	// disables clipping.
	Clip float64
}

// ComponentState is a snapshot of one component slot, suitable for saving
// and restoring. Name carries the display name for UI layers;
// ReplaceComponents ignores it.
type ComponentState struct {
	Kind    string
	Name    string
	Enabled bool
	Params  schema.Values
}

// Engine sums the output of an ordered component list on a logical sample
// clock. Configuration methods are safe for concurrent use; GenerateChunk
// reuses internal scratch storage and is meant to be driven by a single
// producer goroutine.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	paused bool
	comps  []Component

	clock   *Clock
	scratch []float32
}

// Option configures an [Engine] at construction time.
type Option func(*Engine)

// WithSampleRate sets the logical sample rate in Hz. Non-positive rates
// are ignored.
func WithSampleRate(fs float64) Option {
	return func(e *Engine) {
		if fs > 0 {
			e.cfg.SampleRate = fs
		}
	}
}

// WithChunkLen sets the default chunk length, clamped to [1, MaxChunk].
func WithChunkLen(n int) Option {
	return func(e *Engine) {
		e.cfg.ChunkLen = clampChunkLen(n)
	}
}

// WithClip enables output clipping at the given level. Non-positive levels
// disable clipping.
func WithClip(level float64) Option {
	return func(e *Engine) {
		if level < 0 {
			level = 0
		}
		e.cfg.Clip = level
	}
}

// WithPaused sets the initial transport state.
func WithPaused(paused bool) Option {
	return func(e *Engine) {
		e.paused = paused
	}
}

// NewEngine returns an engine with the default configuration: 2 kHz sample
// rate, 256-sample chunks, clipping disabled and the transport paused.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cfg:    Config{SampleRate: 2000, ChunkLen: 256},
		paused: true,
		clock:  NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func clampChunkLen(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxChunk {
		return MaxChunk
	}
	return n
}

// Config returns the current generation globals.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig applies every generation global in one step, so a concurrent
// Config call never observes a half-applied pair. Normalization matches
// the individual setters: non-positive rates keep the previous value, the
// chunk length clamps to [1, MaxChunk] and negative clip levels disable
// clipping.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.SampleRate > 0 {
		e.cfg.SampleRate = cfg.SampleRate
	}
	e.cfg.ChunkLen = clampChunkLen(cfg.ChunkLen)
	if cfg.Clip < 0 {
		cfg.Clip = 0
	}
	e.cfg.Clip = cfg.Clip
}

// SetSampleRate changes the logical sample rate. Non-positive rates are
// ignored. The sample clock keeps its position, so the start time of the
// next chunk is reinterpreted at the new rate.
func (e *Engine) SetSampleRate(fs float64) {
	if fs <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.SampleRate = fs
}

// SetChunkLen changes the default chunk length, clamped to [1, MaxChunk].
func (e *Engine) SetChunkLen(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.ChunkLen = clampChunkLen(n)
}

// SetClip changes the clipping level. Non-positive levels disable clipping.
func (e *Engine) SetClip(level float64) {
	if level < 0 {
		level = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.Clip = level
}

// SetPaused pauses or resumes generation. While paused GenerateChunk
// returns no samples and the clock holds its position.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

// Paused reports the transport state.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Reset rewinds the logical clock to zero.
func (e *Engine) Reset() {
	e.clock.Reset()
}

// Now returns the clock position in seconds at the current sample rate.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	fs := e.cfg.SampleRate
	e.mu.Unlock()
	return float64(e.clock.SampleIndex()) / fs
}

// AddComponent appends a component of the given kind and returns its slot
// index. Missing parameters take the kind's schema defaults.
func (e *Engine) AddComponent(kind string, params schema.Values, enabled bool) (int, error) {
	c, err := NewComponent(kind, params, enabled)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comps = append(e.comps, c)
	return len(e.comps) - 1, nil
}

// RemoveComponent deletes the slot at index i. Out-of-range indices are
// ignored.
func (e *Engine) RemoveComponent(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.comps) {
		return
	}
	e.comps = append(e.comps[:i], e.comps[i+1:]...)
}

// Component returns the component at index i.
func (e *Engine) Component(i int) (Component, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.comps) {
		return nil, false
	}
	return e.comps[i], true
}

// Components returns the current slots in order.
func (e *Engine) Components() []Component {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Component, len(e.comps))
	copy(out, e.comps)
	return out
}

// SetComponentEnabled toggles the slot at index i. Out-of-range indices
// are ignored.
func (e *Engine) SetComponentEnabled(i int, enabled bool) {
	if c, ok := e.Component(i); ok {
		c.SetEnabled(enabled)
	}
}

// UpdateComponentParams merges partial into the parameters of the slot at
// index i. Out-of-range indices are ignored.
func (e *Engine) UpdateComponentParams(i int, partial schema.Values) {
	if c, ok := e.Component(i); ok {
		c.UpdateParams(partial)
	}
}

// SnapshotComponents captures the kind, enabled flag and parameters of
// every slot in order.
func (e *Engine) SnapshotComponents() []ComponentState {
	comps := e.Components()
	states := make([]ComponentState, len(comps))
	for i, c := range comps {
		states[i] = ComponentState{Kind: c.Kind(), Name: c.Name(), Enabled: c.Enabled(), Params: c.Params()}
	}
	return states
}

// ReplaceComponents swaps the slot list for one built from states.
// Unknown kinds are skipped, so configurations saved by newer builds still
// load; missing parameter keys fall back to the kind's schema defaults.
func (e *Engine) ReplaceComponents(states []ComponentState) {
	comps := make([]Component, 0, len(states))
	for _, st := range states {
		c, err := NewComponent(st.Kind, st.Params, st.Enabled)
		if err != nil {
			continue
		}
		comps = append(comps, c)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comps = comps
}

// GenerateChunk produces n samples starting at the current clock position
// and advances the clock past them. When n <= 0 the configured chunk
// length is used; n is capped at [MaxChunk]. The second return value is
// the chunk start time in seconds. While paused no samples are produced,
// the clock holds and the returned slice is nil.
func (e *Engine) GenerateChunk(n int) ([]float32, float64) {
	e.mu.Lock()
	cfg := e.cfg
	paused := e.paused
	comps := make([]Component, len(e.comps))
	copy(comps, e.comps)
	e.mu.Unlock()

	if n <= 0 {
		n = cfg.ChunkLen
	}
	if n > MaxChunk {
		n = MaxChunk
	}

	t0 := float64(e.clock.SampleIndex()) / cfg.SampleRate
	if paused {
		return nil, t0
	}

	if cap(e.scratch) < n {
		e.scratch = make([]float32, n)
	}
	scratch := e.scratch[:n]

	out := make([]float32, n)
	for _, c := range comps {
		if !c.Enabled() {
			continue
		}
		c.Generate(scratch, t0, cfg.SampleRate)
		for i, v := range scratch {
			out[i] += v
		}
	}

	if cfg.Clip > 0 {
		clip := float32(cfg.Clip)
		for i, v := range out {
			if v > clip {
				out[i] = clip
			} else if v < -clip {
				out[i] = -clip
			}
		}
	}

	e.clock.Advance(n)
	return out, t0
}
