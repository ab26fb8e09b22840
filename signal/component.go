package signal

import (
	"fmt"
	"sync"

	"github.com/cwbudde/wavescope/schema"
)

// Component is one additive source in the generated stream.
//
// Generate fills dst with the component's contribution for the half-open
// interval [startTime, startTime+len(dst)/sampleRate); a disabled component
// fills zeros. Implementations are safe for a concurrent Generate against
// SetEnabled/UpdateParams, each kind guards its own state.
type Component interface {
	Kind() string
	Name() string
	Schema() schema.Schema
	Enabled() bool
	SetEnabled(enabled bool)
	// UpdateParams merges partial into the current parameter state.
	// Unknown keys are ignored, invalid values keep the previous setting.
	UpdateParams(partial schema.Values)
	// Params returns a copy of the current parameter state.
	Params() schema.Values
	Generate(dst []float32, startTime, sampleRate float64)
}

// Component kind identifiers. These are data contract values used in saved
// configurations, keep them stable.
const (
	KindNoise      = "noise"
	KindSine       = "sine"
	KindRectPulse  = "rect_pulse"
	KindGaussPulse = "gauss_pulse"
	KindChirp      = "chirp"
)

type componentBuilder func(values schema.Values, enabled bool) Component

var builders = map[string]componentBuilder{
	KindNoise:      func(v schema.Values, on bool) Component { return newNoise(v, on) },
	KindSine:       func(v schema.Values, on bool) Component { return newSine(v, on) },
	KindRectPulse:  func(v schema.Values, on bool) Component { return newRectPulse(v, on) },
	KindGaussPulse: func(v schema.Values, on bool) Component { return newGaussPulse(v, on) },
	KindChirp:      func(v schema.Values, on bool) Component { return newChirp(v, on) },
}

// Kinds lists the available component kinds in a stable order.
func Kinds() []string {
	return []string{KindNoise, KindSine, KindRectPulse, KindGaussPulse, KindChirp}
}

// SchemaFor returns the parameter schema of the given kind.
func SchemaFor(kind string) (schema.Schema, bool) {
	switch kind {
	case KindNoise:
		return noiseSchema(), true
	case KindSine:
		return sineSchema(), true
	case KindRectPulse:
		return rectPulseSchema(), true
	case KindGaussPulse:
		return gaussPulseSchema(), true
	case KindChirp:
		return chirpSchema(), true
	default:
		return nil, false
	}
}

// NewComponent builds a component of the given kind. Missing parameter keys
// are filled from the kind's schema defaults.
func NewComponent(kind string, params schema.Values, enabled bool) (Component, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("signal: unknown component kind: %q", kind)
	}
	sch, _ := SchemaFor(kind)
	return build(sch.Defaults().Merge(params), enabled), nil
}

// base carries the enabled flag and the mutex shared with each kind's own
// parameter state.
type base struct {
	mu      sync.Mutex
	enabled bool
}

func (b *base) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *base) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func zeroFill(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
