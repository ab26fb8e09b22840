// Package params holds the runtime configuration shared between the
// control surface and the processing loops. A single Store is written by
// whoever handles operator input and read by the generation and analysis
// loops; readers always get self-consistent value snapshots.
package params

import (
	"sync"

	"github.com/cwbudde/wavescope/schema"
)

// Globals are the core-controlled knobs every loop reads.
type Globals struct {
	// SampleRate is the generator rate in Hz.
	SampleRate float64
	// ChunkLen is the number of samples per generated chunk.
	ChunkLen int
	// WindowSeconds is the analysis window length.
	WindowSeconds float64
	// FrameRate is the target analysis rate in frames per second.
	FrameRate float64
	// AmplitudeClip bounds the mixed signal to +-clip when > 0.
	AmplitudeClip float64
	// Paused freezes generation and the logical clock.
	Paused bool
}

// DefaultGlobals returns the startup configuration.
func DefaultGlobals() Globals {
	return Globals{
		SampleRate:    2000,
		ChunkLen:      256,
		WindowSeconds: 4,
		FrameRate:     8,
		AmplitudeClip: 0,
		Paused:        true,
	}
}

// Snapshot is one self-consistent view of the shared configuration.
type Snapshot struct {
	Globals         Globals
	TransformID     string
	TransformParams schema.Values
}

// Store is the mutex-guarded home of the shared configuration. Writes from
// different callers are not transactionally related; each Snapshot is
// internally consistent.
type Store struct {
	mu    sync.Mutex
	state Snapshot
}

// NewStore returns a store holding the default globals and the builtin
// continuous transform.
func NewStore() *Store {
	return &Store{
		state: Snapshot{
			Globals:     DefaultGlobals(),
			TransformID: "builtin:cwt_morlet",
		},
	}
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.TransformParams = s.state.TransformParams.Clone()
	return out
}

// Globals returns the current globals by value.
func (s *Store) Globals() Globals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Globals
}

// SetGlobals replaces the globals wholesale.
func (s *Store) SetGlobals(g Globals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Globals = g
}

// UpdateGlobals applies fn to the globals under the store lock.
func (s *Store) UpdateGlobals(fn func(*Globals)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state.Globals)
}

// SetPaused toggles generation without touching the other globals.
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Globals.Paused = paused
}

// SetTransform selects the active transform and replaces its parameters.
// The store keeps its own copy of params.
func (s *Store) SetTransform(id string, params schema.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TransformID = id
	s.state.TransformParams = params.Clone()
}

// MergeTransformParams overlays partial onto the active transform
// parameters, leaving other keys in place.
func (s *Store) MergeTransformParams(partial schema.Values) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TransformParams = s.state.TransformParams.Merge(partial)
}
