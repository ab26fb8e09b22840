// Package pipeline runs the two long-lived loops of the workbench: the
// generator producing chunks into the shared ring, and the analysis worker
// rendering transform frames from it. The loops never call back into their
// consumers; everything crosses on channels, and both stop at iteration
// boundaries when their context is canceled.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Chunk is one generated block of samples with its logical start time.
type Chunk struct {
	Samples    []float32
	StartTime  float64
	SampleRate float64
}

// State is the analysis worker lifecycle.
type State int32

// Worker states.
const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
