// Package preset persists and restores workbench configurations: the
// generation globals, the selected transform with its parameter overrides
// and the ordered component list, as one JSON file.
package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/wavescope/params"
	"github.com/cwbudde/wavescope/schema"
	"github.com/cwbudde/wavescope/signal"
)

// Globals is the serialized form of the generation globals. Zero values
// fall back to the defaults on apply.
type Globals struct {
	SampleRate    float64 `json:"sample_rate"`
	ChunkLen      int     `json:"chunk_length"`
	WindowSeconds float64 `json:"window_seconds"`
	FrameRate     float64 `json:"frame_rate"`
}

// TransformConfig names the selected transform and its parameter overrides.
type TransformConfig struct {
	PluginID string        `json:"plugin_id"`
	Params   schema.Values `json:"params,omitempty"`
}

// ComponentConfig is one generator slot.
type ComponentConfig struct {
	Kind    string        `json:"kind"`
	Enabled bool          `json:"enabled"`
	Params  schema.Values `json:"params,omitempty"`
}

// Preset is a complete saved configuration.
type Preset struct {
	Globals    Globals           `json:"globals"`
	Transform  TransformConfig   `json:"transform"`
	Components []ComponentConfig `json:"components"`
}

// Load reads a preset file.
func Load(path string) (Preset, error) {
	var p Preset
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("preset: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path as indented JSON.
func Save(path string, p Preset) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("preset: encode: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("preset: write %s: %w", path, err)
	}
	return nil
}

// Capture snapshots the current configuration of engine and store.
func Capture(engine *signal.Engine, store *params.Store) Preset {
	snap := store.Snapshot()
	p := Preset{
		Globals: Globals{
			SampleRate:    snap.Globals.SampleRate,
			ChunkLen:      snap.Globals.ChunkLen,
			WindowSeconds: snap.Globals.WindowSeconds,
			FrameRate:     snap.Globals.FrameRate,
		},
		Transform: TransformConfig{
			PluginID: snap.TransformID,
			Params:   snap.TransformParams,
		},
	}
	for _, st := range engine.SnapshotComponents() {
		p.Components = append(p.Components, ComponentConfig{
			Kind:    st.Kind,
			Enabled: st.Enabled,
			Params:  st.Params,
		})
	}
	return p
}

// Apply pushes p into engine and store and returns operator-facing notes
// for everything that was skipped. Components of unknown kind are dropped;
// missing component parameters are backfilled from the kind's defaults.
// Zero globals fall back to the defaults, and the paused flag plus the
// clip level of the running session are left untouched. An unknown
// transform id is applied verbatim, the analysis worker surfaces the miss
// at runtime.
func Apply(p Preset, engine *signal.Engine, store *params.Store) []string {
	var notes []string

	defaults := params.DefaultGlobals()
	g := p.Globals
	store.UpdateGlobals(func(cur *params.Globals) {
		cur.SampleRate = orDefault(g.SampleRate, defaults.SampleRate)
		cur.ChunkLen = orDefaultInt(g.ChunkLen, defaults.ChunkLen)
		cur.WindowSeconds = orDefault(g.WindowSeconds, defaults.WindowSeconds)
		cur.FrameRate = orDefault(g.FrameRate, defaults.FrameRate)
	})

	if p.Transform.PluginID != "" {
		store.SetTransform(p.Transform.PluginID, p.Transform.Params)
	}

	states := make([]signal.ComponentState, 0, len(p.Components))
	for i, c := range p.Components {
		if _, ok := signal.SchemaFor(c.Kind); !ok {
			notes = append(notes, fmt.Sprintf("dropped component %d: unknown kind %q", i, c.Kind))
			continue
		}
		states = append(states, signal.ComponentState{Kind: c.Kind, Enabled: c.Enabled, Params: c.Params})
	}
	engine.ReplaceComponents(states)
	return notes
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
