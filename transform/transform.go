// Package transform defines the analyzer contract shared by builtin and
// external time-frequency transforms, plus the registry that resolves them
// by identifier at runtime.
package transform

import "github.com/cwbudde/wavescope/schema"

// Info identifies one analyzer implementation.
type Info struct {
	// ID is the stable identifier presets and the registry key on, for
	// example "builtin:cwt_morlet" or "plugin:my_transform".
	ID          string
	Name        string
	Kind        string
	Version     string
	Description string
}

// Transform turns a window of samples into a two-dimensional map.
//
// Implementations must be safe for concurrent calls and must not retain
// the samples slice.
type Transform interface {
	// DescribeParams returns the parameter schema understood by Transform.
	DescribeParams() schema.Schema
	// Transform analyzes the window. Unknown parameter keys are ignored
	// and missing ones fall back to the schema defaults.
	Transform(samples []float32, sampleRate float64, params schema.Values) (*Result, error)
}

// Entry pairs an analyzer with its identity.
type Entry struct {
	Info      Info
	Transform Transform
}

// Loader builds an Entry from an external plugin file. The registry picks
// the loader by file extension during ReloadAll.
type Loader func(path string) (Entry, error)
