// Package schema describes the tunable parameters of signal components and
// transforms. A [Schema] is an ordered list of [Spec] entries; runtime values
// travel as a [Values] map with tolerant typed accessors, so stale or
// malformed entries degrade to defaults instead of failing mid-stream.
package schema

// Type identifies the value type of a parameter.
type Type string

// Parameter value types.
const (
	TypeFloat  Type = "float"
	TypeInt    Type = "int"
	TypeBool   Type = "bool"
	TypeString Type = "str"
	TypeChoice Type = "choice"
)

// Spec describes a single tunable parameter.
type Spec struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Type        Type     `json:"type"`
	Default     any      `json:"default"`
	Min         float64  `json:"min,omitempty"`
	Max         float64  `json:"max,omitempty"`
	Step        float64  `json:"step,omitempty"`
	HasRange    bool     `json:"has_range,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Description string   `json:"description,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Schema is an ordered list of parameter specs. Treat it as immutable once
// returned from a component or transform.
type Schema []Spec

// Find returns the spec with the given key, or false if absent.
func (s Schema) Find(key string) (Spec, bool) {
	for _, spec := range s {
		if spec.Key == key {
			return spec, true
		}
	}
	return Spec{}, false
}

// Keys returns the parameter keys in declaration order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, spec := range s {
		keys[i] = spec.Key
	}
	return keys
}

// Defaults builds a fresh Values map holding every spec default.
func (s Schema) Defaults() Values {
	v := make(Values, len(s))
	for _, spec := range s {
		v[spec.Key] = spec.Default
	}
	return v
}
