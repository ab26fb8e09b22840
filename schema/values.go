package schema

import "math"

// Values holds runtime parameter values keyed by spec key.
//
// Entries arrive from UI layers, JSON presets and plugin boundaries, so the
// accessors never trust the stored type: missing keys, foreign types and
// non-finite numbers all fall back to the caller's default.
type Values map[string]any

// Float safely extracts a numeric parameter, returning def if missing or invalid.
func (v Values) Float(key string, def float64) float64 {
	if v == nil {
		return def
	}
	raw, ok := v[key]
	if !ok {
		return def
	}
	f, ok := toFloat(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Int safely extracts an integer parameter, returning def if missing or invalid.
// Fractional values are truncated toward zero, matching JSON number decoding.
func (v Values) Int(key string, def int) int {
	f := v.Float(key, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(f)
}

// Bool safely extracts a boolean parameter, returning def if missing or invalid.
func (v Values) Bool(key string, def bool) bool {
	if v == nil {
		return def
	}
	raw, ok := v[key]
	if !ok {
		return def
	}
	b, ok := raw.(bool)
	if !ok {
		return def
	}
	return b
}

// String safely extracts a string parameter, returning def if missing or invalid.
func (v Values) String(key string, def string) string {
	if v == nil {
		return def
	}
	raw, ok := v[key]
	if !ok {
		return def
	}
	s, ok := raw.(string)
	if !ok {
		return def
	}
	return s
}

// Clone returns an independent copy of the map.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge overlays the entries of other onto a copy of v and returns the result.
// Neither input is modified.
func (v Values) Merge(other Values) Values {
	out := v.Clone()
	if out == nil {
		out = make(Values, len(other))
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
