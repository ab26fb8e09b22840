package schema

import (
	"math"
	"testing"
)

func testSchema() Schema {
	return Schema{
		{Key: "amplitude", Label: "Amplitude", Type: TypeFloat, Default: 1.0, Min: 0, Max: 10, Step: 0.1, HasRange: true},
		{Key: "length", Label: "Length", Type: TypeInt, Default: 256},
		{Key: "enabled", Label: "Enabled", Type: TypeBool, Default: true},
		{Key: "mode", Label: "Mode", Type: TypeChoice, Default: "abs", Choices: []string{"abs", "power"}},
	}
}

func TestDefaults(t *testing.T) {
	v := testSchema().Defaults()
	if got := v.Float("amplitude", -1); got != 1.0 {
		t.Fatalf("Float(amplitude) = %v, want 1.0", got)
	}
	if got := v.Int("length", -1); got != 256 {
		t.Fatalf("Int(length) = %d, want 256", got)
	}
	if got := v.Bool("enabled", false); !got {
		t.Fatal("Bool(enabled) = false, want true")
	}
	if got := v.String("mode", ""); got != "abs" {
		t.Fatalf("String(mode) = %q, want abs", got)
	}
}

func TestFind(t *testing.T) {
	s := testSchema()
	spec, ok := s.Find("mode")
	if !ok {
		t.Fatal("Find(mode) not found")
	}
	if spec.Type != TypeChoice {
		t.Fatalf("spec.Type = %v, want choice", spec.Type)
	}
	if _, ok := s.Find("missing"); ok {
		t.Fatal("Find(missing) should not succeed")
	}
}

func TestKeysOrder(t *testing.T) {
	got := testSchema().Keys()
	want := []string{"amplitude", "length", "enabled", "mode"}
	if len(got) != len(want) {
		t.Fatalf("len(Keys()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFloatRejectsNonFinite(t *testing.T) {
	v := Values{"a": math.NaN(), "b": math.Inf(1), "c": "nope"}
	for _, key := range []string{"a", "b", "c", "missing"} {
		if got := v.Float(key, 7.5); got != 7.5 {
			t.Fatalf("Float(%q) = %v, want default 7.5", key, got)
		}
	}
}

func TestFloatCoercesNumericTypes(t *testing.T) {
	v := Values{"i": 3, "i64": int64(4), "f32": float32(2.5), "u": uint(9)}
	cases := []struct {
		key  string
		want float64
	}{
		{"i", 3},
		{"i64", 4},
		{"f32", 2.5},
		{"u", 9},
	}
	for _, tc := range cases {
		if got := v.Float(tc.key, -1); got != tc.want {
			t.Fatalf("Float(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestIntTruncates(t *testing.T) {
	v := Values{"n": 3.9}
	if got := v.Int("n", -1); got != 3 {
		t.Fatalf("Int(n) = %d, want 3", got)
	}
}

func TestBoolAndStringRejectForeignTypes(t *testing.T) {
	v := Values{"b": 1, "s": 2.0}
	if got := v.Bool("b", true); !got {
		t.Fatal("Bool should fall back to default for non-bool value")
	}
	if got := v.String("s", "fallback"); got != "fallback" {
		t.Fatalf("String(s) = %q, want fallback", got)
	}
}

func TestNilValuesSafe(t *testing.T) {
	var v Values
	if got := v.Float("x", 1.5); got != 1.5 {
		t.Fatalf("nil Float = %v, want 1.5", got)
	}
	if got := v.Bool("x", true); !got {
		t.Fatal("nil Bool should return default")
	}
	if got := v.String("x", "d"); got != "d" {
		t.Fatalf("nil String = %q, want d", got)
	}
	if v.Clone() != nil {
		t.Fatal("Clone of nil should be nil")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	v := Values{"a": 1.0}
	c := v.Clone()
	c["a"] = 2.0
	if got := v.Float("a", 0); got != 1.0 {
		t.Fatalf("original mutated through clone: %v", got)
	}
}

func TestMergeOverlays(t *testing.T) {
	base := Values{"a": 1.0, "b": 2.0}
	out := base.Merge(Values{"b": 3.0, "c": 4.0})
	if got := out.Float("a", 0); got != 1.0 {
		t.Fatalf("merged a = %v, want 1.0", got)
	}
	if got := out.Float("b", 0); got != 3.0 {
		t.Fatalf("merged b = %v, want 3.0", got)
	}
	if got := out.Float("c", 0); got != 4.0 {
		t.Fatalf("merged c = %v, want 4.0", got)
	}
	if got := base.Float("b", 0); got != 2.0 {
		t.Fatalf("Merge mutated receiver: b = %v", got)
	}
}
