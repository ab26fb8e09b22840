package signal

import (
	"math"
	"testing"

	"github.com/cwbudde/wavescope/internal/testutil"
	"github.com/cwbudde/wavescope/schema"
)

func generate(t *testing.T, kind string, params schema.Values, startTime, fs float64, n int) []float32 {
	t.Helper()
	c, err := NewComponent(kind, params, true)
	if err != nil {
		t.Fatalf("NewComponent(%q): %v", kind, err)
	}
	dst := make([]float32, n)
	c.Generate(dst, startTime, fs)
	return dst
}

func TestNewComponentUnknownKind(t *testing.T) {
	if _, err := NewComponent("laser", nil, true); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestEveryKindHasSchemaAndDefaults(t *testing.T) {
	for _, kind := range Kinds() {
		sch, ok := SchemaFor(kind)
		if !ok || len(sch) == 0 {
			t.Fatalf("kind %q has no schema", kind)
		}
		c, err := NewComponent(kind, nil, true)
		if err != nil {
			t.Fatalf("NewComponent(%q): %v", kind, err)
		}
		params := c.Params()
		for _, spec := range sch {
			if _, ok := params[spec.Key]; !ok {
				t.Fatalf("kind %q: default for %q missing from Params", kind, spec.Key)
			}
		}
	}
}

func TestDefaultsBackfill(t *testing.T) {
	c, err := NewComponent(KindNoise, schema.Values{"mean": 0.5}, true)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	p := c.Params()
	if got := p.Float("mean", -1); got != 0.5 {
		t.Fatalf("mean = %v, want 0.5", got)
	}
	if got := p.Float("sigma", -1); got != 0.2 {
		t.Fatalf("sigma = %v, want schema default 0.2", got)
	}
}

func TestDisabledComponentsGenerateZeros(t *testing.T) {
	for _, kind := range Kinds() {
		c, err := NewComponent(kind, nil, false)
		if err != nil {
			t.Fatalf("NewComponent(%q): %v", kind, err)
		}
		dst := make([]float32, 64)
		for i := range dst {
			dst[i] = 7
		}
		c.Generate(dst, 0.5, 1000)
		for i, v := range dst {
			if v != 0 {
				t.Fatalf("kind %q: dst[%d] = %v, want 0 while disabled", kind, i, v)
			}
		}
	}
}

func TestSineMatchesClosedForm(t *testing.T) {
	const (
		fs    = 2000.0
		t0    = 0.25
		n     = 128
		amp   = 1.25
		freq  = 12.5
		phase = 0.4
		dc    = 0.1
	)
	got := generate(t, KindSine, schema.Values{
		"amplitude": amp, "frequency": freq, "phase": phase, "dc": dc, "smooth_ms": 0,
	}, t0, fs, n)

	want := make([]float32, n)
	for i := range want {
		tt := t0 + float64(i)/fs
		want[i] = float32(dc + amp*math.Sin(2*math.Pi*freq*tt+phase))
	}
	testutil.RequireSliceNearlyEqual32(t, got, want, 1e-6)
}

func TestSineSmoothingGlides(t *testing.T) {
	// 50 samples at 1 kHz is 50 ms, half the 100 ms smoothing constant,
	// so each chunk closes half the remaining gap. Frequency zero with a
	// quarter-period phase turns the output into a flat line at the
	// current amplitude.
	c, err := NewComponent(KindSine, schema.Values{
		"amplitude": 1.0, "frequency": 0.0, "phase": math.Pi / 2, "smooth_ms": 100,
	}, true)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	dst := make([]float32, 50)

	c.Generate(dst, 0, 1000)
	if math.Abs(float64(dst[0])-1) > 1e-6 {
		t.Fatalf("initial level = %v, want 1", dst[0])
	}

	c.UpdateParams(schema.Values{"amplitude": 3.0})
	for _, want := range []float64{2, 2.5, 2.75} {
		c.Generate(dst, 0, 1000)
		if math.Abs(float64(dst[0])-want) > 1e-6 {
			t.Fatalf("smoothed level = %v, want %v", dst[0], want)
		}
	}
}

func TestSineInstantWhenSmoothingOff(t *testing.T) {
	c, err := NewComponent(KindSine, schema.Values{
		"amplitude": 1.0, "frequency": 5.0, "smooth_ms": 0,
	}, true)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	c.UpdateParams(schema.Values{"frequency": 40.0})

	const fs, n = 1000.0, 100
	got := make([]float32, n)
	c.Generate(got, 0, fs)

	want := testutil.SineChunk(40, fs, 1, 0, n)
	testutil.RequireSliceNearlyEqual32(t, got, want, 1e-6)
}

func TestSineUpdateIgnoresForeignValues(t *testing.T) {
	c, err := NewComponent(KindSine, schema.Values{"frequency": 5.0}, true)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	c.UpdateParams(schema.Values{"frequency": "fast", "bogus": 1})
	if got := c.Params().Float("frequency", -1); got != 5.0 {
		t.Fatalf("frequency = %v, want unchanged 5", got)
	}
}

func TestNoiseSeededReproducible(t *testing.T) {
	params := schema.Values{"sigma": 1.0, "seed": 123}
	a := generate(t, KindNoise, params, 0, 2000, 128)
	b := generate(t, KindNoise, params, 0, 2000, 128)
	testutil.RequireSliceNearlyEqual32(t, a, b, 0)

	varies := false
	for i := 1; i < len(a); i++ {
		if a[i] != a[0] {
			varies = true
			break
		}
	}
	if !varies {
		t.Fatal("seeded noise produced a constant signal")
	}
}

func TestNoiseSeedZeroDiffersAcrossInstances(t *testing.T) {
	a := generate(t, KindNoise, schema.Values{"sigma": 1.0, "seed": 0}, 0, 2000, 64)
	b := generate(t, KindNoise, schema.Values{"sigma": 1.0, "seed": 0}, 0, 2000, 64)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("two unseeded instances produced identical noise")
	}
}

func TestNoiseSigmaZeroIsConstantMean(t *testing.T) {
	got := generate(t, KindNoise, schema.Values{"mean": 0.75, "sigma": 0.0}, 0, 2000, 32)
	for i, v := range got {
		if v != 0.75 {
			t.Fatalf("dst[%d] = %v, want 0.75", i, v)
		}
	}
}

func TestNoiseReseedRestartsStream(t *testing.T) {
	c, err := NewComponent(KindNoise, schema.Values{"sigma": 1.0, "seed": 7}, true)
	if err != nil {
		t.Fatalf("NewComponent: %v", err)
	}
	first := make([]float32, 64)
	c.Generate(first, 0, 2000)

	// Changing to another seed and back must restart the same stream.
	c.UpdateParams(schema.Values{"seed": 8})
	c.Generate(make([]float32, 64), 0, 2000)
	c.UpdateParams(schema.Values{"seed": 7})
	again := make([]float32, 64)
	c.Generate(again, 0, 2000)

	testutil.RequireSliceNearlyEqual32(t, again, first, 0)
}

func TestRectPulseTiming(t *testing.T) {
	got := generate(t, KindRectPulse, schema.Values{
		"amplitude": 2.0, "width_sec": 0.02, "period_sec": 0.1, "start_time_sec": 0.05,
	}, 0, 1000, 200)

	cases := []struct {
		i    int
		want float32
	}{
		{49, 0},  // before the first pulse
		{50, 2},  // pulse onset
		{60, 2},  // inside the pulse
		{75, 0},  // after the pulse
		{151, 2}, // second period
		{172, 0}, // gap of the second period
	}
	for _, tc := range cases {
		if got[tc.i] != tc.want {
			t.Fatalf("dst[%d] = %v, want %v", tc.i, got[tc.i], tc.want)
		}
	}
}

func TestRectPulseNonPositivePeriodSilent(t *testing.T) {
	got := generate(t, KindRectPulse, schema.Values{"period_sec": 0.0}, 0, 1000, 64)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want 0 for period 0", i, v)
		}
	}
}

func TestGaussPulseSingle(t *testing.T) {
	got := generate(t, KindGaussPulse, schema.Values{
		"amplitude": 1.5, "sigma_sec": 0.01, "center_time_sec": 1.0, "repetition_period_sec": 0.0,
	}, 0.9, 1000, 200)

	if math.Abs(float64(got[100])-1.5) > 1e-5 {
		t.Fatalf("peak = %v, want 1.5 at the center", got[100])
	}
	if math.Abs(float64(got[0])) > 1e-6 {
		t.Fatalf("tail = %v, want ~0 ten sigma out", got[0])
	}
	// One sigma either side of the center matches.
	if math.Abs(float64(got[90])-float64(got[110])) > 1e-5 {
		t.Fatalf("pulse asymmetric: %v vs %v", got[90], got[110])
	}
	want := 1.5 * math.Exp(-0.5)
	if math.Abs(float64(got[90])-want) > 1e-5 {
		t.Fatalf("one sigma level = %v, want %v", got[90], want)
	}
}

func TestGaussPulseRepetition(t *testing.T) {
	got := generate(t, KindGaussPulse, schema.Values{
		"amplitude": 1.0, "sigma_sec": 0.01, "center_time_sec": 1.0, "repetition_period_sec": 0.5,
	}, 0.4, 1000, 200)

	// The train repeats at ..., 0.5, 1.0, ... so the chunk around 0.5
	// sees a full pulse even though the configured center is outside it.
	if math.Abs(float64(got[100])-1) > 1e-5 {
		t.Fatalf("repeated peak = %v, want 1 at t=0.5", got[100])
	}
}

func TestGaussPulseSkipsNegativeCenters(t *testing.T) {
	// With center 0.4 and period 0.5 the train would also place a pulse
	// at -0.1; a wide sigma would make it visible at t=0 if it leaked in.
	got := generate(t, KindGaussPulse, schema.Values{
		"amplitude": 1.0, "sigma_sec": 0.05, "center_time_sec": 0.4, "repetition_period_sec": 0.5,
	}, 0, 1000, 500)

	if math.Abs(float64(got[0])) > 0.01 {
		t.Fatalf("dst[0] = %v, want ~0 (negative-time pulse must not render)", got[0])
	}
	if math.Abs(float64(got[400])-1) > 1e-5 {
		t.Fatalf("peak = %v, want 1 at t=0.4", got[400])
	}
}

func TestChirpConstantFrequency(t *testing.T) {
	// Equal endpoint frequencies collapse the sweep to a plain cosine.
	const fs, n = 1000.0, 100
	got := generate(t, KindChirp, schema.Values{
		"amplitude": 0.8, "f0": 10.0, "f1": 10.0, "duration_sec": 1.0, "start_time_sec": 0.0,
	}, 0, fs, n)

	want := make([]float32, n)
	for i := range want {
		tt := float64(i) / fs
		want[i] = float32(0.8 * math.Cos(2*math.Pi*10*tt))
	}
	testutil.RequireSliceNearlyEqual32(t, got, want, 1e-6)
}

func TestChirpWindowInclusiveEnd(t *testing.T) {
	got := generate(t, KindChirp, schema.Values{
		"amplitude": 0.8, "f0": 8.0, "f1": 8.0, "duration_sec": 0.125, "start_time_sec": 0.5,
	}, 0, 1000, 700)

	if got[499] != 0 {
		t.Fatalf("dst[499] = %v, want 0 before the sweep", got[499])
	}
	if math.Abs(float64(got[500])-0.8) > 1e-6 {
		t.Fatalf("dst[500] = %v, want 0.8 at sweep start", got[500])
	}
	// One full cycle fits in the window, so the endpoint sample is back
	// at the maximum and still part of the sweep.
	if math.Abs(float64(got[625])-0.8) > 1e-6 {
		t.Fatalf("dst[625] = %v, want 0.8 at inclusive sweep end", got[625])
	}
	if got[626] != 0 {
		t.Fatalf("dst[626] = %v, want 0 past the sweep", got[626])
	}
}

func TestChirpSweepsUpward(t *testing.T) {
	// Count zero crossings in the first and last quarter of a 10..200 Hz
	// sweep; the end must oscillate noticeably faster than the start.
	const fs, n = 2000.0, 4000
	got := generate(t, KindChirp, schema.Values{
		"amplitude": 0.8, "f0": 10.0, "f1": 200.0, "duration_sec": 2.0, "start_time_sec": 0.0,
	}, 0, fs, n)

	crossings := func(xs []float32) int {
		count := 0
		for i := 1; i < len(xs); i++ {
			if (xs[i-1] < 0) != (xs[i] < 0) {
				count++
			}
		}
		return count
	}
	head := crossings(got[:n/4])
	tail := crossings(got[3*n/4:])
	if tail <= head*2 {
		t.Fatalf("crossings head=%d tail=%d, want the sweep to accelerate", head, tail)
	}
}
