package signal

import (
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/cwbudde/wavescope/internal/testutil"
	"github.com/cwbudde/wavescope/schema"
)

func TestClock(t *testing.T) {
	c := NewClock()
	if got := c.SampleIndex(); got != 0 {
		t.Fatalf("SampleIndex = %d, want 0", got)
	}
	c.Advance(10)
	c.Advance(5)
	if got := c.SampleIndex(); got != 15 {
		t.Fatalf("SampleIndex = %d, want 15", got)
	}
	if c.Uptime() < 0 {
		t.Fatal("Uptime went backwards")
	}
	c.Reset()
	if got := c.SampleIndex(); got != 0 {
		t.Fatalf("SampleIndex after Reset = %d, want 0", got)
	}
}

func TestEngineDefaults(t *testing.T) {
	e := NewEngine()
	cfg := e.Config()
	if cfg.SampleRate != 2000 || cfg.ChunkLen != 256 || cfg.Clip != 0 {
		t.Fatalf("Config = %+v, want {2000 256 0}", cfg)
	}
	if !e.Paused() {
		t.Fatal("engine must start paused")
	}
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(WithSampleRate(8000), WithChunkLen(MaxChunk+1), WithClip(1.5), WithPaused(false))
	cfg := e.Config()
	if cfg.SampleRate != 8000 {
		t.Fatalf("SampleRate = %v, want 8000", cfg.SampleRate)
	}
	if cfg.ChunkLen != MaxChunk {
		t.Fatalf("ChunkLen = %d, want clamp to %d", cfg.ChunkLen, MaxChunk)
	}
	if cfg.Clip != 1.5 {
		t.Fatalf("Clip = %v, want 1.5", cfg.Clip)
	}
	if e.Paused() {
		t.Fatal("WithPaused(false) ignored")
	}
}

func TestGenerateChunkPausedHoldsClock(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 3; i++ {
		samples, t0 := e.GenerateChunk(0)
		if samples != nil {
			t.Fatalf("paused chunk returned %d samples, want nil", len(samples))
		}
		if t0 != 0 {
			t.Fatalf("paused t0 = %v, want 0", t0)
		}
	}
	if got := e.Now(); got != 0 {
		t.Fatalf("Now = %v, want 0 while paused", got)
	}
}

func TestGenerateChunkAdvancesTime(t *testing.T) {
	e := NewEngine(WithPaused(false))

	samples, t0 := e.GenerateChunk(0)
	if len(samples) != 256 {
		t.Fatalf("len = %d, want chunk default 256", len(samples))
	}
	if t0 != 0 {
		t.Fatalf("first t0 = %v, want 0", t0)
	}

	_, t1 := e.GenerateChunk(0)
	if want := 256.0 / 2000.0; math.Abs(t1-want) > 1e-12 {
		t.Fatalf("second t0 = %v, want %v", t1, want)
	}
}

func TestGenerateChunkSizeRules(t *testing.T) {
	e := NewEngine(WithPaused(false))
	if samples, _ := e.GenerateChunk(-3); len(samples) != 256 {
		t.Fatalf("len = %d, want configured 256 for n <= 0", len(samples))
	}
	if samples, _ := e.GenerateChunk(MaxChunk + 5); len(samples) != MaxChunk {
		t.Fatalf("len = %d, want cap at %d", len(samples), MaxChunk)
	}
}

func TestMixAdditivity(t *testing.T) {
	e := NewEngine(WithPaused(false))
	mustAdd := func(kind string, params schema.Values, enabled bool) {
		t.Helper()
		if _, err := e.AddComponent(kind, params, enabled); err != nil {
			t.Fatalf("AddComponent(%q): %v", kind, err)
		}
	}
	mustAdd(KindSine, schema.Values{"amplitude": 1.0, "frequency": 6.0, "smooth_ms": 0}, true)
	mustAdd(KindSine, schema.Values{"amplitude": 0.4, "frequency": 30.0, "smooth_ms": 0}, true)
	mustAdd(KindNoise, schema.Values{"sigma": 1.0}, false)

	samples, t0 := e.GenerateChunk(0)
	want := make([]float32, len(samples))
	for i := range want {
		tt := t0 + float64(i)/2000.0
		want[i] = float32(math.Sin(2*math.Pi*6*tt)) + float32(0.4*math.Sin(2*math.Pi*30*tt))
	}
	testutil.RequireSliceNearlyEqual32(t, samples, want, 1e-5)
}

func TestClipLimitsOutput(t *testing.T) {
	e := NewEngine(WithPaused(false), WithClip(0.5))
	if _, err := e.AddComponent(KindSine, schema.Values{"amplitude": 2.0, "frequency": 5.0, "smooth_ms": 0}, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	samples, _ := e.GenerateChunk(0)
	var peak float32
	for _, v := range samples {
		if v > 0.5 || v < -0.5 {
			t.Fatalf("sample %v escaped the clip level", v)
		}
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	if peak != 0.5 {
		t.Fatalf("peak = %v, want the signal to touch the 0.5 ceiling", peak)
	}
}

func TestComponentSlotOps(t *testing.T) {
	e := NewEngine()
	if _, err := e.AddComponent(KindNoise, nil, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	idx, err := e.AddComponent(KindSine, nil, true)
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if idx != 1 {
		t.Fatalf("index = %d, want 1", idx)
	}

	e.RemoveComponent(5)
	e.RemoveComponent(-1)
	if got := len(e.Components()); got != 2 {
		t.Fatalf("len = %d, want out-of-range removes ignored", got)
	}

	e.RemoveComponent(0)
	comps := e.Components()
	if len(comps) != 1 || comps[0].Kind() != KindSine {
		t.Fatalf("remaining slots = %d, want only the sine", len(comps))
	}

	if _, ok := e.Component(3); ok {
		t.Fatal("Component(3) reported ok for an empty slot")
	}
}

func TestEngineTogglesComponent(t *testing.T) {
	e := NewEngine(WithPaused(false))
	if _, err := e.AddComponent(KindSine, schema.Values{"amplitude": 1.0, "frequency": 5.0, "smooth_ms": 0}, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	e.SetComponentEnabled(0, false)
	samples, _ := e.GenerateChunk(0)
	for i, v := range samples {
		if v != 0 {
			t.Fatalf("samples[%d] = %v, want silence with the slot disabled", i, v)
		}
	}

	e.SetComponentEnabled(0, true)
	samples, _ = e.GenerateChunk(0)
	silent := true
	for _, v := range samples {
		if v != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Fatal("re-enabled slot produced silence")
	}

	e.SetComponentEnabled(9, true) // out of range, must not panic
}

func TestEngineUpdateComponentParams(t *testing.T) {
	e := NewEngine(WithPaused(false))
	if _, err := e.AddComponent(KindSine, schema.Values{"frequency": 5.0, "smooth_ms": 0}, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	e.UpdateComponentParams(0, schema.Values{"frequency": 40.0})

	samples, t0 := e.GenerateChunk(0)
	want := testutil.SineChunk(40, 2000, 1, t0, len(samples))
	testutil.RequireSliceNearlyEqual32(t, samples, want, 1e-5)
}

func TestSnapshotReplaceRoundTrip(t *testing.T) {
	a := NewEngine()
	if _, err := a.AddComponent(KindNoise, schema.Values{"seed": 5}, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if _, err := a.AddComponent(KindSine, schema.Values{"frequency": 7.0}, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	a.SetComponentEnabled(0, false)

	states := a.SnapshotComponents()
	b := NewEngine()
	b.ReplaceComponents(states)
	if got := b.SnapshotComponents(); !reflect.DeepEqual(got, states) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, states)
	}
}

func TestReplaceComponentsSkipsUnknownKind(t *testing.T) {
	e := NewEngine()
	if _, err := e.AddComponent(KindChirp, nil, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	e.ReplaceComponents([]ComponentState{
		{Kind: KindSine, Enabled: true},
		{Kind: "laser", Enabled: true},
		{Kind: KindNoise},
	})
	comps := e.Components()
	if len(comps) != 2 {
		t.Fatalf("len = %d, want the two known kinds", len(comps))
	}
	if comps[0].Kind() != KindSine || comps[1].Kind() != KindNoise {
		t.Fatalf("kinds = %s, %s", comps[0].Kind(), comps[1].Kind())
	}
}

func TestPauseResumeKeepsPosition(t *testing.T) {
	e := NewEngine(WithPaused(false))
	e.GenerateChunk(0)

	e.SetPaused(true)
	samples, tPaused := e.GenerateChunk(0)
	if samples != nil {
		t.Fatal("paused chunk produced samples")
	}

	e.SetPaused(false)
	_, tResumed := e.GenerateChunk(0)
	if tPaused != tResumed {
		t.Fatalf("resume t0 = %v, want paused position %v", tResumed, tPaused)
	}
}

func TestResetRewindsClock(t *testing.T) {
	e := NewEngine(WithPaused(false))
	e.GenerateChunk(0)
	if e.Now() == 0 {
		t.Fatal("clock did not advance")
	}
	e.Reset()
	if got := e.Now(); got != 0 {
		t.Fatalf("Now after Reset = %v, want 0", got)
	}
}

func TestSampleRateChangeKeepsSampleIndex(t *testing.T) {
	e := NewEngine(WithPaused(false))
	e.GenerateChunk(256)
	e.SetSampleRate(1000)
	if want := 256.0 / 1000.0; math.Abs(e.Now()-want) > 1e-12 {
		t.Fatalf("Now = %v, want %v at the new rate", e.Now(), want)
	}
	e.SetSampleRate(0) // ignored
	if got := e.Config().SampleRate; got != 1000 {
		t.Fatalf("SampleRate = %v, want invalid rate ignored", got)
	}
}

func TestEngineConcurrentReconfigure(t *testing.T) {
	e := NewEngine(WithPaused(false))
	if _, err := e.AddComponent(KindSine, schema.Values{"frequency": 10.0}, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			samples, _ := e.GenerateChunk(64)
			if samples != nil && len(samples) != 64 {
				panic("bad chunk length")
			}
		}
	}()

	for i := 0; i < 200; i++ {
		e.UpdateComponentParams(0, schema.Values{"frequency": float64(5 + i%20)})
		e.SetComponentEnabled(0, i%3 != 0)
		e.SetClip(float64(i%2) * 0.5)
		if i%50 == 25 {
			e.SetPaused(true)
			e.SetPaused(false)
		}
	}
	wg.Wait()
}

func TestSetConfigAppliesAllGlobals(t *testing.T) {
	e := NewEngine()
	e.SetConfig(Config{SampleRate: 8000, ChunkLen: 512, Clip: 0.5})
	if got := e.Config(); got != (Config{SampleRate: 8000, ChunkLen: 512, Clip: 0.5}) {
		t.Fatalf("Config() = %+v", got)
	}

	e.SetConfig(Config{SampleRate: -1, ChunkLen: 0, Clip: -3})
	got := e.Config()
	if got.SampleRate != 8000 {
		t.Fatalf("non-positive rate replaced the old one: %v", got.SampleRate)
	}
	if got.ChunkLen != 1 {
		t.Fatalf("chunk length = %d, want clamp to 1", got.ChunkLen)
	}
	if got.Clip != 0 {
		t.Fatalf("negative clip level = %v, want 0", got.Clip)
	}

	e.SetConfig(Config{SampleRate: 4000, ChunkLen: MaxChunk + 1})
	if got := e.Config().ChunkLen; got != MaxChunk {
		t.Fatalf("chunk length = %d, want clamp to MaxChunk", got)
	}
}

func TestSnapshotCarriesDisplayName(t *testing.T) {
	e := NewEngine()
	if _, err := e.AddComponent(KindSine, nil, true); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	states := e.SnapshotComponents()
	if states[0].Name != "Sine" {
		t.Fatalf("snapshot name = %q, want Sine", states[0].Name)
	}
}

func BenchmarkGenerateChunk(b *testing.B) {
	e := NewEngine(WithPaused(false), WithChunkLen(512))
	for _, kind := range []string{KindNoise, KindSine, KindChirp} {
		if _, err := e.AddComponent(kind, nil, true); err != nil {
			b.Fatalf("AddComponent(%s): %v", kind, err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.GenerateChunk(0)
	}
}
