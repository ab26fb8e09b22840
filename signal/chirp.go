package signal

import (
	"math"

	"github.com/cwbudde/wavescope/schema"
)

func chirpSchema() schema.Schema {
	return schema.Schema{
		{
			Key: "amplitude", Label: "Amplitude", Type: schema.TypeFloat, Default: 0.8,
			Min: 0, Max: 10, Step: 0.01, HasRange: true,
			Description: "Amplitude of the linear frequency sweep.",
			Examples:    []string{"A=0.8 - base level", "A=2.0 - pronounced sweep"},
		},
		{
			Key: "f0", Label: "Start frequency f0 (Hz)", Type: schema.TypeFloat, Default: 10.0,
			Min: 0, Max: 10000000, Step: 0.1, HasRange: true,
			Description: "Instantaneous frequency at the start of the sweep.",
			Examples:    []string{"f0=10 Hz - low start", "f0=100 Hz - medium"},
		},
		{
			Key: "f1", Label: "End frequency f1 (Hz)", Type: schema.TypeFloat, Default: 200.0,
			Min: 0, Max: 10000000, Step: 0.1, HasRange: true,
			Description: "Instantaneous frequency at the end of the sweep (t=duration).",
			Examples:    []string{"f1=200 Hz - moderate range", "up to fs/2"},
		},
		{
			Key: "duration_sec", Label: "Duration (s)", Type: schema.TypeFloat, Default: 2.0,
			Min: 0.01, Max: 60, Step: 0.01, HasRange: true,
			Description: "Length of the sweep segment. Outside the segment the output is zero.",
			Examples:    []string{"2.0 s - typical test", "0.5 s - short sweep"},
		},
		{
			Key: "start_time_sec", Label: "Start (s)", Type: schema.TypeFloat, Default: 0.0,
			Min: 0, Max: 60, Step: 0.01, HasRange: true,
			Description: "Time offset at which the sweep segment begins.",
			Examples:    []string{"0 - immediately", "1.0 - start after one second"},
		},
	}
}

type chirpParams struct {
	amplitude float64
	f0        float64
	f1        float64
	duration  float64
	start     float64
}

func chirpParamsFrom(v schema.Values, prev chirpParams) chirpParams {
	return chirpParams{
		amplitude: v.Float("amplitude", prev.amplitude),
		f0:        v.Float("f0", prev.f0),
		f1:        v.Float("f1", prev.f1),
		duration:  v.Float("duration_sec", prev.duration),
		start:     v.Float("start_time_sec", prev.start),
	}
}

// chirp generates a linear frequency sweep from f0 to f1 over the configured
// duration, zero outside [start, start+duration].
type chirp struct {
	base
	p chirpParams
}

func newChirp(values schema.Values, enabled bool) *chirp {
	c := &chirp{}
	c.enabled = enabled
	c.p = chirpParamsFrom(values, chirpParams{amplitude: 0.8, f0: 10, f1: 200, duration: 2})
	return c
}

func (c *chirp) Kind() string          { return KindChirp }
func (c *chirp) Name() string          { return "Linear chirp" }
func (c *chirp) Schema() schema.Schema { return chirpSchema() }

func (c *chirp) UpdateParams(partial schema.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.p = chirpParamsFrom(partial, c.p)
}

func (c *chirp) Params() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.Values{
		"amplitude":      c.p.amplitude,
		"f0":             c.p.f0,
		"f1":             c.p.f1,
		"duration_sec":   c.p.duration,
		"start_time_sec": c.p.start,
	}
}

func (c *chirp) Generate(dst []float32, startTime, sampleRate float64) {
	c.mu.Lock()
	p := c.p
	enabled := c.enabled
	c.mu.Unlock()

	zeroFill(dst)
	if !enabled || p.duration <= 0 {
		return
	}

	// Instantaneous frequency f(tau) = f0 + (f1-f0)*tau/duration, so the
	// phase is 2*pi*(f0*tau + (f1-f0)/(2*duration)*tau^2).
	k := (p.f1 - p.f0) / (2 * p.duration)
	for i := range dst {
		t := startTime + float64(i)/sampleRate
		tau := t - p.start
		if tau < 0 || tau > p.duration {
			continue
		}
		phase := 2 * math.Pi * (p.f0*tau + k*tau*tau)
		dst[i] = float32(p.amplitude * math.Cos(phase))
	}
}
