package signal

import (
	"math"

	"github.com/cwbudde/wavescope/schema"
)

func sineSchema() schema.Schema {
	return schema.Schema{
		{
			Key: "amplitude", Label: "Amplitude", Type: schema.TypeFloat, Default: 1.0,
			Min: 0, Max: 10, Step: 0.01, HasRange: true,
			Description: "Amplitude of the sinusoid A*sin(2*pi*f*t+phi).",
			Examples:    []string{"A=1.0 - base level", "A=0.2 - weak component"},
		},
		{
			Key: "frequency", Label: "Frequency (Hz)", Type: schema.TypeFloat, Default: 5.0,
			Min: 0, Max: 10000000, Step: 0.1, HasRange: true,
			Description: "Tone frequency. Shows up as a horizontal band on a scalogram.",
			Examples:    []string{"f=6 Hz - low", "f=30 Hz - medium", "up to fs/2"},
		},
		{
			Key: "phase", Label: "Phase (rad)", Type: schema.TypeFloat, Default: 0.0,
			Min: -10, Max: 10, Step: 0.01, HasRange: true,
			Description: "Initial phase in radians. Matters mostly for the time-domain view.",
			Examples:    []string{"0 - no shift", "pi/2 = 1.57 - quarter period shift"},
		},
		{
			Key: "dc", Label: "DC offset", Type: schema.TypeFloat, Default: 0.0,
			Min: -5, Max: 5, Step: 0.01, HasRange: true,
			Description: "Constant component added to the tone.",
			Examples:    []string{"dc=0 - centered", "dc=0.5 - signal above zero"},
		},
		{
			Key: "smooth_ms", Label: "Parameter smoothing (ms)", Type: schema.TypeInt, Default: 150,
			Min: 0, Max: 500, Step: 10, HasRange: true,
			Description: "Time constant for gliding amplitude/frequency/phase/offset toward new values, avoids jumps on live edits.",
			Examples:    []string{"0 - instant changes", "150-300 - smooth transition"},
		},
	}
}

type sineParams struct {
	amplitude float64
	frequency float64
	phase     float64
	dc        float64
	smoothMs  int
}

func sineParamsFrom(v schema.Values, prev sineParams) sineParams {
	return sineParams{
		amplitude: v.Float("amplitude", prev.amplitude),
		frequency: v.Float("frequency", prev.frequency),
		phase:     v.Float("phase", prev.phase),
		dc:        v.Float("dc", prev.dc),
		smoothMs:  v.Int("smooth_ms", prev.smoothMs),
	}
}

// sine generates a tone with exponential parameter smoothing: each Generate
// call moves the current values toward the latest target by a step
// proportional to the chunk duration over the smoothing constant, so live
// edits glide instead of jumping.
type sine struct {
	base
	current sineParams
	target  sineParams
}

func newSine(values schema.Values, enabled bool) *sine {
	c := &sine{}
	c.enabled = enabled
	p := sineParamsFrom(values, sineParams{amplitude: 1, frequency: 5, smoothMs: 150})
	c.current = p
	c.target = p
	return c
}

func (c *sine) Kind() string          { return KindSine }
func (c *sine) Name() string          { return "Sine" }
func (c *sine) Schema() schema.Schema { return sineSchema() }

func (c *sine) UpdateParams(partial schema.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = sineParamsFrom(partial, c.target)
}

func (c *sine) Params() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.Values{
		"amplitude": c.target.amplitude,
		"frequency": c.target.frequency,
		"phase":     c.target.phase,
		"dc":        c.target.dc,
		"smooth_ms": c.target.smoothMs,
	}
}

func (c *sine) Generate(dst []float32, startTime, sampleRate float64) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		zeroFill(dst)
		return
	}

	alpha := 1.0
	if c.target.smoothMs > 0 {
		chunkDur := float64(len(dst)) / sampleRate
		alpha = math.Min(1, chunkDur/(float64(c.target.smoothMs)/1000))
	}
	c.current.amplitude += alpha * (c.target.amplitude - c.current.amplitude)
	c.current.frequency += alpha * (c.target.frequency - c.current.frequency)
	c.current.phase += alpha * (c.target.phase - c.current.phase)
	c.current.dc += alpha * (c.target.dc - c.current.dc)
	c.current.smoothMs = c.target.smoothMs

	amp, freq, phase, dc := c.current.amplitude, c.current.frequency, c.current.phase, c.current.dc
	c.mu.Unlock()

	omega := 2 * math.Pi * freq
	for i := range dst {
		t := startTime + float64(i)/sampleRate
		dst[i] = float32(dc + amp*math.Sin(omega*t+phase))
	}
}
