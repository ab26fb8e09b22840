package signal

import (
	"math"

	"github.com/cwbudde/wavescope/schema"
)

func gaussPulseSchema() schema.Schema {
	return schema.Schema{
		{
			Key: "amplitude", Label: "Amplitude", Type: schema.TypeFloat, Default: 1.0,
			Min: 0, Max: 10, Step: 0.01, HasRange: true,
			Description: "Peak amplitude of the Gaussian pulse.",
			Examples:    []string{"A=1.0 - base level", "A=3.0 - pronounced pulse"},
		},
		{
			Key: "sigma_sec", Label: "Width sigma (s)", Type: schema.TypeFloat, Default: 0.01,
			Min: 0.0002, Max: 2, Step: 0.0002, HasRange: true,
			Description: "Sigma controls the pulse duration in time.",
			Examples:    []string{"0.01 s - short pulse", "0.1 s - wider pulse"},
		},
		{
			Key: "center_time_sec", Label: "Center (s)", Type: schema.TypeFloat, Default: 1.0,
			Min: 0, Max: 60, Step: 0.01, HasRange: true,
			Description: "Time of the first pulse maximum.",
			Examples:    []string{"1.0 s - pulse around one second", "0.2 s - early pulse"},
		},
		{
			Key: "repetition_period_sec", Label: "Repetition period (s, 0 = off)", Type: schema.TypeFloat, Default: 0.0,
			Min: 0, Max: 10, Step: 0.01, HasRange: true,
			Description: "Pulse repetition period. Zero produces a single pulse.",
			Examples:    []string{"0 - single pulse", "0.5 - a pulse every half second"},
		},
	}
}

type gaussPulseParams struct {
	amplitude float64
	sigma     float64
	center    float64
	period    float64
}

func gaussPulseParamsFrom(v schema.Values, prev gaussPulseParams) gaussPulseParams {
	return gaussPulseParams{
		amplitude: v.Float("amplitude", prev.amplitude),
		sigma:     v.Float("sigma_sec", prev.sigma),
		center:    v.Float("center_time_sec", prev.center),
		period:    v.Float("repetition_period_sec", prev.period),
	}
}

// gaussPulse generates Gaussian pulses, optionally repeated. Only the
// repetitions that can overlap the requested chunk are enumerated, so long
// runs stay cheap regardless of how far the clock has advanced.
type gaussPulse struct {
	base
	p gaussPulseParams
}

func newGaussPulse(values schema.Values, enabled bool) *gaussPulse {
	c := &gaussPulse{}
	c.enabled = enabled
	c.p = gaussPulseParamsFrom(values, gaussPulseParams{amplitude: 1, sigma: 0.01, center: 1})
	return c
}

func (c *gaussPulse) Kind() string          { return KindGaussPulse }
func (c *gaussPulse) Name() string          { return "Gaussian pulses" }
func (c *gaussPulse) Schema() schema.Schema { return gaussPulseSchema() }

func (c *gaussPulse) UpdateParams(partial schema.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.p = gaussPulseParamsFrom(partial, c.p)
}

func (c *gaussPulse) Params() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.Values{
		"amplitude":             c.p.amplitude,
		"sigma_sec":             c.p.sigma,
		"center_time_sec":       c.p.center,
		"repetition_period_sec": c.p.period,
	}
}

func (c *gaussPulse) Generate(dst []float32, startTime, sampleRate float64) {
	c.mu.Lock()
	p := c.p
	enabled := c.enabled
	c.mu.Unlock()

	zeroFill(dst)
	if !enabled || p.sigma <= 0 {
		return
	}

	centers := []float64{p.center}
	if p.period > 0 {
		// Enumerate only repetitions near this chunk.
		chunkMid := startTime + float64(len(dst))/sampleRate*0.5
		k0 := int((chunkMid - p.center) / p.period)
		centers = centers[:0]
		for dk := -2; dk <= 2; dk++ {
			c := p.center + float64(k0+dk)*p.period
			if c >= 0 {
				centers = append(centers, c)
			}
		}
	}

	for _, center := range centers {
		for i := range dst {
			t := startTime + float64(i)/sampleRate
			u := (t - center) / p.sigma
			dst[i] += float32(p.amplitude * math.Exp(-0.5*u*u))
		}
	}
}
