package signal

import (
	"math"

	"github.com/cwbudde/wavescope/schema"
)

func rectPulseSchema() schema.Schema {
	return schema.Schema{
		{
			Key: "amplitude", Label: "Amplitude", Type: schema.TypeFloat, Default: 1.0,
			Min: 0, Max: 10, Step: 0.01, HasRange: true,
			Description: "Amplitude of the rectangular pulses.",
			Examples:    []string{"A=1.0 - base level", "A=3.0 - pronounced pulses"},
		},
		{
			Key: "width_sec", Label: "Pulse width (s)", Type: schema.TypeFloat, Default: 0.02,
			Min: 0.0005, Max: 2, Step: 0.0005, HasRange: true,
			Description: "Duration of a single pulse.",
			Examples:    []string{"0.02 s - short pulse", "0.2 s - wide pulse"},
		},
		{
			Key: "period_sec", Label: "Repetition period (s)", Type: schema.TypeFloat, Default: 0.3,
			Min: 0.001, Max: 10, Step: 0.001, HasRange: true,
			Description: "Interval between pulse onsets. Repetition rate = 1/period.",
			Examples:    []string{"0.3 s = ~3.33 Hz", "1.0 s = 1 Hz"},
		},
		{
			Key: "start_time_sec", Label: "Start (s)", Type: schema.TypeFloat, Default: 0.0,
			Min: 0, Max: 60, Step: 0.01, HasRange: true,
			Description: "Time offset at which the pulse train begins.",
			Examples:    []string{"0 - immediately", "1.0 - pulses begin after one second"},
		},
	}
}

type rectPulseParams struct {
	amplitude float64
	width     float64
	period    float64
	start     float64
}

func rectPulseParamsFrom(v schema.Values, prev rectPulseParams) rectPulseParams {
	return rectPulseParams{
		amplitude: v.Float("amplitude", prev.amplitude),
		width:     v.Float("width_sec", prev.width),
		period:    v.Float("period_sec", prev.period),
		start:     v.Float("start_time_sec", prev.start),
	}
}

// rectPulse generates a periodic rectangular pulse train gated by the phase
// within each repetition period. Zero before the start time.
type rectPulse struct {
	base
	p rectPulseParams
}

func newRectPulse(values schema.Values, enabled bool) *rectPulse {
	c := &rectPulse{}
	c.enabled = enabled
	c.p = rectPulseParamsFrom(values, rectPulseParams{amplitude: 1, width: 0.02, period: 0.3})
	return c
}

func (c *rectPulse) Kind() string          { return KindRectPulse }
func (c *rectPulse) Name() string          { return "Rectangular pulses" }
func (c *rectPulse) Schema() schema.Schema { return rectPulseSchema() }

func (c *rectPulse) UpdateParams(partial schema.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.p = rectPulseParamsFrom(partial, c.p)
}

func (c *rectPulse) Params() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.Values{
		"amplitude":      c.p.amplitude,
		"width_sec":      c.p.width,
		"period_sec":     c.p.period,
		"start_time_sec": c.p.start,
	}
}

func (c *rectPulse) Generate(dst []float32, startTime, sampleRate float64) {
	c.mu.Lock()
	p := c.p
	enabled := c.enabled
	c.mu.Unlock()

	zeroFill(dst)
	if !enabled || p.period <= 0 {
		return
	}

	amp := float32(p.amplitude)
	for i := range dst {
		tt := startTime + float64(i)/sampleRate - p.start
		if tt < 0 {
			continue
		}
		if math.Mod(tt, p.period) < p.width {
			dst[i] = amp
		}
	}
}
