// Package cwt implements the builtin continuous scalogram analyzer with a
// frequency-labeled y-axis. Coefficients come from FFT correlation of the
// window with sampled, scaled wavelet kernels.
package cwt

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/wavescope/schema"
	"github.com/cwbudde/wavescope/transform"
)

// minWindow is the shortest window the transform analyzes; anything below
// collapses to a single zero row.
const minWindow = 16

// Analyzer computes a continuous wavelet scalogram over an ascending
// frequency grid. Stateless, safe for concurrent use.
type Analyzer struct{}

// New returns the registry entry for the continuous scalogram analyzer.
func New() transform.Entry {
	return transform.Entry{
		Info: transform.Info{
			ID:          "builtin:cwt_morlet",
			Name:        "CWT scalogram (frequency axis)",
			Kind:        "CWT",
			Version:     "1.3",
			Description: "Continuous wavelet transform with a frequency-resolved y-axis in Hz.",
		},
		Transform: &Analyzer{},
	}
}

// DescribeParams returns the parameter schema of the scalogram.
func (a *Analyzer) DescribeParams() schema.Schema {
	return schema.Schema{
		{
			Key: "wavelet", Label: "Wavelet", Type: schema.TypeChoice, Default: "morl",
			Choices:     Wavelets(),
			Description: "Continuous wavelet basis used for the correlation.",
			Examples:    []string{"morl - general purpose", "mexh - good for pulses"},
		},
		{
			Key: "magnitude", Label: "Coefficient magnitude", Type: schema.TypeChoice, Default: "abs",
			Choices:     []string{"abs", "power"},
			Description: "Displayed quantity: |CWT| or |CWT|^2.",
			Examples:    []string{"abs - amplitude", "power - energy (squared magnitude)"},
		},
		{
			Key: "normalize", Label: "Normalization", Type: schema.TypeChoice, Default: "none",
			Choices:     []string{"none", "max", "zscore"},
			Description: "Normalization of the 2D coefficient map before display.",
			Examples:    []string{"none - raw values", "max - divide by the maximum"},
		},
		{
			Key: "f_min", Label: "Min frequency (Hz)", Type: schema.TypeFloat, Default: 5.0,
			Min: 0.01, Max: 10000000, Step: 0.1, HasRange: true,
			Description: "Lower bound of the frequency grid.",
			Examples:    []string{"5-10 Hz - slow processes", "20 Hz - when the bottom end is uninteresting"},
		},
		{
			Key: "f_max", Label: "Max frequency (Hz)", Type: schema.TypeFloat, Default: 300.0,
			Min: 0.01, Max: 10000000, Step: 0.1, HasRange: true,
			Description: "Upper bound of the frequency grid, capped at Nyquist.",
			Examples:    []string{"300 Hz - fast details", "fs/2 - everything representable"},
		},
		{
			Key: "n_freqs", Label: "Frequency bins", Type: schema.TypeInt, Default: 128,
			Min: 8, Max: 4096, Step: 8, HasRange: true,
			Description: "Number of scalogram rows. More rows resolve finer, at higher CPU cost.",
			Examples:    []string{"64 - fast", "256-512 - detailed"},
		},
		{
			Key: "freq_spacing", Label: "Frequency scale", Type: schema.TypeChoice, Default: "linear",
			Choices:     []string{"linear", "log"},
			Description: "Distribution of the grid: uniform or logarithmic.",
			Examples:    []string{"linear - uniform rows", "log - detail at the low end"},
		},
	}
}

// Transform analyzes the window and returns a frequency-by-time magnitude
// map with rows in ascending frequency order.
func (a *Analyzer) Transform(samples []float32, sampleRate float64, params schema.Values) (*transform.Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("cwt: sample rate must be positive, got %v", sampleRate)
	}

	wname := params.String("wavelet", "morl")
	b, ok := basisByName(wname)
	if !ok {
		return nil, fmt.Errorf("cwt: unknown wavelet %q", wname)
	}
	magnitude := params.String("magnitude", "abs")
	normalize := params.String("normalize", "none")
	spacing := strings.ToLower(params.String("freq_spacing", "linear"))

	n := len(samples)
	meta := map[string]any{
		"mode":         "CWT",
		"wavelet":      wname,
		"magnitude":    magnitude,
		"normalize":    normalize,
		"freq_spacing": spacing,
	}

	if n < minWindow {
		cols := n
		if cols < 1 {
			cols = 1
		}
		return &transform.Result{
			Image:  [][]float32{make([]float32, cols)},
			YAxis:  []float32{0},
			XAxis:  timeAxis(cols, sampleRate),
			YLabel: "Hz",
			Meta:   meta,
		}, nil
	}

	fMin := params.Float("f_min", 5.0)
	fMax := params.Float("f_max", math.Min(sampleRate/2, 300))
	fMax = math.Min(fMax, sampleRate/2-1e-6)
	freqs := freqGrid(fMin, fMax, params.Int("n_freqs", 128), spacing)

	rows, err := correlate(samples, sampleRate, b, freqs, magnitude != "abs")
	if err != nil {
		return nil, err
	}
	normalizeRows(rows, normalize)

	image := make([][]float32, len(rows))
	for i, row := range rows {
		r := make([]float32, len(row))
		for j, v := range row {
			r[j] = float32(v)
		}
		image[i] = r
	}
	yAxis := make([]float32, len(freqs))
	for i, f := range freqs {
		yAxis[i] = float32(f)
	}

	return &transform.Result{
		Image:  image,
		YAxis:  yAxis,
		XAxis:  timeAxis(n, sampleRate),
		YLabel: "Hz",
		Meta:   meta,
	}, nil
}

// correlate computes one magnitude row per target frequency. Rows are
// evaluated at ascending scale (descending frequency) and written straight
// to their ascending-frequency slot, so the returned slice already matches
// the published y-axis.
func correlate(samples []float32, sampleRate float64, b basis, freqs []float64, power bool) ([][]float64, error) {
	n := len(samples)

	scales := make([]float64, len(freqs))
	maxHalf := 0
	for i, f := range freqs {
		s := math.Max(b.centerFreq*sampleRate/math.Max(f, 1e-6), 1e-6)
		scales[i] = s
		if h := kernelHalf(s, b.halfSupport, n); h > maxHalf {
			maxHalf = h
		}
	}

	fftSize := nextPow2(n + 2*maxHalf)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("cwt: create fft plan: %w", err)
	}

	pad := make([]complex128, fftSize)
	for i, v := range samples {
		pad[i] = complex(float64(v), 0)
	}
	spec := make([]complex128, fftSize)
	if err := plan.Forward(spec, pad); err != nil {
		return nil, fmt.Errorf("cwt: window fft: %w", err)
	}

	kernel := make([]complex128, fftSize)
	kfft := make([]complex128, fftSize)
	coef := make([]complex128, fftSize)
	re := make([]float64, n)
	im := make([]float64, n)

	rows := make([][]float64, len(freqs))
	for i := len(freqs) - 1; i >= 0; i-- {
		s := scales[i]
		h := kernelHalf(s, b.halfSupport, n)

		for j := range kernel {
			kernel[j] = 0
		}
		norm := complex(1/math.Sqrt(s), 0)
		for m := -h; m <= h; m++ {
			kernel[(m+fftSize)%fftSize] = b.psi(float64(m)/s) * norm
		}

		if err := plan.Forward(kfft, kernel); err != nil {
			return nil, fmt.Errorf("cwt: kernel fft: %w", err)
		}
		for k := range kfft {
			kfft[k] = spec[k] * cmplx.Conj(kfft[k])
		}
		if err := plan.Inverse(coef, kfft); err != nil {
			return nil, fmt.Errorf("cwt: inverse fft: %w", err)
		}

		for j := 0; j < n; j++ {
			re[j] = real(coef[j])
			im[j] = imag(coef[j])
		}
		row := make([]float64, n)
		if power {
			vecmath.Power(row, re, im)
		} else {
			vecmath.Magnitude(row, re, im)
		}
		rows[i] = row
	}
	return rows, nil
}

// kernelHalf bounds the sampled kernel to the part that can overlap the
// window: samples further than n-1 positions from any output column never
// touch it, so the truncation is exact.
func kernelHalf(scale, halfSupport float64, n int) int {
	h := int(scale * halfSupport)
	if h > n-1 {
		h = n - 1
	}
	if h < 0 {
		h = 0
	}
	return h
}

func freqGrid(fMin, fMax float64, n int, spacing string) []float64 {
	fMin = math.Max(fMin, 1e-6)
	fMax = math.Max(fMax, fMin*1.001)
	if n < 2 {
		n = 2
	}
	out := make([]float64, n)
	if spacing == "log" {
		ratio := fMax / fMin
		for i := range out {
			out[i] = fMin * math.Pow(ratio, float64(i)/float64(n-1))
		}
	} else {
		step := (fMax - fMin) / float64(n-1)
		for i := range out {
			out[i] = fMin + float64(i)*step
		}
	}
	out[n-1] = fMax
	return out
}

func normalizeRows(rows [][]float64, mode string) {
	switch mode {
	case "max":
		peak := 0.0
		for _, row := range rows {
			for _, v := range row {
				if v > peak {
					peak = v
				}
			}
		}
		if peak > 0 {
			inv := 1 / peak
			for _, row := range rows {
				vecmath.ScaleBlock(row, row, inv)
			}
		}
	case "zscore":
		count := 0
		sum := 0.0
		for _, row := range rows {
			for _, v := range row {
				sum += v
			}
			count += len(row)
		}
		if count == 0 {
			return
		}
		mean := sum / float64(count)
		ss := 0.0
		for _, row := range rows {
			for _, v := range row {
				d := v - mean
				ss += d * d
			}
		}
		sd := math.Sqrt(ss / float64(count))
		if sd <= 1e-9 {
			return
		}
		for _, row := range rows {
			for i, v := range row {
				row[i] = (v - mean) / sd
			}
		}
	}
}

func timeAxis(n int, sampleRate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(float64(i) / sampleRate)
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
