// Package stft implements the builtin short-time Fourier analyzer. The
// window is cut into overlapping segments, each windowed and transformed,
// giving a spectrogram with uniform frequency resolution; one column per
// segment, one row per FFT bin up to Nyquist.
package stft

import (
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/wavescope/schema"
	"github.com/cwbudde/wavescope/transform"
)

const (
	// minWindow is the shortest window the transform analyzes; anything
	// below collapses to a single zero row.
	minWindow = 16

	minSegment = 16
	maxSegment = 16384
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Analyzer computes overlapped FFT spectrograms. Stateless, safe for
// concurrent use.
type Analyzer struct{}

// New returns the registry entry for the short-time Fourier analyzer.
func New() transform.Entry {
	return transform.Entry{
		Info: transform.Info{
			ID:          "builtin:stft_spec",
			Name:        "STFT spectrogram (frequency axis)",
			Kind:        "STFT",
			Version:     "1.0",
			Description: "Short-time Fourier transform with uniform frequency bins up to Nyquist.",
		},
		Transform: &Analyzer{},
	}
}

// DescribeParams returns the parameter schema of the spectrogram.
func (a *Analyzer) DescribeParams() schema.Schema {
	return schema.Schema{
		{
			Key: "window", Label: "Window", Type: schema.TypeChoice, Default: "hann",
			Choices:     Windows(),
			Description: "Taper applied to each segment before the FFT.",
			Examples:    []string{"hann - general purpose", "blackman - lower sidelobes, wider main lobe"},
		},
		{
			Key: "fft_size", Label: "Segment length", Type: schema.TypeInt, Default: 256,
			Min: minSegment, Max: maxSegment, Step: 16, HasRange: true,
			Description: "Samples per segment, rounded up to a power of two and capped at the window length.",
			Examples:    []string{"128 - fine time resolution", "1024 - fine frequency resolution"},
		},
		{
			Key: "overlap", Label: "Segment overlap", Type: schema.TypeFloat, Default: 0.5,
			Min: 0, Max: 0.95, Step: 0.05, HasRange: true,
			Description: "Fraction of each segment shared with the next one.",
			Examples:    []string{"0.5 - typical", "0.75 - smoother time axis, more CPU"},
		},
		{
			Key: "magnitude", Label: "Coefficient magnitude", Type: schema.TypeChoice, Default: "abs",
			Choices:     []string{"abs", "power"},
			Description: "Displayed quantity: |X| or |X|^2.",
		},
		{
			Key: "normalize", Label: "Normalization", Type: schema.TypeChoice, Default: "none",
			Choices:     []string{"none", "max", "zscore"},
			Description: "Normalization of the 2D coefficient map before display.",
		},
	}
}

// Transform analyzes the window and returns a frequency-by-time magnitude
// map with one row per FFT bin in ascending frequency order.
func (a *Analyzer) Transform(samples []float32, sampleRate float64, params schema.Values) (*transform.Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stft: sample rate must be positive, got %v", sampleRate)
	}

	wname := params.String("window", "hann")
	if _, ok := windowSpecs[wname]; !ok {
		return nil, fmt.Errorf("stft: unknown window %q", wname)
	}
	magnitude := params.String("magnitude", "abs")
	normalize := params.String("normalize", "none")

	n := len(samples)
	meta := map[string]any{
		"mode":      "STFT",
		"window":    wname,
		"magnitude": magnitude,
		"normalize": normalize,
	}

	if n < minWindow {
		cols := n
		if cols < 1 {
			cols = 1
		}
		return &transform.Result{
			Image:  [][]float32{make([]float32, cols)},
			YAxis:  []float32{0},
			XAxis:  rawTimeAxis(cols, sampleRate),
			YLabel: "Hz",
			Meta:   meta,
		}, nil
	}

	nfft := segmentLen(params.Int("fft_size", 256), n)
	hop := hopLen(nfft, params.Float("overlap", 0.5))
	win, _ := windowCoeffs(wname, nfft)
	meta["fft_size"] = nfft
	meta["hop"] = hop

	rows, xAxis, err := spectrogram(samples, sampleRate, win, nfft, hop, magnitude != "abs")
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
	yAxis := make([]float32, len(rows))
	for k := range yAxis {
		yAxis[k] = float32(float64(k) * sampleRate / float64(nfft))
	}

	return &transform.Result{
		Image:  image,
		YAxis:  yAxis,
		XAxis:  xAxis,
		YLabel: "Hz",
		Meta:   meta,
	}, nil
}

// spectrogram computes one magnitude row per FFT bin. Columns sit at the
// segment centers; the x axis reports those centers in seconds.
func spectrogram(samples []float32, sampleRate float64, win []float64, nfft, hop int, power bool) ([][]float64, []float32, error) {
	n := len(samples)
	cols := 1 + (n-nfft)/hop
	bins := nfft/2 + 1

	plan, err := algofft.NewPlan64(nfft)
	if err != nil {
		return nil, nil, fmt.Errorf("stft: create fft plan: %w", err)
	}

	rows := make([][]float64, bins)
	for k := range rows {
		rows[k] = make([]float64, cols)
	}
	xAxis := make([]float32, cols)

	in := make([]complex128, nfft)
	spec := make([]complex128, nfft)
	col := make([]float64, bins)
	re, im, buf := getScratch(bins)
	defer putScratch(buf)

	for s := 0; s < cols; s++ {
		off := s * hop
		for j := 0; j < nfft; j++ {
			in[j] = complex(float64(samples[off+j])*win[j], 0)
		}
		if err := plan.Forward(spec, in); err != nil {
			return nil, nil, fmt.Errorf("stft: segment fft: %w", err)
		}

		for k := 0; k < bins; k++ {
			re[k] = real(spec[k])
			im[k] = imag(spec[k])
		}
		if power {
			vecmath.Power(col, re, im)
		} else {
			vecmath.Magnitude(col, re, im)
		}
		for k := 0; k < bins; k++ {
			rows[k][s] = col[k]
		}
		xAxis[s] = float32(float64(off+nfft/2) / sampleRate)
	}
	return rows, xAxis, nil
}

// segmentLen rounds the requested segment length up to a power of two
// within [minSegment, maxSegment], then shrinks it to the largest power of
// two the window can hold.
func segmentLen(requested, n int) int {
	if requested < minSegment {
		requested = minSegment
	}
	if requested > maxSegment {
		requested = maxSegment
	}
	nfft := minSegment
	for nfft < requested {
		nfft <<= 1
	}
	for nfft > n && nfft > minSegment {
		nfft >>= 1
	}
	return nfft
}

// hopLen converts an overlap fraction to a hop in samples, at least one.
func hopLen(nfft int, overlap float64) int {
	if math.IsNaN(overlap) || overlap < 0 {
		overlap = 0
	}
	if overlap > 0.95 {
		overlap = 0.95
	}
	hop := int(float64(nfft) * (1 - overlap))
	if hop < 1 {
		hop = 1
	}
	return hop
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

// rawTimeAxis is the per-sample axis used for the degenerate result, where
// no segmentation happens.
func rawTimeAxis(n int, sampleRate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(float64(i) / sampleRate)
	}
	return out
}
