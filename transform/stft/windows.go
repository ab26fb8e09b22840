package stft

import "math"

// windowSpec is one cosine-sum window family: w[i] = sum a_k * cos(2*pi*k*i/N)
// with alternating signs folded into the coefficients. Periodic form, the
// framing variant used for FFT analysis.
type windowSpec struct {
	coeffs []float64
}

var windowSpecs = map[string]windowSpec{
	"rect":     {coeffs: []float64{1}},
	"hann":     {coeffs: []float64{0.5, -0.5}},
	"hamming":  {coeffs: []float64{0.54, -0.46}},
	"blackman": {coeffs: []float64{0.42, -0.5, 0.08}},
}

// Windows lists the supported window names in choice order.
func Windows() []string {
	return []string{"hann", "hamming", "blackman", "rect"}
}

// windowCoeffs samples the named window at n points in periodic form.
func windowCoeffs(name string, n int) ([]float64, bool) {
	spec, ok := windowSpecs[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		x := 2 * math.Pi * float64(i) / float64(n)
		w := 0.0
		for k, a := range spec.coeffs {
			w += a * math.Cos(float64(k)*x)
		}
		out[i] = w
	}
	return out, true
}
