package cwt

import (
	"math"
	"math/cmplx"
)

// basis describes one continuous wavelet: the closed-form kernel, the
// effective support of that kernel in natural time units, and the analytic
// center frequency used to convert target frequencies into scales.
type basis struct {
	name        string
	centerFreq  float64
	halfSupport float64
	psi         func(t float64) complex128
}

// L2 normalization constants of the Gaussian-derivative family.
var (
	mexhNorm = 2 / (math.Sqrt(3) * math.Pow(math.Pi, 0.25))
	gausNorm = math.Pow(2/math.Pi, 0.25)
)

var bases = []basis{
	{
		name:        "morl",
		centerFreq:  5 / (2 * math.Pi),
		halfSupport: 8,
		psi: func(t float64) complex128 {
			return complex(math.Exp(-0.5*t*t)*math.Cos(5*t), 0)
		},
	},
	{
		name:        "mexh",
		centerFreq:  math.Sqrt2 / (2 * math.Pi),
		halfSupport: 8,
		psi: func(t float64) complex128 {
			return complex(mexhNorm*(1-t*t)*math.Exp(-0.5*t*t), 0)
		},
	},
	{
		name:        "gaus1",
		centerFreq:  math.Sqrt2 / (2 * math.Pi),
		halfSupport: 5,
		psi: func(t float64) complex128 {
			return complex(gausNorm*-2*t*math.Exp(-t*t), 0)
		},
	},
	{
		name:        "gaus2",
		centerFreq:  1 / math.Pi,
		halfSupport: 5,
		psi: func(t float64) complex128 {
			return complex(gausNorm/math.Sqrt(3)*(2-4*t*t)*math.Exp(-t*t), 0)
		},
	},
	{
		name:        "cgau1",
		centerFreq:  1 / math.Pi,
		halfSupport: 5,
		psi: func(t float64) complex128 {
			return complex(-2*t, -1) * cmplx.Exp(complex(-t*t, -t)) * complex(gausNorm/math.Sqrt2, 0)
		},
	},
	{
		name:        "shan1-1.5",
		centerFreq:  1.5,
		halfSupport: 20,
		psi: func(t float64) complex128 {
			return complex(sinc(t), 0) * cmplx.Exp(complex(0, 3*math.Pi*t))
		},
	},
}

func sinc(t float64) float64 {
	if t == 0 {
		return 1
	}
	return math.Sin(math.Pi*t) / (math.Pi * t)
}

// Wavelets lists the supported basis names in schema order.
func Wavelets() []string {
	names := make([]string, len(bases))
	for i, b := range bases {
		names[i] = b.name
	}
	return names
}

func basisByName(name string) (basis, bool) {
	for _, b := range bases {
		if b.name == name {
			return b, true
		}
	}
	return basis{}, false
}
