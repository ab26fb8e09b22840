package wpt

// waveletFilters holds the analysis filter pair of one orthogonal wavelet.
type waveletFilters struct {
	name  string
	decLo []float64
	decHi []float64
}

// newFilters derives the analysis pair from the reconstruction lowpass
// filter: decLo is its reverse, decHi the quadrature mirror with alternating
// signs.
func newFilters(name string, recLo []float64) waveletFilters {
	f := len(recLo)
	decLo := make([]float64, f)
	decHi := make([]float64, f)
	for k, v := range recLo {
		decLo[f-1-k] = v
		if k%2 == 0 {
			decHi[k] = -v
		} else {
			decHi[k] = v
		}
	}
	return waveletFilters{name: name, decLo: decLo, decHi: decHi}
}

var wavelets = []waveletFilters{
	newFilters("haar", []float64{
		0.7071067811865476,
		0.7071067811865476,
	}),
	newFilters("db2", []float64{
		0.48296291314469025,
		0.8365163037378079,
		0.22414386804185735,
		-0.12940952255092145,
	}),
	newFilters("db4", []float64{
		0.23037781330885523,
		0.7148465705525415,
		0.6308807679295904,
		-0.02798376941698385,
		-0.18703481171888114,
		0.030841381835986965,
		0.032883011666982945,
		-0.010597401784997278,
	}),
	newFilters("sym4", []float64{
		0.03222310060404270,
		-0.012603967262037833,
		-0.09921954357684722,
		0.29785779560527736,
		0.8037387518059161,
		0.49761866763201545,
		-0.02963552764599851,
		-0.07576571478927333,
	}),
	newFilters("coif1", []float64{
		-0.01565572813546454,
		-0.0727326195128539,
		0.38486484686420286,
		0.8525720202122554,
		0.3378976624578092,
		-0.0727326195128539,
	}),
}

// Wavelets lists the supported wavelet names in schema order.
func Wavelets() []string {
	names := make([]string, len(wavelets))
	for i, w := range wavelets {
		names[i] = w.name
	}
	return names
}

func waveletByName(name string) (waveletFilters, bool) {
	for _, w := range wavelets {
		if w.name == name {
			return w, true
		}
	}
	return waveletFilters{}, false
}
