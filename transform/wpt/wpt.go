// Package wpt implements the builtin discrete wavelet analyzer. It renders
// either a multilevel DWT detail decomposition or a wavelet packet level as
// a band-by-time image, one row per subband.
package wpt

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/wavescope/schema"
	"github.com/cwbudde/wavescope/transform"
)

// minWindow is the shortest window the transform analyzes; anything below
// collapses to a single zero row.
const minWindow = 16

// Analyzer computes DWT and WPT band decompositions. Stateless, safe for
// concurrent use.
type Analyzer struct{}

// New returns the registry entry for the discrete wavelet analyzer.
func New() transform.Entry {
	return transform.Entry{
		Info: transform.Info{
			ID:          "builtin:dwt_wpt",
			Name:        "DWT / WPT band decomposition",
			Kind:        "DWT/WPT",
			Version:     "1.1",
			Description: "Discrete wavelet decomposition with selectable detail levels or packet nodes.",
		},
		Transform: &Analyzer{},
	}
}

// DescribeParams returns the parameter schema of the decomposition.
func (a *Analyzer) DescribeParams() schema.Schema {
	return schema.Schema{
		{
			Key: "mode", Label: "Decomposition", Type: schema.TypeChoice, Default: "WPT",
			Choices:     []string{"DWT", "WPT"},
			Description: "DWT shows detail levels, WPT shows all packet nodes of one level.",
			Examples:    []string{"DWT - octave bands", "WPT - uniform bands"},
		},
		{
			Key: "wavelet", Label: "Wavelet", Type: schema.TypeChoice, Default: "db4",
			Choices:     Wavelets(),
			Description: "Orthogonal wavelet used for the filter bank.",
			Examples:    []string{"haar - blocky, fast", "db4 - smooth, selective"},
		},
		{
			Key: "maxlevel", Label: "Max level", Type: schema.TypeInt, Default: 5,
			Min: 1, Max: 14, Step: 1, HasRange: true,
			Description: "Deepest decomposition level. Clamped to what the window length allows.",
			Examples:    []string{"3-5 - typical", "8+ - long windows only"},
		},
		{
			Key: "show_approx", Label: "Show approximation", Type: schema.TypeBool, Default: false,
			Description: "Include the final approximation band as the first DWT row.",
		},
		{
			Key: "wpt_level", Label: "WPT level", Type: schema.TypeInt, Default: 4,
			Min: 1, Max: 14, Step: 1, HasRange: true,
			Description: "Packet tree depth; the level has 2^depth uniform bands.",
			Examples:    []string{"3 - 8 bands", "5 - 32 bands"},
		},
		{
			Key: "wpt_nodes", Label: "WPT nodes", Type: schema.TypeString, Default: "",
			Description: "Comma-separated packet paths to keep (empty keeps all), e.g. \"aa, ad\".",
		},
		{
			Key: "wpt_select", Label: "WPT selection", Type: schema.TypeChoice, Default: "all",
			Choices:     []string{"all", "top_energy"},
			Description: "Keep all nodes or only the most energetic ones.",
		},
		{
			Key: "top_k", Label: "Top nodes", Type: schema.TypeInt, Default: 8,
			Min: 1, Max: 256, Step: 1, HasRange: true,
			Description: "Number of nodes kept by top_energy selection, ordered by energy.",
		},
		{
			Key: "magnitude", Label: "Coefficient magnitude", Type: schema.TypeChoice, Default: "abs",
			Choices:     []string{"abs", "power"},
			Description: "Displayed quantity: |coef| or coef^2.",
		},
		{
			Key: "normalize", Label: "Normalization", Type: schema.TypeChoice, Default: "none",
			Choices:     []string{"none", "max", "zscore"},
			Description: "Normalization of the 2D coefficient map before display.",
		},
	}
}

// Transform analyzes the window and returns a band-by-time magnitude map.
// Row i sits at y-axis position i; the labels meta entry names each row.
func (a *Analyzer) Transform(samples []float32, sampleRate float64, params schema.Values) (*transform.Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wpt: sample rate must be positive, got %v", sampleRate)
	}

	mode := params.String("mode", "WPT")
	wname := params.String("wavelet", "db4")
	w, ok := waveletByName(wname)
	if !ok {
		return nil, fmt.Errorf("wpt: unknown wavelet %q", wname)
	}
	magnitude := params.String("magnitude", "abs")
	normalize := params.String("normalize", "none")

	n := len(samples)
	if n < minWindow {
		cols := n
		if cols < 1 {
			cols = 1
		}
		return &transform.Result{
			Image:  [][]float32{make([]float32, cols)},
			YAxis:  []float32{0},
			XAxis:  timeAxis(cols, sampleRate),
			YLabel: "level/node",
			Meta:   map[string]any{"mode": mode, "wavelet": wname},
		}, nil
	}

	x := make([]float64, n)
	for i, v := range samples {
		x[i] = float64(v)
	}

	var (
		rows   [][]float64
		labels []string
		meta   map[string]any
	)
	if mode == "DWT" {
		rows, labels, meta = a.decomposeDWT(x, w, params)
	} else {
		rows, labels, meta = a.decomposeWPT(x, w, params)
	}
	meta["wavelet"] = wname
	meta["labels"] = labels

	applyMagnitude(rows, magnitude)
	normalizeRows(rows, normalize)

	image := make([][]float32, len(rows))
	yAxis := make([]float32, len(rows))
	for i, row := range rows {
		r := make([]float32, len(row))
		for j, v := range row {
			r[j] = float32(v)
		}
		image[i] = r
		yAxis[i] = float32(i)
	}

	return &transform.Result{
		Image:  image,
		YAxis:  yAxis,
		XAxis:  timeAxis(n, sampleRate),
		YLabel: "level/node",
		Meta:   meta,
	}, nil
}

// decomposeDWT runs a multilevel analysis and returns one stretched row per
// detail level, deepest first, optionally preceded by the approximation.
func (a *Analyzer) decomposeDWT(x []float64, w waveletFilters, params schema.Values) ([][]float64, []string, map[string]any) {
	n := len(x)
	level := clampLevel(params.Int("maxlevel", 5), dwtMaxLevel(n, len(w.decLo)))
	showApprox := params.Bool("show_approx", false)

	cur := x
	details := make([][]float64, 0, level)
	for l := 0; l < level; l++ {
		details = append(details, dwtStep(cur, w.decHi))
		cur = dwtStep(cur, w.decLo)
	}

	rows := make([][]float64, 0, level+1)
	labels := make([]string, 0, level+1)
	if showApprox {
		rows = append(rows, stretchToLen(cur, n))
		labels = append(labels, fmt.Sprintf("A%d", level))
	}
	for l := level; l >= 1; l-- {
		rows = append(rows, stretchToLen(details[l-1], n))
		labels = append(labels, fmt.Sprintf("D%d", l))
	}

	return rows, labels, map[string]any{"mode": "DWT", "level": level}
}

// decomposeWPT expands the full packet tree to the requested level and
// returns the leaf bands in ascending frequency order, optionally filtered
// by name or reordered by energy.
func (a *Analyzer) decomposeWPT(x []float64, w waveletFilters, params schema.Values) ([][]float64, []string, map[string]any) {
	n := len(x)
	level := params.Int("wpt_level", 4)
	if ml := params.Int("maxlevel", 5); level > ml {
		level = ml
	}
	level = clampLevel(level, dwtMaxLevel(n, len(w.decLo)))

	nodes := [][]float64{x}
	for l := 0; l < level; l++ {
		next := make([][]float64, 0, 2*len(nodes))
		for _, nd := range nodes {
			next = append(next, dwtStep(nd, w.decLo), dwtStep(nd, w.decHi))
		}
		nodes = next
	}

	type leaf struct {
		path   string
		coeffs []float64
	}
	leaves := make([]leaf, 0, len(nodes))
	for i := 0; i < 1<<level; i++ {
		g := i ^ (i >> 1)
		leaves = append(leaves, leaf{path: nodePath(g, level), coeffs: nodes[g]})
	}

	if wanted := parseNodeNames(params.String("wpt_nodes", "")); len(wanted) > 0 {
		kept := leaves[:0]
		for _, lf := range leaves {
			if wanted[lf.path] {
				kept = append(kept, lf)
			}
		}
		leaves = kept
	}

	if params.String("wpt_select", "all") == "top_energy" {
		type scored struct {
			leaf
			energy float64
		}
		sel := make([]scored, len(leaves))
		for i, lf := range leaves {
			e := 0.0
			for _, v := range lf.coeffs {
				e += v * v
			}
			sel[i] = scored{leaf: lf, energy: e}
		}
		sort.SliceStable(sel, func(i, j int) bool { return sel[i].energy > sel[j].energy })
		topK := params.Int("top_k", 8)
		if topK < 0 {
			topK = 0
		}
		if topK < len(sel) {
			sel = sel[:topK]
		}
		leaves = leaves[:0]
		for _, s := range sel {
			leaves = append(leaves, s.leaf)
		}
	}

	meta := map[string]any{"mode": "WPT", "level": level}
	if len(leaves) == 0 {
		return [][]float64{make([]float64, n)}, []string{"(none)"}, meta
	}

	rows := make([][]float64, len(leaves))
	labels := make([]string, len(leaves))
	for i, lf := range leaves {
		rows[i] = stretchToLen(lf.coeffs, n)
		labels[i] = lf.path
	}
	return rows, labels, meta
}

// nodePath renders a packet tree position as its root-to-leaf path, 'a' for
// the lowpass branch and 'd' for the highpass branch.
func nodePath(index, level int) string {
	var b strings.Builder
	b.Grow(level)
	for bit := level - 1; bit >= 0; bit-- {
		if index>>bit&1 == 1 {
			b.WriteByte('d')
		} else {
			b.WriteByte('a')
		}
	}
	return b.String()
}

func parseNodeNames(s string) map[string]bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = true
	}
	return set
}

// dwtStep convolves one analysis filter against the symmetric extension of
// x and keeps the odd output phase, halving the length.
func dwtStep(x, filt []float64) []float64 {
	n := len(x)
	f := len(filt)
	out := make([]float64, (n+f-1)/2)
	for i := range out {
		acc := 0.0
		for j := 0; j < f; j++ {
			acc += filt[j] * x[symIndex(2*i+1-j, n)]
		}
		out[i] = acc
	}
	return out
}

// symIndex maps an out-of-range position onto [0,n) by half-sample
// symmetric reflection, bouncing at both ends.
func symIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// dwtMaxLevel returns the deepest useful decomposition level for a window
// of n samples and the given filter length.
func dwtMaxLevel(n, filterLen int) int {
	level := 0
	for (filterLen-1)<<(level+1) <= n {
		level++
	}
	return level
}

func clampLevel(level, limit int) int {
	if level > limit {
		level = limit
	}
	if level < 1 {
		level = 1
	}
	return level
}

// stretchToLen resamples a coefficient row onto n columns by linear
// interpolation so every band spans the full time axis.
func stretchToLen(src []float64, n int) []float64 {
	if len(src) == n {
		out := make([]float64, n)
		copy(out, src)
		return out
	}
	if len(src) <= 1 || n == 1 {
		return make([]float64, n)
	}
	out := make([]float64, n)
	scale := float64(len(src)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * scale
		lo := int(pos)
		if lo >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = src[lo]*(1-frac) + src[lo+1]*frac
	}
	return out
}

func applyMagnitude(rows [][]float64, mode string) {
	for _, row := range rows {
		if mode == "abs" {
			for i, v := range row {
				row[i] = math.Abs(v)
			}
		} else {
			for i, v := range row {
				row[i] = v * v
			}
		}
	}
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
