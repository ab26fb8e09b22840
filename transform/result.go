package transform

// Result is one rendered analysis frame. Every call produces fresh slices;
// nothing is aliased to analyzer internals, so callers may hold a Result
// for as long as they like.
type Result struct {
	// Image holds the map in row-major order: Image[r][c] is the value for
	// YAxis[r] at XAxis[c]. All rows have the same length.
	Image [][]float32
	// YAxis labels the rows, for example center frequencies in Hz.
	YAxis []float32
	// XAxis labels the columns in seconds relative to the window start.
	XAxis []float32
	// YLabel names the y-axis unit.
	YLabel string
	// Meta carries analyzer-specific annotations for display.
	Meta map[string]any
}

// Rows returns the number of image rows.
func (r *Result) Rows() int { return len(r.Image) }

// Cols returns the number of image columns, zero for an empty image.
func (r *Result) Cols() int {
	if len(r.Image) == 0 {
		return 0
	}
	return len(r.Image[0])
}
