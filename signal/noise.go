package signal

import (
	"math"
	"math/rand"

	"github.com/cwbudde/wavescope/schema"
)

func noiseSchema() schema.Schema {
	return schema.Schema{
		{
			Key: "mean", Label: "Mean", Type: schema.TypeFloat, Default: 0.0,
			Min: -5, Max: 5, Step: 0.01, HasRange: true,
			Description: "Expected value of the white Gaussian noise.",
			Examples:    []string{"0 - noise around zero", "0.2 - adds a constant offset through the noise"},
		},
		{
			Key: "sigma", Label: "Std dev", Type: schema.TypeFloat, Default: 0.2,
			Min: 0, Max: 5, Step: 0.01, HasRange: true,
			Description: "Standard deviation, determines the noise strength.",
			Examples:    []string{"0.05 - weak noise", "0.5 - strong noise"},
		},
		{
			Key: "seed", Label: "Seed (0 = random)", Type: schema.TypeInt, Default: 0,
			Min: 0, Max: 10000, Step: 1, HasRange: true,
			Description: "Random generator seed. A non-zero seed makes the noise reproducible.",
			Examples:    []string{"0 - different realization every run", "123 - identical noise for identical settings"},
		},
	}
}

type noiseParams struct {
	mean  float64
	sigma float64
	seed  int64
}

func noiseParamsFrom(v schema.Values, prev noiseParams) noiseParams {
	return noiseParams{
		mean:  v.Float("mean", prev.mean),
		sigma: v.Float("sigma", prev.sigma),
		seed:  int64(v.Int("seed", int(prev.seed))),
	}
}

// noise generates white Gaussian samples. The generator is reseeded whenever
// the seed parameter changes; seed zero draws a fresh entropy seed instead.
type noise struct {
	base
	p        noiseParams
	rng      *rand.Rand
	lastSeed int64
}

func newNoise(values schema.Values, enabled bool) *noise {
	c := &noise{lastSeed: -1}
	c.enabled = enabled
	c.p = noiseParamsFrom(values, noiseParams{sigma: 0.2})
	return c
}

func (c *noise) Kind() string          { return KindNoise }
func (c *noise) Name() string          { return "Gaussian noise" }
func (c *noise) Schema() schema.Schema { return noiseSchema() }

func (c *noise) UpdateParams(partial schema.Values) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.p = noiseParamsFrom(partial, c.p)
}

func (c *noise) Params() schema.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schema.Values{"mean": c.p.mean, "sigma": c.p.sigma, "seed": int(c.p.seed)}
}

func (c *noise) Generate(dst []float32, _, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		zeroFill(dst)
		return
	}

	if c.rng == nil || c.p.seed != c.lastSeed {
		c.lastSeed = c.p.seed
		seed := c.p.seed
		if seed == 0 {
			seed = rand.Int63()
		}
		c.rng = rand.New(rand.NewSource(seed))
	}

	mean, sigma := c.p.mean, c.p.sigma
	if sigma < 0 || math.IsNaN(sigma) {
		sigma = 0
	}
	for i := range dst {
		dst[i] = float32(mean + sigma*c.rng.NormFloat64())
	}
}
