// Package testutil provides deterministic signal fixtures and tolerance
// helpers shared by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a sine wave sampled from t=0.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// SineChunk generates a float32 sine chunk whose time axis begins at
// startTime, the way generated chunks are stamped.
func SineChunk(freqHz, sampleRate, amplitude, startTime float64, length int) []float32 {
	out := make([]float32, length)
	for i := range out {
		t := startTime + float64(i)/sampleRate
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freqHz*t))
	}
	return out
}

// DeterministicNoise generates uniform white noise with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// ToFloat32 converts an analysis slice to a sample chunk.
func ToFloat32(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, v := range xs {
		out[i] = float32(v)
	}
	return out
}

// ToFloat64 converts a sample chunk to an analysis slice.
func ToFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
}
