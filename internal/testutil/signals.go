// Package testutil provides deterministic trace builders and numeric
// assertions shared by the toolkit's tests.
package testutil

import (
	"math"
	"math/rand"
)

// SineColumn generates one channel of a sine wave.
func SineColumn(freqHz, sampleRate, amplitude float64, frames int) []float64 {
	out := make([]float64, frames)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// SineTraces builds frame-major traces with one sine per channel.
func SineTraces(sampleRate, amplitude float64, freqsHz []float64, frames int) [][]float64 {
	out := make([][]float64, frames)
	for i := range out {
		out[i] = make([]float64, len(freqsHz))
		for ch, f := range freqsHz {
			out[i][ch] = amplitude * math.Sin(2*math.Pi*f*float64(i)/sampleRate)
		}
	}
	return out
}

// NoiseTraces builds frame-major white-noise traces with a fixed seed
// for reproducibility.
func NoiseTraces(seed int64, amplitude float64, frames, channels int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, frames)
	for i := range out {
		out[i] = make([]float64, channels)
		for ch := range out[i] {
			out[i][ch] = (rng.Float64()*2 - 1) * amplitude
		}
	}
	return out
}
