package simulation

import (
	"math"
	"math/rand"
)

// Poisson1D applies Poisson shot noise to a 1-dimensional signal. Each
// element is replaced by a Poisson draw with rate data[i] * scale. A
// non-negative seed makes the noise deterministic, a negative seed draws
// from a random source. The input is not mutated.
func Poisson1D(data []float64, scale float64, seed int64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	Poisson1DMut(out, scale, seed)
	return out
}

// Poisson1DMut applies Poisson shot noise to a 1-dimensional signal in
// place.
func Poisson1DMut(data []float64, scale float64, seed int64) {
	rng := newRand(seed)
	for i, v := range data {
		data[i] = poisson(rng, v*scale)
	}
}

// Poisson3D applies Poisson shot noise along the sample axis of a rows ×
// cols × samples image. A non-negative seed reseeds the generator per pixel,
// so every pixel receives the same noise pattern. The input is not mutated.
func Poisson3D(data [][][]float64, scale float64, seed int64) [][][]float64 {
	out := make([][][]float64, len(data))
	for r := range data {
		out[r] = make([][]float64, len(data[r]))
		for c := range data[r] {
			out[r][c] = Poisson1D(data[r][c], scale, seed)
		}
	}
	return out
}

// Poisson3DMut applies Poisson shot noise along the sample axis of a rows ×
// cols × samples image in place.
func Poisson3DMut(data [][][]float64, scale float64, seed int64) {
	for r := range data {
		for c := range data[r] {
			Poisson1DMut(data[r][c], scale, seed)
		}
	}
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(seed))
}

// poisson draws a Poisson distributed sample at the given rate with Knuth's
// multiplication method, switching to a normal approximation for large
// rates where the product would underflow.
func poisson(rng *rand.Rand, lambda float64) float64 {
	switch {
	case lambda <= 0:
		return 0
	case lambda < 30:
		limit := math.Exp(-lambda)
		k := 0.0
		p := rng.Float64()
		for p > limit {
			k++
			p *= rng.Float64()
		}
		return k
	default:
		k := math.Round(lambda + math.Sqrt(lambda)*rng.NormFloat64())
		if k < 0 {
			return 0
		}
		return k
	}
}
