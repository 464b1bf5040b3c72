package phasor

import "math"

// Modulation computes the modulation (M) of a phasor coordinate pair, the
// distance of the point (G, S) from the origin.
func Modulation(g, s float64) float64 {
	return math.Sqrt(g*g + s*s)
}

// Phase computes the phase angle (φ) of a phasor coordinate pair.
func Phase(g, s float64) float64 {
	return math.Atan2(s, g)
}

// MonoexponentialCoordinates computes the theoretical phasor coordinates of a
// monoexponential decay with lifetime tau at angular frequency omega. The
// point lies on the universal semicircle:
//
//	G = 1 / (1 + (ωτ)²)
//	S = ωτ / (1 + (ωτ)²)
func MonoexponentialCoordinates(tau, omega float64) (float64, float64) {
	wt := omega * tau
	g := 1.0 / (1.0 + wt*wt)
	return g, wt * g
}
