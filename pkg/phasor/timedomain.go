// Package phasor implements time-domain phasor analysis for fluorescence
// lifetime data: the normalized sine and cosine Fourier transforms that map a
// decay curve onto the phasor plot, and the calibration helpers used to
// correct measured coordinates.
package phasor

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/elevans/imgal/pkg/parameter"
)

// Real computes the real (G) component of a 1-dimensional decay curve using
// the normalized cosine Fourier transform:
//
//	G = ∫(I(t) * cos(nωt) * dt) / ∫(I(t) * dt)
//
// A harmonic of 0 defaults to 1.0 and an omega of 0 defaults to 2π/period.
func Real(data []float64, period, harmonic, omega float64) float64 {
	h, w := timeDomainDefaults(period, harmonic, omega)
	dt := period / float64(len(data))

	var sum, g float64
	for i, v := range data {
		t := float64(i) * dt
		sum += v
		g += v * math.Cos(h*w*t)
	}
	if sum == 0 {
		return 0
	}
	return g / sum
}

// Imaginary computes the imaginary (S) component of a 1-dimensional decay
// curve using the normalized sine Fourier transform:
//
//	S = ∫(I(t) * sin(nωt) * dt) / ∫(I(t) * dt)
//
// A harmonic of 0 defaults to 1.0 and an omega of 0 defaults to 2π/period.
func Imaginary(data []float64, period, harmonic, omega float64) float64 {
	h, w := timeDomainDefaults(period, harmonic, omega)
	dt := period / float64(len(data))

	var sum, s float64
	for i, v := range data {
		t := float64(i) * dt
		sum += v
		s += v * math.Sin(h*w*t)
	}
	if sum == 0 {
		return 0
	}
	return s / sum
}

// Image computes the phasor coordinates of a 3-dimensional decay image laid
// out as data[row][col][sample]. The result has shape [row][col][2] with G
// and S at channel indexes 0 and 1. Pixels excluded by a non-nil mask are
// left at (0, 0). A harmonic of 0 defaults to 1.0 and an omega of 0 defaults
// to 2π/period.
func Image(data [][][]float64, period, harmonic, omega float64, mask [][]bool) ([][][]float64, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, eris.New("decay image must not be empty")
	}
	if mask != nil && (len(mask) != len(data) || len(mask[0]) != len(data[0])) {
		return nil, eris.Errorf("mask shape %dx%d does not match image shape %dx%d",
			len(mask), len(mask[0]), len(data), len(data[0]))
	}

	out := make([][][]float64, len(data))
	for r := range data {
		out[r] = make([][]float64, len(data[r]))
		for c := range data[r] {
			gs := make([]float64, 2)
			if mask == nil || mask[r][c] {
				gs[0] = Real(data[r][c], period, harmonic, omega)
				gs[1] = Imaginary(data[r][c], period, harmonic, omega)
			}
			out[r][c] = gs
		}
	}

	return out, nil
}

func timeDomainDefaults(period, harmonic, omega float64) (float64, float64) {
	if harmonic == 0 {
		harmonic = 1.0
	}
	if omega == 0 {
		omega = parameter.Omega(period)
	}
	return harmonic, omega
}
