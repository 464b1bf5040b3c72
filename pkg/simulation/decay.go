// Package simulation generates synthetic fluorescence decay data for testing
// and calibration workflows.
package simulation

import (
	"math"

	"github.com/elevans/imgal/pkg/filter"
)

// IdealMonoexponential simulates an ideal 1-dimensional monoexponential decay
// curve:
//
//	I(t) = I₀ * e^(-t/τ)
//
// sampled at the given number of evenly spaced points over [0, period].
func IdealMonoexponential(samples int, period, tau, initialValue float64) []float64 {
	out := make([]float64, samples)
	if samples == 0 {
		return out
	}

	dt := period / float64(samples-1)
	if samples == 1 {
		dt = 0
	}
	for i := range out {
		t := float64(i) * dt
		out[i] = initialValue * math.Exp(-t/tau)
	}
	return out
}

// IdealMonoexponential3D broadcasts an ideal monoexponential decay curve into
// a rows × cols × samples image.
func IdealMonoexponential3D(samples int, period, tau, initialValue float64, rows, cols int) [][][]float64 {
	return broadcast(IdealMonoexponential(samples, period, tau, initialValue), rows, cols)
}

// IRFMonoexponential simulates a 1-dimensional monoexponential decay curve
// convolved with the given instrument response function.
func IRFMonoexponential(irf []float64, samples int, period, tau, initialValue float64) []float64 {
	decay := IdealMonoexponential(samples, period, tau, initialValue)
	return filter.ConvolveCircular1D(decay, irf)
}

// GaussianMonoexponential simulates a 1-dimensional monoexponential decay
// curve convolved with a Gaussian instrument response function of the given
// full width at half maximum and temporal center.
func GaussianMonoexponential(samples int, period, tau, initialValue, irfWidth, irfCenter float64) []float64 {
	irf := GaussianIRF(samples, period, irfWidth, irfCenter)
	return IRFMonoexponential(irf, samples, period, tau, initialValue)
}

// GaussianMonoexponential3D broadcasts a Gaussian IRF convolved decay curve
// into a rows × cols × samples image.
func GaussianMonoexponential3D(samples int, period, tau, initialValue, irfWidth, irfCenter float64, rows, cols int) [][][]float64 {
	return broadcast(GaussianMonoexponential(samples, period, tau, initialValue, irfWidth, irfCenter), rows, cols)
}

func broadcast(curve []float64, rows, cols int) [][][]float64 {
	out := make([][][]float64, rows)
	for r := range out {
		out[r] = make([][]float64, cols)
		for c := range out[r] {
			pixel := make([]float64, len(curve))
			copy(pixel, curve)
			out[r][c] = pixel
		}
	}
	return out
}
