// Package distribution provides sampled probability distributions.
package distribution

import "math"

// Gaussian samples a normalized Gaussian distribution with the given standard
// deviation over [0, timeRange] at bins evenly spaced points centered on
// center. The samples are normalized so they sum to 1, making the result
// directly usable as a convolution kernel.
func Gaussian(sigma float64, bins int, timeRange, center float64) []float64 {
	out := make([]float64, bins)
	if bins == 0 {
		return out
	}

	dt := timeRange / float64(bins-1)
	if bins == 1 {
		dt = 0
	}

	var sum float64
	for i := range out {
		t := float64(i) * dt
		d := (t - center) / sigma
		out[i] = math.Exp(-0.5 * d * d)
		sum += out[i]
	}

	if sum > 0 {
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}
