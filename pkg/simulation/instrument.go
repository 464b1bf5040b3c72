package simulation

import (
	"math"

	"github.com/elevans/imgal/pkg/distribution"
)

// GaussianIRF simulates a 1-dimensional Gaussian instrument response
// function. The full width at half maximum of the pulse is converted to a
// standard deviation with:
//
//	σ = FWHM / (2 × √(2 × ln 2))
//
// and sampled as a normalized Gaussian over [0, timeRange].
func GaussianIRF(bins int, timeRange, width, center float64) []float64 {
	sigma := width / (2.0 * math.Sqrt(2.0*math.Ln2))
	return distribution.Gaussian(sigma, bins, timeRange, center)
}
