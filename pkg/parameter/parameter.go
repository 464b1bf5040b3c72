// Package parameter provides common optical and frequency-domain parameters.
package parameter

import "math"

// Omega computes the angular frequency for the given period:
//
//	ω = 2π/T
func Omega(period float64) float64 {
	return 2.0 * math.Pi / period
}

// AbbeDiffractionLimit computes Ernst Abbe's diffraction limit for a
// microscope objective:
//
//	d = λ / (2 * NA)
//
// The wavelength λ is expected in nanometers and na is the numerical
// aperture of the objective.
func AbbeDiffractionLimit(wavelength, na float64) float64 {
	return wavelength / (2.0 * na)
}
