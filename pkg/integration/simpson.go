// Package integration implements numerical integration over sampled curves.
package integration

import "github.com/rotisserie/eris"

// Simpson approximates the definite integral of pre-computed samples using
// Simpson's 1/3 rule:
//
//	∫(f(x)dx) ≈ (Δx/3) * [f(x₀) + 4f(x₁) + 2f(x₂) + ... + 4f(xₙ₋₁) + f(xₙ)]
//
// The samples must describe an even number of subintervals. A deltaX of 0
// defaults to 1.0.
func Simpson(x []float64, deltaX float64) (float64, error) {
	if deltaX == 0 {
		deltaX = 1.0
	}

	n := len(x) - 1
	if n < 2 {
		return 0, eris.New("at least three samples are required for Simpson's 1/3 rule")
	}
	if n%2 != 0 {
		return 0, eris.New("odd number of subintervals is not supported for Simpson's 1/3 rule")
	}

	integral := x[0] + x[n]
	for i := 1; i < n; i++ {
		coef := 2.0
		if i%2 == 1 {
			coef = 4.0
		}
		integral += coef * x[i]
	}

	return (deltaX / 3.0) * integral, nil
}

// CompositeSimpson approximates the definite integral with Simpson's 1/3 rule,
// falling back to the trapezoid rule for the final subinterval when the sample
// count describes an odd number of subintervals. A deltaX of 0 defaults to 1.0.
func CompositeSimpson(x []float64, deltaX float64) (float64, error) {
	if deltaX == 0 {
		deltaX = 1.0
	}

	n := len(x) - 1
	if n%2 == 0 {
		return Simpson(x, deltaX)
	}
	if n == 1 {
		return (deltaX / 2.0) * (x[0] + x[1]), nil
	}

	integral, err := Simpson(x[:n], deltaX)
	if err != nil {
		return 0, err
	}

	// integrate the trailing subinterval with a trapezoid
	trap := (deltaX / 2.0) * (x[n-1] + x[n])
	return integral + trap, nil
}
