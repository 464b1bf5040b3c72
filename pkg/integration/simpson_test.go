package integration

import (
	"math"
	"testing"
)

func TestSimpson(t *testing.T) {
	t.Run("quadratic is exact", func(t *testing.T) {
		// f(x) = x² over [0, 2] with 9 samples, exact integral 8/3
		x := make([]float64, 9)
		dx := 0.25
		for i := range x {
			v := float64(i) * dx
			x[i] = v * v
		}

		got, err := Simpson(x, dx)
		if err != nil {
			t.Fatalf("Simpson() failed: %v", err)
		}
		if math.Abs(got-8.0/3.0) > 1e-12 {
			t.Errorf("Simpson() = %v, want %v", got, 8.0/3.0)
		}
	})

	t.Run("odd subintervals rejected", func(t *testing.T) {
		if _, err := Simpson([]float64{1, 2, 3, 4}, 1); err == nil {
			t.Error("Simpson() accepted an odd number of subintervals")
		}
	})

	t.Run("default delta x", func(t *testing.T) {
		got, err := Simpson([]float64{1, 1, 1}, 0)
		if err != nil {
			t.Fatalf("Simpson() failed: %v", err)
		}
		if math.Abs(got-2.0) > 1e-12 {
			t.Errorf("Simpson() = %v, want 2.0", got)
		}
	})
}

func TestCompositeSimpson(t *testing.T) {
	t.Run("even subintervals match plain rule", func(t *testing.T) {
		x := []float64{0, 1, 4, 9, 16}
		want, err := Simpson(x, 1)
		if err != nil {
			t.Fatalf("Simpson() failed: %v", err)
		}

		got, err := CompositeSimpson(x, 1)
		if err != nil {
			t.Fatalf("CompositeSimpson() failed: %v", err)
		}
		if got != want {
			t.Errorf("CompositeSimpson() = %v, want %v", got, want)
		}
	})

	t.Run("odd subintervals use trapezoid tail", func(t *testing.T) {
		// constant function over 3 subintervals, integral is 3
		got, err := CompositeSimpson([]float64{1, 1, 1, 1}, 1)
		if err != nil {
			t.Fatalf("CompositeSimpson() failed: %v", err)
		}
		if math.Abs(got-3.0) > 1e-12 {
			t.Errorf("CompositeSimpson() = %v, want 3.0", got)
		}
	})

	t.Run("two samples fall back to a single trapezoid", func(t *testing.T) {
		got, err := CompositeSimpson([]float64{2, 4}, 0.5)
		if err != nil {
			t.Fatalf("CompositeSimpson() failed: %v", err)
		}
		if math.Abs(got-1.5) > 1e-12 {
			t.Errorf("CompositeSimpson() = %v, want 1.5", got)
		}
	})
}
