package distribution

import (
	"math"
	"testing"
)

func TestGaussian(t *testing.T) {
	t.Run("normalized and symmetric around the center", func(t *testing.T) {
		g := Gaussian(1.0, 101, 10.0, 5.0)

		var sum float64
		for _, v := range g {
			sum += v
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("sum = %v, want 1.0", sum)
		}

		// center bin carries the peak, symmetric bins match
		for i := 0; i < 50; i++ {
			if math.Abs(g[i]-g[100-i]) > 1e-12 {
				t.Errorf("g[%d] = %v and g[%d] = %v are not symmetric", i, g[i], 100-i, g[100-i])
			}
			if g[i] > g[50] {
				t.Errorf("g[%d] = %v exceeds the center value %v", i, g[i], g[50])
			}
		}
	})

	t.Run("degenerate bin counts", func(t *testing.T) {
		if got := Gaussian(1.0, 0, 10.0, 5.0); len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
		if got := Gaussian(1.0, 1, 10.0, 0.0); len(got) != 1 || got[0] != 1.0 {
			t.Errorf("single bin = %v, want [1.0]", got)
		}
	})
}
