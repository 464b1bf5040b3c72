package simulation

import (
	"math"
	"testing"
)

func TestPoisson1DSeeded(t *testing.T) {
	data := IdealMonoexponential(128, 12.5, 3.0, 100.0)
	orig := make([]float64, len(data))
	copy(orig, data)

	a := Poisson1D(data, 1.0, 42)
	b := Poisson1D(data, 1.0, 42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded draws diverge at %d: %v vs %v", i, a[i], b[i])
		}
	}

	for i := range data {
		if data[i] != orig[i] {
			t.Fatal("Poisson1D mutated its input")
		}
	}

	// counts stay non-negative integers
	for i, v := range a {
		if v < 0 || v != math.Trunc(v) {
			t.Fatalf("noisy[%d] = %v is not a count", i, v)
		}
	}
}

func TestPoisson1DMut(t *testing.T) {
	data := make([]float64, 32)
	for i := range data {
		data[i] = 50
	}
	Poisson1DMut(data, 1.0, 7)

	noisy := false
	for _, v := range data {
		if v != 50 {
			noisy = true
		}
		if v != math.Trunc(v) {
			t.Fatalf("in place value %v is not a count", v)
		}
	}
	if !noisy {
		t.Error("no element changed under noise")
	}
}

func TestPoissonMeanTracksRate(t *testing.T) {
	cases := []struct {
		name string
		rate float64
	}{
		{"knuth", 10.0},
		{"normal approximation", 5000.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := make([]float64, 20000)
			for i := range data {
				data[i] = tc.rate
			}
			Poisson1DMut(data, 1.0, 123)

			var sum float64
			for _, v := range data {
				sum += v
			}
			mean := sum / float64(len(data))
			// 5 sigma of the sample mean
			tolerance := 5 * math.Sqrt(tc.rate/float64(len(data)))
			if math.Abs(mean-tc.rate) > tolerance {
				t.Errorf("sample mean = %v, want %v within %v", mean, tc.rate, tolerance)
			}
		})
	}
}

func TestPoissonZeroRate(t *testing.T) {
	data := []float64{0, 0, 0}
	got := Poisson1D(data, 10.0, 1)
	for i, v := range got {
		if v != 0 {
			t.Errorf("noisy[%d] = %v, want 0 for a zero rate", i, v)
		}
	}
}

func TestPoisson3DSeededPixelsMatch(t *testing.T) {
	img := IdealMonoexponential3D(64, 12.5, 3.0, 200.0, 2, 3)

	noisy := Poisson3D(img, 1.0, 42)
	if len(noisy) != 2 || len(noisy[0]) != 3 || len(noisy[0][0]) != 64 {
		t.Fatalf("shape = %dx%dx%d, want 2x3x64", len(noisy), len(noisy[0]), len(noisy[0][0]))
	}

	// the seeded generator restarts per pixel
	first := noisy[0][0]
	for r := range noisy {
		for c := range noisy[r] {
			for i := range noisy[r][c] {
				if noisy[r][c][i] != first[i] {
					t.Fatalf("pixel (%d,%d) noise pattern diverges at %d", r, c, i)
				}
			}
		}
	}

	if img[0][0][0] != 200.0 {
		t.Error("Poisson3D mutated its input")
	}
}

func TestPoisson3DMut(t *testing.T) {
	img := IdealMonoexponential3D(32, 12.5, 3.0, 100.0, 2, 2)
	want := Poisson3D(img, 1.0, 9)

	Poisson3DMut(img, 1.0, 9)
	for r := range img {
		for c := range img[r] {
			for i := range img[r][c] {
				if img[r][c][i] != want[r][c][i] {
					t.Fatalf("in place pixel (%d,%d) diverges at %d", r, c, i)
				}
			}
		}
	}
}
