package threshold

import "testing"

func TestManual(t *testing.T) {
	mask := Manual([]float64{1, 5, 10, 5.0001}, 5)
	want := []bool{false, false, true, true}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], want[i])
		}
	}
}

func TestManualImage(t *testing.T) {
	image := [][]float64{
		{0, 1, 2},
		{3, 4, 5},
	}

	mask := ManualImage(image, 2)
	if len(mask) != 2 || len(mask[0]) != 3 {
		t.Fatalf("mask shape = %dx%d, want 2x3", len(mask), len(mask[0]))
	}

	want := [][]bool{
		{false, false, false},
		{true, true, true},
	}
	for r := range want {
		for c := range want[r] {
			if mask[r][c] != want[r][c] {
				t.Errorf("mask[%d][%d] = %v, want %v", r, c, mask[r][c], want[r][c])
			}
		}
	}
}
