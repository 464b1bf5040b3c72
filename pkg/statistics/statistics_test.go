package statistics

import (
	"math"
	"testing"
)

func TestSum(t *testing.T) {
	if got := Sum([]float64{1.5, 2.5, -1.0, 4.0}); got != 7.0 {
		t.Errorf("Sum = %v, want 7.0", got)
	}
	if got := Sum(nil); got != 0 {
		t.Errorf("Sum(nil) = %v, want 0", got)
	}
}

func TestEffectiveSampleSize(t *testing.T) {
	// equal weights reduce to the plain sample count
	if got := EffectiveSampleSize([]float64{2, 2, 2, 2, 2}); math.Abs(got-5) > 1e-12 {
		t.Errorf("equal weights ESS = %v, want 5", got)
	}

	// a single dominant weight collapses the set to one sample
	if got := EffectiveSampleSize([]float64{1, 0, 0, 0}); math.Abs(got-1) > 1e-12 {
		t.Errorf("dominant weight ESS = %v, want 1", got)
	}

	if got := EffectiveSampleSize(nil); got != 0 {
		t.Errorf("empty ESS = %v, want 0", got)
	}
}

func TestWeightedMergeSort(t *testing.T) {
	data := []float64{5, 4, 3, 2, 1}
	weights := []float64{1, 1, 1, 1, 1}

	inversions, err := WeightedMergeSort(data, weights)
	if err != nil {
		t.Fatal(err)
	}
	// a reversed array of unit weights holds n(n-1)/2 inversions
	if inversions != 10 {
		t.Errorf("inversions = %v, want 10", inversions)
	}
	for i := 1; i < len(data); i++ {
		if data[i-1] > data[i] {
			t.Fatalf("data not sorted: %v", data)
		}
	}

	sorted := []float64{1, 2, 3, 4, 5}
	inversions, err = WeightedMergeSort(sorted, weights)
	if err != nil {
		t.Fatal(err)
	}
	if inversions != 0 {
		t.Errorf("sorted inversions = %v, want 0", inversions)
	}
}

func TestWeightedMergeSortCarriesWeights(t *testing.T) {
	data := []float64{3, 1, 2}
	weights := []float64{0.3, 0.1, 0.2}

	inversions, err := WeightedMergeSort(data, weights)
	if err != nil {
		t.Fatal(err)
	}
	// (3,1), (3,2) and nothing else: 0.3*0.1 + 0.3*0.2
	if math.Abs(inversions-0.09) > 1e-12 {
		t.Errorf("inversions = %v, want 0.09", inversions)
	}
	for i := range data {
		if weights[i] != data[i]/10 {
			t.Fatalf("weights %v no longer track data %v", weights, data)
		}
	}
}

func TestWeightedMergeSortLengthMismatch(t *testing.T) {
	if _, err := WeightedMergeSort([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected an error for mismatched lengths")
	}
}

func TestWeightedKendallTauB(t *testing.T) {
	unit := []float64{1, 1, 1, 1, 1}

	tau, err := WeightedKendallTauB([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10}, unit)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tau-1.0) > 1e-12 {
		t.Errorf("perfect agreement tau = %v, want 1.0", tau)
	}

	tau, err = WeightedKendallTauB([]float64{1, 2, 3, 4, 5}, []float64{10, 8, 6, 4, 2}, unit)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tau+1.0) > 1e-12 {
		t.Errorf("perfect reversal tau = %v, want -1.0", tau)
	}
}

func TestWeightedKendallTauBUnitWeights(t *testing.T) {
	// one discordant pair out of six: tau = (5 - 1) / 6
	a := []float64{1, 2, 3, 4}
	b := []float64{1, 2, 4, 3}

	tau, err := WeightedKendallTauB(a, b, []float64{1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if want := 4.0 / 6.0; math.Abs(tau-want) > 1e-12 {
		t.Errorf("tau = %v, want %v", tau, want)
	}
}

func TestWeightedKendallTauBScaleInvariant(t *testing.T) {
	a := []float64{3, 1, 4, 1.5, 9, 2.6}
	b := []float64{2, 7, 1, 8, 2.8, 1.8}
	w := []float64{0.5, 1.5, 2.0, 0.25, 1.0, 3.0}

	tau, err := WeightedKendallTauB(a, b, w)
	if err != nil {
		t.Fatal(err)
	}

	scaled := make([]float64, len(w))
	for i, v := range w {
		scaled[i] = v * 7
	}
	tauScaled, err := WeightedKendallTauB(a, b, scaled)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tau-tauScaled) > 1e-12 {
		t.Errorf("tau changed under weight scaling: %v vs %v", tau, tauScaled)
	}
}

func TestWeightedKendallTauBTies(t *testing.T) {
	// ties in both variables still land between -1 and 1
	a := []float64{1, 1, 2, 3, 3}
	b := []float64{5, 5, 4, 2, 2}

	tau, err := WeightedKendallTauB(a, b, []float64{1, 1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tau+1.0) > 1e-12 {
		t.Errorf("jointly tied reversal tau = %v, want -1.0", tau)
	}
}

func TestWeightedKendallTauBErrors(t *testing.T) {
	if _, err := WeightedKendallTauB([]float64{1, 2}, []float64{1}, []float64{1, 1}); err == nil {
		t.Error("expected an error for mismatched lengths")
	}
	if _, err := WeightedKendallTauB(nil, nil, nil); err == nil {
		t.Error("expected an error for empty datasets")
	}
	if _, err := WeightedKendallTauB([]float64{1, 1, 1}, []float64{1, 2, 3}, []float64{1, 1, 1}); err == nil {
		t.Error("expected an error for a constant dataset")
	}
}
