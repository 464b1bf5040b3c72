// Package statistics provides weighted summary statistics and rank
// correlation for sample sets.
package statistics

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// Sum returns the sum of a sequence of numbers.
func Sum(data []float64) float64 {
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum
}

// EffectiveSampleSize computes the effective sample size of a weighted
// sample set:
//
//	ESS = (Σ wᵢ)² / Σ (wᵢ²)
//
// Only the non-negative weights of the sample set are needed. A set of equal
// weights yields the plain sample count.
func EffectiveSampleSize(weights []float64) float64 {
	var sum, sumSq float64
	for _, w := range weights {
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}

// WeightedMergeSort sorts data and its associated weights in place with a
// bottom up merge sort and returns the weighted inversion count. Each
// inversion contributes the product of the weights of the swapped pair.
func WeightedMergeSort(data, weights []float64) (float64, error) {
	if len(data) != len(weights) {
		return 0, eris.Errorf("data length %d does not match weights length %d", len(data), len(weights))
	}
	return mergeSortPairs(data, weights), nil
}

// WeightedKendallTauB computes the weighted Kendall's Tau-b rank correlation
// coefficient between two datasets:
//
//	τ_b = (C - D) / √((n₀ - n₁)(n₀ - n₂))
//
// where C and D are the weighted concordant and discordant pair counts, n₀
// the total weighted pair count and n₁, n₂ the weighted tie corrections for
// each variable. Discordant pairs are counted with a weighted merge sort.
// The result ranges from -1.0 (negative correlation) through 0.0 (no
// correlation) to 1.0 (positive correlation).
func WeightedKendallTauB(dataA, dataB, weights []float64) (float64, error) {
	n := len(dataA)
	if len(dataB) != n || len(weights) != n {
		return 0, eris.Errorf("input lengths %d, %d and %d do not match", n, len(dataB), len(weights))
	}
	if n == 0 {
		return 0, eris.New("datasets must not be empty")
	}

	// order the observations by the first variable, ties broken by the
	// second, so pairs tied in A never count as inversions
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if dataA[a] != dataA[b] {
			return dataA[a] < dataA[b]
		}
		return dataB[a] < dataB[b]
	})

	a := make([]float64, n)
	b := make([]float64, n)
	w := make([]float64, n)
	for i, j := range idx {
		a[i], b[i], w[i] = dataA[j], dataB[j], weights[j]
	}

	total := pairWeight(w)
	aTies := tieWeight(a, nil, w)
	abTies := tieWeight(a, b, w)

	discordant := mergeSortPairs(b, w)
	bTies := tieWeight(b, nil, w)

	denom := math.Sqrt((total - aTies) * (total - bTies))
	if denom == 0 {
		return 0, eris.New("tau-b is undefined when either dataset is constant")
	}

	conMinusDis := total - aTies - bTies + abTies - 2*discordant
	return conMinusDis / denom, nil
}

// pairWeight returns the weighted pair count ((Σw)² - Σw²) / 2.
func pairWeight(weights []float64) float64 {
	var sum, sumSq float64
	for _, w := range weights {
		sum += w
		sumSq += w * w
	}
	return (sum*sum - sumSq) / 2
}

// tieWeight sums the weighted pair counts of the maximal tie groups in the
// sorted keys. A non-nil secondary key restricts groups to joint ties.
func tieWeight(keys, secondary, weights []float64) float64 {
	var ties float64
	for lo := 0; lo < len(keys); {
		hi := lo + 1
		for hi < len(keys) && keys[hi] == keys[lo] && (secondary == nil || secondary[hi] == secondary[lo]) {
			hi++
		}
		if hi-lo > 1 {
			ties += pairWeight(weights[lo:hi])
		}
		lo = hi
	}
	return ties
}

func mergeSortPairs(data, weights []float64) float64 {
	n := len(data)
	bufD := make([]float64, n)
	bufW := make([]float64, n)

	var inversions float64
	for width := 1; width < n; width *= 2 {
		for lo := 0; lo < n-width; lo += 2 * width {
			hi := lo + 2*width
			if hi > n {
				hi = n
			}
			inversions += mergePairs(data, weights, bufD, bufW, lo, lo+width, hi)
		}
	}
	return inversions
}

func mergePairs(data, weights, bufD, bufW []float64, lo, mid, hi int) float64 {
	// weight of the left run still waiting to be merged
	var pending float64
	for i := lo; i < mid; i++ {
		pending += weights[i]
	}

	var inversions float64
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if data[i] <= data[j] {
			bufD[k], bufW[k] = data[i], weights[i]
			pending -= weights[i]
			i++
		} else {
			// every pending left element pairs discordantly with data[j]
			inversions += weights[j] * pending
			bufD[k], bufW[k] = data[j], weights[j]
			j++
		}
		k++
	}
	for ; i < mid; i++ {
		bufD[k], bufW[k] = data[i], weights[i]
		k++
	}
	for ; j < hi; j++ {
		bufD[k], bufW[k] = data[j], weights[j]
		k++
	}

	copy(data[lo:hi], bufD[lo:hi])
	copy(weights[lo:hi], bufW[lo:hi])
	return inversions
}
