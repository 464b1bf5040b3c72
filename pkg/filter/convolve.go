// Package filter provides signal filtering primitives for sampled curves.
package filter

// ConvolveCircular1D computes the circular (periodic) convolution of a signal
// with a kernel. The result has the length of the signal; a kernel longer
// than the signal is truncated.
func ConvolveCircular1D(signal, kernel []float64) []float64 {
	n := len(signal)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	if len(kernel) > n {
		kernel = kernel[:n]
	}

	for k := 0; k < n; k++ {
		var acc float64
		for j, kv := range kernel {
			idx := (k - j) % n
			if idx < 0 {
				idx += n
			}
			acc += signal[idx] * kv
		}
		out[k] = acc
	}
	return out
}
