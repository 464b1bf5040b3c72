// Package threshold builds boolean masks from image intensity values.
package threshold

// Manual creates a boolean mask from a 1-dimensional series. Values strictly
// greater than the threshold are true.
func Manual(data []float64, threshold float64) []bool {
	mask := make([]bool, len(data))
	for i, v := range data {
		mask[i] = v > threshold
	}
	return mask
}

// ManualImage creates a boolean mask from a 2-dimensional image. Pixels
// strictly greater than the threshold are true.
func ManualImage(image [][]float64, threshold float64) [][]bool {
	mask := make([][]bool, len(image))
	for r, row := range image {
		mask[r] = make([]bool, len(row))
		for c, v := range row {
			mask[r][c] = v > threshold
		}
	}
	return mask
}
