package dsp

// Peaks returns the indexes of local maxima in x that exceed threshold,
// enforcing a minimum distance between picked peaks. When two peaks fall
// within minDistance the larger one wins.
func Peaks(x []float64, minDistance int, threshold float64) []int {
	if len(x) < 3 {
		return nil
	}
	if minDistance < 1 {
		minDistance = 1
	}

	var candidates []int
	for i := 1; i < len(x)-1; i++ {
		if x[i] <= threshold {
			continue
		}
		if x[i] > x[i-1] && x[i] >= x[i+1] {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	picked := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if len(picked) == 0 {
			picked = append(picked, idx)
			continue
		}
		last := picked[len(picked)-1]
		if idx-last >= minDistance {
			picked = append(picked, idx)
			continue
		}
		if x[idx] > x[last] {
			picked[len(picked)-1] = idx
		}
	}
	return picked
}

// MaxIndex returns the index of the largest value, or -1 for empty input.
func MaxIndex(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
