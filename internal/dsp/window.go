package dsp

import "math"

// HannWindow generates a symmetric Hann window of the given size.
func HannWindow(size int) []float64 {
	if size <= 0 {
		return nil
	}
	w := make([]float64, size)
	if size == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}

// WindowSum returns the sum of window coefficients, used to normalize
// windowed energy measurements.
func WindowSum(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum
}
