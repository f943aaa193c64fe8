package dsp

// Autocorrelate computes the normalized autocorrelation of x for lags in
// [minLag, maxLag]. The result is indexed by lag-minLag and normalized by the
// zero-lag energy, so values fall in [-1, 1]. Returns nil when the lag range
// is invalid or x is too short.
func Autocorrelate(x []float64, minLag, maxLag int) []float64 {
	if minLag < 1 || maxLag < minLag || len(x) <= maxLag {
		return nil
	}

	energy := 0.0
	for _, v := range x {
		energy += v * v
	}
	if energy == 0 {
		return make([]float64, maxLag-minLag+1)
	}

	out := make([]float64, maxLag-minLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := lag; i < len(x); i++ {
			sum += x[i] * x[i-lag]
		}
		out[lag-minLag] = sum / energy
	}
	return out
}

// MeanDecimate reduces x by averaging non-overlapping blocks of the given
// factor, producing a coarser envelope. A trailing partial block is averaged
// over its actual length.
func MeanDecimate(x []float64, factor int) []float64 {
	if factor <= 1 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	n := (len(x) + factor - 1) / factor
	out := make([]float64, 0, n)
	for start := 0; start < len(x); start += factor {
		end := start + factor
		if end > len(x) {
			end = len(x)
		}
		sum := 0.0
		for _, v := range x[start:end] {
			sum += v
		}
		out = append(out, sum/float64(end-start))
	}
	return out
}
