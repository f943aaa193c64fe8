package textutil

// CosineSimilarity scores two fingerprints in [0, 1]. Nil or zero-norm
// fingerprints score 0.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	// Iterate the smaller vector; only shared tokens contribute.
	small, large := a, b
	if len(b.tokens) < len(a.tokens) {
		small, large = b, a
	}
	var dot float64
	for token, count := range small.tokens {
		if other, ok := large.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	// Floating-point rounding can push identical fingerprints a hair above 1.
	sim := dot / (a.norm * b.norm)
	if sim > 1 {
		return 1
	}
	return sim
}
