package fingerprint

import (
	"math"
	"math/rand"
	"testing"

	"soundcheck/internal/media/pcm"
)

const testRate = 44100

func toneMix(seed int64, seconds int) *pcm.Buffer {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, seconds*testRate)
	// A handful of random tones with onset jumps gives a rich constellation.
	for n := 0; n < 8; n++ {
		freq := 100 + rng.Float64()*4000
		start := rng.Intn(len(samples) / 2)
		for i := start; i < len(samples); i++ {
			samples[i] += 0.1 * math.Sin(2*math.Pi*freq*float64(i-start)/testRate)
		}
	}
	return &pcm.Buffer{SampleRate: testRate, Channels: 1, Samples: samples}
}

func TestComputeDeterministic(t *testing.T) {
	buf := toneMix(1, 3)
	a := Compute(buf)
	b := Compute(buf)

	if len(a) == 0 {
		t.Fatal("expected a non-empty signature")
	}
	if a.Digest() != b.Digest() {
		t.Fatal("expected identical audio to produce identical digests")
	}
	for i := 1; i < len(a); i++ {
		if a[i] <= a[i-1] {
			t.Fatalf("signature not sorted unique at %d: %d then %d", i, a[i-1], a[i])
		}
	}
}

func TestDifferentAudioDiffers(t *testing.T) {
	a := Compute(toneMix(1, 3))
	b := Compute(toneMix(2, 3))

	if a.Digest() == b.Digest() {
		t.Fatal("expected different audio to produce different digests")
	}
	if overlap := Overlap(a, b); overlap > 0.2 {
		t.Fatalf("expected low overlap for unrelated audio, got %f", overlap)
	}
}

func TestOverlapOfSameContent(t *testing.T) {
	buf := toneMix(3, 4)
	full := Compute(buf)

	// The same recording minus its last second should still match strongly.
	trimmed := Compute(&pcm.Buffer{
		SampleRate: testRate,
		Channels:   1,
		Samples:    buf.Samples[:3*testRate],
	})

	if overlap := Overlap(full, trimmed); overlap < 0.5 {
		t.Fatalf("expected high overlap for truncated copy, got %f", overlap)
	}
}

func TestSilenceHasNoSignature(t *testing.T) {
	buf := &pcm.Buffer{SampleRate: testRate, Channels: 1, Samples: make([]float64, testRate)}
	if sig := Compute(buf); len(sig) != 0 {
		t.Fatalf("expected empty signature for silence, got %d hashes", len(sig))
	}
	if d := (Signature)(nil).Digest(); d != "" {
		t.Fatalf("expected empty digest for empty signature, got %q", d)
	}
}

func TestOverlapEdgeCases(t *testing.T) {
	if Overlap(nil, nil) != 0 {
		t.Fatal("expected zero overlap for empty signatures")
	}
	sig := Signature{1, 2, 3}
	if got := Overlap(sig, sig); got != 1 {
		t.Fatalf("expected full overlap with itself, got %f", got)
	}
}
