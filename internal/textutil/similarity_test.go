package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNilInputs(t *testing.T) {
	valid := NewFingerprint("midnight warehouse session")
	cases := []struct {
		name string
		a, b *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, valid},
		{"b nil", valid, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CosineSimilarity(tc.a, tc.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityIdenticalText(t *testing.T) {
	text := "Deep House Warehouse Mix Part Two"
	if got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text)); got != 1.0 {
		t.Errorf("identical text similarity = %v, want 1.0", got)
	}
}

func TestCosineSimilarityDisjointText(t *testing.T) {
	a := NewFingerprint("ambient drone textures")
	b := NewFingerprint("breakbeat jungle rollers")
	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("disjoint text similarity = %v, want 0", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	a := NewFingerprint("the warehouse techno mix")
	b := NewFingerprint("the basement techno set")
	got := CosineSimilarity(a, b)
	if got <= 0 || got >= 1 {
		t.Errorf("partial overlap similarity = %v, want strictly between 0 and 1", got)
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("sunrise rooftop session")
	b := NewFingerprint("rooftop session encore")
	if ab, ba := CosineSimilarity(a, b), CosineSimilarity(b, a); ab != ba {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	degenerate := &Fingerprint{tokens: map[string]float64{}, norm: 0}
	if got := CosineSimilarity(degenerate, NewFingerprint("club night live")); got != 0 {
		t.Errorf("zero norm similarity = %v, want 0", got)
	}
}

func TestNewFingerprintEmptyText(t *testing.T) {
	if fp := NewFingerprint(""); fp != nil {
		t.Error("expected nil fingerprint for empty text")
	}
}

func TestNewFingerprintOnlyShortTokens(t *testing.T) {
	// Every token under three characters is dropped, leaving nothing.
	if fp := NewFingerprint("a dj ep to"); fp != nil {
		t.Error("expected nil fingerprint when all tokens are too short")
	}
}

func TestNewFingerprintPopulated(t *testing.T) {
	fp := NewFingerprint("garage revival anthem")
	if fp == nil {
		t.Fatal("expected fingerprint, got nil")
	}
	if fp.norm == 0 {
		t.Error("expected non-zero norm")
	}
	if len(fp.tokens) != 3 {
		t.Errorf("token map has %d entries, want 3", len(fp.tokens))
	}
}

func TestNewFingerprintNorm(t *testing.T) {
	// "dub dub plate" counts dub twice, plate once: norm = sqrt(4 + 1).
	fp := NewFingerprint("dub dub plate")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}
	want := math.Sqrt(5)
	if math.Abs(fp.norm-want) > 1e-4 {
		t.Errorf("norm = %v, want %v", fp.norm, want)
	}
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercases words", "Warehouse Anthem", []string{"warehouse", "anthem"}},
		{"drops short tokens", "a to the deep end", []string{"the", "deep", "end"}},
		{"splits on punctuation", "Live @ Fabric, London (2024)!", []string{"live", "fabric", "london", "2024"}},
		{"keeps alphanumerics", "mix128 320kbps", []string{"mix128", "320kbps"}},
		{"empty input", "", []string{}},
		{"all short", "a b c", []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tc.input, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestFingerprintTokenCount(t *testing.T) {
	cases := []struct {
		name string
		fp   *Fingerprint
		want int
	}{
		{"nil fingerprint", nil, 0},
		{"unique tokens", NewFingerprint("acid house classics"), 3},
		{"repeats collapse", NewFingerprint("remix remix original original original"), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fp.TokenCount(); got != tc.want {
				t.Errorf("TokenCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCosineSimilarityDetectsReupload(t *testing.T) {
	// A re-upload typically keeps the original title and adds filler.
	original := NewFingerprint("Nightdrive Sessions Vol 3 deep melodic techno mix recorded live")
	reupload := NewFingerprint("Nightdrive Sessions Vol 3 deep melodic techno mix recorded live [FULL SET]")
	unrelated := NewFingerprint("Lo-fi beats to study and relax chillhop playlist compilation")

	if sim := CosineSimilarity(original, reupload); sim < 0.9 {
		t.Errorf("re-upload similarity = %v, want >= 0.9", sim)
	}
	if sim := CosineSimilarity(original, unrelated); sim >= 0.5 {
		t.Errorf("unrelated similarity = %v, want < 0.5", sim)
	}
}
