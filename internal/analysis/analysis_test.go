package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"soundcheck/internal/config"
	"soundcheck/internal/media/pcm"
	"soundcheck/internal/services"
)

const testRate = 44100

func testAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg := config.Default()
	return New(&cfg, nil)
}

func monoBuffer(samples []float64) *pcm.Buffer {
	return &pcm.Buffer{SampleRate: testRate, Channels: 1, Samples: samples}
}

func stereoBuffer(left, right []float64) *pcm.Buffer {
	samples := make([]float64, 2*len(left))
	for i := range left {
		samples[2*i] = left[i]
		samples[2*i+1] = right[i]
	}
	return &pcm.Buffer{SampleRate: testRate, Channels: 2, Samples: samples}
}

func sine(freq, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

// clickTrack places short noise bursts at the given tempo over silence.
func clickTrack(bpm float64, seconds int) []float64 {
	rng := rand.New(rand.NewSource(42))
	out := make([]float64, seconds*testRate)
	interval := int(60 / bpm * testRate)
	for pos := 0; pos < len(out); pos += interval {
		for i := 0; i < 1024 && pos+i < len(out); i++ {
			out[pos+i] = 0.8 * (rng.Float64()*2 - 1)
		}
	}
	return out
}

func TestAnalyzeRejectsShortAudio(t *testing.T) {
	a := testAnalyzer(t)
	_, err := a.Analyze(context.Background(), monoBuffer(make([]float64, 100)))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for short audio, got %v", err)
	}
}

func TestAnalyzeEmptyBuffer(t *testing.T) {
	a := testAnalyzer(t)
	if _, err := a.Analyze(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for nil buffer, got %v", err)
	}
}

func TestLevelsOfKnownSine(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(sine(997, 0.5, 5*testRate)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if math.Abs(feats.SamplePeakDB-(-6.02)) > 0.1 {
		t.Fatalf("expected peak near -6 dB, got %f", feats.SamplePeakDB)
	}
	// Sine RMS sits 3.01 dB under its peak.
	if math.Abs(feats.CrestDB-3.01) > 0.1 {
		t.Fatalf("expected crest near 3 dB, got %f", feats.CrestDB)
	}
	if math.Abs(feats.DCOffset) > 1e-3 {
		t.Fatalf("expected no DC offset, got %f", feats.DCOffset)
	}
}

func TestIntegratedLoudnessOfFullScaleSine(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(sine(997, 1.0, 5*testRate)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	// A mono full-scale 997 Hz sine reads about -3 LUFS under BS.1770-4.
	if math.Abs(feats.IntegratedLUFS-(-3.01)) > 0.5 {
		t.Fatalf("expected about -3 LUFS, got %f", feats.IntegratedLUFS)
	}
	if math.Abs(feats.TruePeakDB) > 0.2 {
		t.Fatalf("expected true peak near 0 dB, got %f", feats.TruePeakDB)
	}
	// A steady tone has essentially no loudness range.
	if feats.LoudnessRange > 1.0 {
		t.Fatalf("expected near-zero loudness range, got %f", feats.LoudnessRange)
	}
}

func TestSpectralCentroidTracksSine(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(sine(1000, 0.7, 5*testRate)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if math.Abs(feats.SpectralCentroidHz-1000) > 100 {
		t.Fatalf("expected centroid near 1 kHz, got %f", feats.SpectralCentroidHz)
	}
	if feats.SpectralFlatness > 0.1 {
		t.Fatalf("expected tonal flatness near zero, got %f", feats.SpectralFlatness)
	}
	if feats.SpectralRolloffHz < 900 || feats.SpectralRolloffHz > 1200 {
		t.Fatalf("expected rolloff near the tone, got %f", feats.SpectralRolloffHz)
	}
}

func TestBandEnergiesConcentrateAtToneBand(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(sine(100, 0.7, 3*testRate)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	bands := feats.BandEnergies
	if len(bands) != len(BandNames()) {
		t.Fatalf("expected %d bands, got %d", len(BandNames()), len(bands))
	}
	for name, share := range bands {
		if name == "bass" {
			continue
		}
		if share >= bands["bass"] {
			t.Fatalf("expected bass band to dominate, %s=%f bass=%f", name, share, bands["bass"])
		}
	}
	// Nearly all energy in one band puts its share near 0 dB.
	if bands["bass"] < -1 {
		t.Fatalf("expected bass share near 0 dB, got %f", bands["bass"])
	}
}

func TestStereoMetrics(t *testing.T) {
	a := testAnalyzer(t)
	tone := sine(440, 0.5, 3*testRate)

	feats, err := a.Analyze(context.Background(), stereoBuffer(tone, tone))
	if err != nil {
		t.Fatalf("analyze identical channels: %v", err)
	}
	if math.Abs(feats.StereoCorrelation-1) > 1e-9 {
		t.Fatalf("expected correlation 1 for identical channels, got %f", feats.StereoCorrelation)
	}
	if feats.StereoWidth > 1e-9 {
		t.Fatalf("expected zero width for identical channels, got %f", feats.StereoWidth)
	}

	inverted := make([]float64, len(tone))
	for i, s := range tone {
		inverted[i] = -s
	}
	feats, err = a.Analyze(context.Background(), stereoBuffer(tone, inverted))
	if err != nil {
		t.Fatalf("analyze anti-phase channels: %v", err)
	}
	if math.Abs(feats.StereoCorrelation-(-1)) > 1e-9 {
		t.Fatalf("expected correlation -1 for anti-phase channels, got %f", feats.StereoCorrelation)
	}
	if math.Abs(feats.StereoWidth-2) > 1e-9 {
		t.Fatalf("expected width 2 for anti-phase channels, got %f", feats.StereoWidth)
	}
}

func TestMonoBufferStereoDefaults(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(sine(440, 0.5, 3*testRate)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if feats.StereoCorrelation != 1 || feats.StereoWidth != 0 {
		t.Fatalf("expected mono defaults, got corr=%f width=%f", feats.StereoCorrelation, feats.StereoWidth)
	}
}

func TestTempoOfClickTrack(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(clickTrack(120, 12)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if math.Abs(feats.BPM-120) > 3 {
		t.Fatalf("expected about 120 BPM, got %f", feats.BPM)
	}
	if feats.BPMConfidence <= 0 {
		t.Fatalf("expected positive tempo confidence, got %f", feats.BPMConfidence)
	}
}

func TestKeyOfMajorTriad(t *testing.T) {
	a := testAnalyzer(t)

	// A major triad: A3, C#4, E4 with the root doubled an octave up.
	length := 5 * testRate
	mix := make([]float64, length)
	for _, freq := range []float64{220, 277.18, 329.63, 440} {
		for i, s := range sine(freq, 0.2, length) {
			mix[i] += s
		}
	}

	feats, err := a.Analyze(context.Background(), monoBuffer(mix))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if feats.KeyName != "A major" {
		t.Fatalf("expected A major, got %q (confidence %f)", feats.KeyName, feats.KeyConfidence)
	}
	if feats.Camelot != "11B" {
		t.Fatalf("expected Camelot 11B, got %q", feats.Camelot)
	}
	if feats.KeyConfidence <= 0 {
		t.Fatalf("expected positive key confidence, got %f", feats.KeyConfidence)
	}
	if len(feats.Chroma) != 12 {
		t.Fatalf("expected 12 chroma bins, got %d", len(feats.Chroma))
	}
}

func TestWhitenSpectrumZeroesNoiseFloor(t *testing.T) {
	// A lone harmonic over a near-silent floor. Whitening must not lift the
	// floor bins to unit weight, or they swamp the chroma fold.
	mags := make([]float64, 64)
	for i := range mags {
		mags[i] = 1e-7
	}
	mags[20] = 1.0

	out := whitenSpectrum(mags)
	if out[20] <= 0 {
		t.Fatalf("expected the harmonic to survive whitening, got %f", out[20])
	}
	for i, v := range out {
		if i == 20 {
			continue
		}
		if v != 0 {
			t.Fatalf("noise-floor bin %d = %f, want 0", i, v)
		}
	}
}

func TestEstimateTuningPoolsFrames(t *testing.T) {
	const frameSize, rate = 4096, 44100
	tonal := make([]float64, frameSize/2+1)
	tonal[41] = 1.0 // ~441.4 Hz, a few cents sharp of A440
	silent := make([]float64, frameSize/2+1)

	want := estimateTuning([][]float64{tonal}, frameSize, rate)
	if want == 0 {
		t.Fatal("expected a nonzero offset for a detuned peak")
	}
	// A silent leading frame must not blank the estimate.
	if got := estimateTuning([][]float64{silent, tonal, tonal}, frameSize, rate); got != want {
		t.Fatalf("pooled estimate = %f, want %f", got, want)
	}
}

func TestExtractorOrderStable(t *testing.T) {
	a := testAnalyzer(t)
	want := []string{"levels", "loudness", "spectral", "bands", "stereo", "tempo", "key"}
	got := a.ExtractorNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d extractors, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected extractor order %v, got %v", want, got)
		}
	}
}

func TestAnalyzeStampsSchemaVersion(t *testing.T) {
	a := testAnalyzer(t)
	feats, err := a.Analyze(context.Background(), monoBuffer(sine(440, 0.5, 3*testRate)))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if feats.SchemaVersion == 0 {
		t.Fatal("expected schema version to be stamped")
	}
}
