package dsp

import (
	"math"
	"testing"
)

func sine(freq float64, sampleRate, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestHannWindowShape(t *testing.T) {
	w := HannWindow(101)
	if len(w) != 101 {
		t.Fatalf("expected 101 coefficients, got %d", len(w))
	}
	if w[0] > 1e-12 || w[100] > 1e-12 {
		t.Fatalf("expected zero endpoints, got %g and %g", w[0], w[100])
	}
	if math.Abs(w[50]-1.0) > 1e-12 {
		t.Fatalf("expected unity midpoint, got %g", w[50])
	}
	for i := 0; i < 50; i++ {
		if math.Abs(w[i]-w[100-i]) > 1e-12 {
			t.Fatalf("window not symmetric at %d: %g vs %g", i, w[i], w[100-i])
		}
	}
}

func TestSTFTLocatesSineBin(t *testing.T) {
	const (
		sampleRate = 44100
		frameSize  = 4096
		hopSize    = 2048
		bin        = 128
	)
	freq := BinFrequency(bin, frameSize, sampleRate)
	samples := sine(freq, sampleRate, frameSize*3)

	frames := STFT(samples, frameSize, hopSize)
	if len(frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	for i, frame := range frames {
		if len(frame) != frameSize/2+1 {
			t.Fatalf("frame %d: expected %d bins, got %d", i, frameSize/2+1, len(frame))
		}
		peak := MaxIndex(frame)
		if peak != bin {
			t.Fatalf("frame %d: expected peak at bin %d, got %d", i, bin, peak)
		}
		if math.Abs(frame[peak]-0.5) > 0.02 {
			t.Fatalf("frame %d: expected Hann-windowed peak near 0.5, got %g", i, frame[peak])
		}
	}
}

func TestSTFTTooShortReturnsNil(t *testing.T) {
	if frames := STFT(make([]float64, 100), 4096, 2048); frames != nil {
		t.Fatalf("expected nil for short input, got %d frames", len(frames))
	}
}

func TestPowerToDBFloorsSilence(t *testing.T) {
	if got := PowerToDB(0); got != SilenceFloorDB {
		t.Fatalf("expected floor for zero power, got %f", got)
	}
	if got := AmplitudeToDB(-1); got != SilenceFloorDB {
		t.Fatalf("expected floor for negative amplitude, got %f", got)
	}
	if got := PowerToDB(1); got != 0 {
		t.Fatalf("expected 0 dB for unit power, got %f", got)
	}
	if got := AmplitudeToDB(0.5); math.Abs(got-(-6.0206)) > 0.001 {
		t.Fatalf("expected about -6 dB for half amplitude, got %f", got)
	}
}

func TestRMS(t *testing.T) {
	constant := make([]float64, 1000)
	for i := range constant {
		constant[i] = 0.5
	}
	if got := RMS(constant); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("expected RMS 0.5, got %g", got)
	}

	tone := sine(441, 44100, 44100)
	if got := RMS(tone); math.Abs(got-1/math.Sqrt2) > 0.001 {
		t.Fatalf("expected sine RMS near 0.707, got %g", got)
	}
}

func TestHighPassRemovesDC(t *testing.T) {
	filter := NewHighPass(44100, 38.0, 0.5)
	input := make([]float64, 44100)
	for i := range input {
		input[i] = 1.0
	}
	out := filter.Process(input)

	tail := out[len(out)-1000:]
	sum := 0.0
	for _, v := range tail {
		sum += math.Abs(v)
	}
	if mean := sum / float64(len(tail)); mean > 0.05 {
		t.Fatalf("expected DC removed, residual mean %g", mean)
	}
}

func kWeightedGainDB(t *testing.T, freq float64, sampleRate int) float64 {
	t.Helper()
	input := sine(freq, sampleRate, sampleRate)
	chain := KWeighting(sampleRate)
	output := ApplyChain(input, chain[0], chain[1])

	// Skip the filter transient before measuring.
	skip := sampleRate / 10
	in := RMS(input[skip:])
	out := RMS(output[skip:])
	return 20 * math.Log10(out/in)
}

func TestKWeightingResponse(t *testing.T) {
	const rate = 48000

	// BS.1770 absolute calibration offsets the filter gain at 997 Hz
	// (about +0.69 dB) inside the loudness formula.
	at1k := kWeightedGainDB(t, 997, rate)
	if math.Abs(at1k-0.69) > 0.5 {
		t.Fatalf("expected about +0.69 dB at 997 Hz, got %f", at1k)
	}

	atHigh := kWeightedGainDB(t, 10000, rate)
	if atHigh < 3.0 {
		t.Fatalf("expected shelf boost near +4 dB at 10 kHz, got %f", atHigh)
	}

	atLow := kWeightedGainDB(t, 25, rate)
	if atLow > -3.0 {
		t.Fatalf("expected high-pass rolloff at 25 Hz, got %f", atLow)
	}
}

func TestAutocorrelateFindsPeriod(t *testing.T) {
	const period = 50
	x := make([]float64, 1000)
	for i := 0; i < len(x); i += period {
		x[i] = 1.0
	}

	corr := Autocorrelate(x, 10, 100)
	if corr == nil {
		t.Fatal("expected correlation output")
	}
	best := MaxIndex(corr)
	if got := best + 10; got != period {
		t.Fatalf("expected autocorrelation peak at lag %d, got %d", period, got)
	}
}

func TestAutocorrelateSilence(t *testing.T) {
	corr := Autocorrelate(make([]float64, 500), 10, 100)
	for i, v := range corr {
		if v != 0 {
			t.Fatalf("expected zero correlation for silence, got %g at %d", v, i)
		}
	}
}

func TestMeanDecimate(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	got := MeanDecimate(x, 2)
	want := []float64{1.5, 3.5, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestPeaksRespectsMinDistance(t *testing.T) {
	x := []float64{0, 1, 0, 0, 0.5, 0, 2, 0}

	got := Peaks(x, 2, 0.1)
	want := []int{1, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("expected peaks %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected peaks %v, got %v", want, got)
		}
	}

	got = Peaks(x, 3, 0.1)
	want = []int{1, 6}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected larger peak to win within min distance, got %v", got)
	}
}

func TestBinFrequency(t *testing.T) {
	if got := BinFrequency(128, 4096, 44100); math.Abs(got-1378.125) > 1e-9 {
		t.Fatalf("unexpected bin frequency: %f", got)
	}
}
