package analysis

import (
	"context"
	"math"
	"strconv"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

// Krumhansl-Schmuckler tonal hierarchy profiles.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Camelot wheel positions indexed by pitch class.
var (
	camelotMajor = [12]int{8, 3, 10, 5, 12, 7, 2, 9, 4, 11, 6, 1}
	camelotMinor = [12]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}
)

const (
	chromaMinHz = 65.0
	chromaMaxHz = 2100.0

	// Moving-average width in bins for spectral whitening before chroma
	// folding.
	whitenWindowBins = 15

	// Bins below this fraction of the frame peak carry no tonal content and
	// are zeroed before whitening, which would otherwise lift them to O(1).
	whitenFloorRatio = 1e-3
)

// keyExtractor estimates the musical key by folding a whitened spectrogram
// into a chromagram and correlating it against the Krumhansl-Schmuckler major
// and minor profiles in all 24 transpositions.
type keyExtractor struct {
	windowSeconds float64
}

func newKeyExtractor(windowSeconds float64) keyExtractor {
	return keyExtractor{windowSeconds: windowSeconds}
}

func (keyExtractor) Name() string { return "key" }

func (k keyExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	mono := res.Mono()
	if k.windowSeconds > 0 {
		if max := int(k.windowSeconds * float64(res.SampleRate())); len(mono) > max {
			mono = mono[:max]
		}
	}

	frames := dsp.STFT(mono, res.FrameSize(), res.HopSize())
	if len(frames) == 0 {
		return nil
	}

	tuningCents := estimateTuning(frames, res.FrameSize(), res.SampleRate())

	chroma := make([]float64, 12)
	for _, mags := range frames {
		whitened := whitenSpectrum(mags)
		for bin, m := range whitened {
			freq := dsp.BinFrequency(bin, res.FrameSize(), res.SampleRate())
			if freq < chromaMinHz || freq > chromaMaxHz {
				continue
			}
			adjusted := freq * math.Pow(2, -tuningCents/1200)
			note := int(math.Round(12*math.Log2(adjusted/440)+69)) % 12
			if note < 0 {
				note += 12
			}
			chroma[note] += m
		}
	}
	for i := range chroma {
		chroma[i] /= float64(len(frames))
	}
	res.Features.Chroma = chroma

	index, mode, confidence := bestKey(chroma)
	if confidence <= 0 {
		return nil
	}
	res.Features.KeyIndex = index
	res.Features.KeyMode = mode
	res.Features.KeyName = noteNames[index] + " " + mode
	res.Features.KeyConfidence = confidence
	res.Features.Camelot = camelotCode(index, mode)
	return nil
}

// estimateTuning histograms the cent deviation of spectral peaks from A440
// equal temperament across every frame and returns the dominant offset.
// Pooling frames keeps a quiet or fading intro from skewing the estimate.
func estimateTuning(frames [][]float64, frameSize, rate int) float64 {
	const binWidthCents = 5.0
	hist := make(map[int]int)
	for _, mags := range frames {
		for i := 1; i < len(mags)-1; i++ {
			if mags[i] <= mags[i-1] || mags[i] <= mags[i+1] || mags[i] < 1e-3 {
				continue
			}
			freq := dsp.BinFrequency(i, frameSize, rate)
			if freq < chromaMinHz || freq > chromaMaxHz {
				continue
			}
			midi := 12*math.Log2(freq/440) + 69
			expected := 440 * math.Pow(2, (math.Round(midi)-69)/12)
			cents := 1200 * math.Log2(freq/expected)
			hist[int(math.Round(cents/binWidthCents))]++
		}
	}
	bestBin, bestCount := 0, 0
	for bin, count := range hist {
		if count > bestCount {
			bestBin, bestCount = bin, count
		}
	}
	return float64(bestBin) * binWidthCents
}

// whitenSpectrum divides each bin by a local moving average, flattening broad
// spectral tilt so strong harmonics dominate the chroma fold. Bins below
// whitenFloorRatio of the frame peak are zeroed first; dividing noise-floor
// bins by their own tiny average would weight them like real harmonics.
func whitenSpectrum(mags []float64) []float64 {
	var peak float64
	for _, m := range mags {
		if m > peak {
			peak = m
		}
	}
	floor := peak * whitenFloorRatio

	half := whitenWindowBins / 2
	out := make([]float64, len(mags))
	for i := range mags {
		if mags[i] < floor {
			continue
		}
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(mags) {
			end = len(mags)
		}
		var sum float64
		for _, m := range mags[start:end] {
			sum += m
		}
		avg := sum / float64(end-start)
		if avg > 1e-9 {
			out[i] = mags[i] / avg
		} else {
			out[i] = mags[i]
		}
	}
	return out
}

// bestKey correlates the chromagram against all 24 shifted profiles and
// returns the winner with a confidence equal to its margin over the runner-up.
func bestKey(chroma []float64) (index int, mode string, confidence float64) {
	type candidate struct {
		index int
		mode  string
		score float64
	}
	best := candidate{score: math.Inf(-1)}
	second := candidate{score: math.Inf(-1)}
	consider := func(c candidate) {
		if c.score > best.score {
			second = best
			best = c
		} else if c.score > second.score {
			second = c
		}
	}
	for root := 0; root < 12; root++ {
		consider(candidate{root, "major", profileCorrelation(chroma, majorProfile, root)})
		consider(candidate{root, "minor", profileCorrelation(chroma, minorProfile, root)})
	}
	if math.IsInf(best.score, -1) || best.score <= 0 {
		return 0, "", 0
	}
	margin := best.score - second.score
	if margin > 1 {
		margin = 1
	}
	return best.index, best.mode, margin
}

func profileCorrelation(chroma []float64, profile [12]float64, shift int) float64 {
	var shifted [12]float64
	for i := 0; i < 12; i++ {
		shifted[i] = profile[(i-shift+12)%12]
	}
	var meanA, meanB float64
	for i := 0; i < 12; i++ {
		meanA += chroma[i]
		meanB += shifted[i]
	}
	meanA /= 12
	meanB /= 12
	var cov, varA, varB float64
	for i := 0; i < 12; i++ {
		da := chroma[i] - meanA
		db := shifted[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func camelotCode(index int, mode string) string {
	switch mode {
	case "major":
		return strconv.Itoa(camelotMajor[index]) + "B"
	case "minor":
		return strconv.Itoa(camelotMinor[index]) + "A"
	default:
		return ""
	}
}
