package analysis

import (
	"context"
	"math"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

// tempoExtractor estimates BPM from the autocorrelation of an onset strength
// envelope built from positive spectral flux.
type tempoExtractor struct {
	minBPM float64
	maxBPM float64
}

func newTempoExtractor(minBPM, maxBPM float64) tempoExtractor {
	return tempoExtractor{minBPM: minBPM, maxBPM: maxBPM}
}

func (tempoExtractor) Name() string { return "tempo" }

func (t tempoExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	frames := res.Frames()
	if len(frames) < 3 {
		return nil
	}

	envelope := onsetEnvelope(frames)
	envRate := float64(res.SampleRate()) / float64(res.HopSize())

	// Lag bounds in envelope samples for the configured BPM range.
	minLag := int(envRate * 60 / t.maxBPM)
	maxLag := int(math.Ceil(envRate * 60 / t.minBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag <= minLag || len(envelope) <= maxLag {
		return nil
	}

	ac := dsp.Autocorrelate(envelope, minLag, maxLag)
	if ac == nil {
		return nil
	}

	best := dsp.MaxIndex(ac)
	if best < 0 || ac[best] <= 0 {
		return nil
	}

	lag := refinedLag(ac, best) + float64(minLag)
	bpm := envRate * 60 / lag
	bpm = t.foldToRange(bpm, envelope, envRate)

	res.Features.BPM = bpm
	res.Features.BPMConfidence = peakProminence(ac, best)
	return nil
}

// onsetEnvelope sums the positive spectral flux per frame and removes the
// local mean so the autocorrelation sees onset periodicity, not level drift.
func onsetEnvelope(frames [][]float64) []float64 {
	envelope := make([]float64, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		var flux float64
		for j := range frames[i] {
			if d := frames[i][j] - frames[i-1][j]; d > 0 {
				flux += d
			}
		}
		envelope[i-1] = flux
	}

	var mean float64
	for _, v := range envelope {
		mean += v
	}
	mean /= float64(len(envelope))
	for i := range envelope {
		envelope[i] -= mean
	}
	return envelope
}

// refinedLag interpolates the autocorrelation peak position with a quadratic
// fit through the peak and its neighbors, returning the fractional offset from
// minLag.
func refinedLag(ac []float64, peak int) float64 {
	if peak <= 0 || peak >= len(ac)-1 {
		return float64(peak)
	}
	y0, y1, y2 := ac[peak-1], ac[peak], ac[peak+1]
	denom := y0 - 2*y1 + y2
	if denom == 0 {
		return float64(peak)
	}
	return float64(peak) + 0.5*(y0-y2)/denom
}

// foldToRange resolves half/double-time ambiguity: when doubling or halving
// the estimate keeps it in range and its autocorrelation support is
// comparable, prefer the value closer to the center of the configured range.
func (t tempoExtractor) foldToRange(bpm float64, envelope []float64, envRate float64) float64 {
	center := (t.minBPM + t.maxBPM) / 2
	best := bpm
	bestDist := math.Abs(bpm - center)
	for _, factor := range [...]float64{0.5, 2} {
		alt := bpm * factor
		if alt < t.minBPM || alt > t.maxBPM {
			continue
		}
		if !supportsTempo(envelope, envRate, alt) {
			continue
		}
		if d := math.Abs(alt - center); d < bestDist {
			best = alt
			bestDist = d
		}
	}
	return best
}

// supportsTempo checks that the envelope autocorrelation at the lag implied by
// bpm is meaningfully positive.
func supportsTempo(envelope []float64, envRate, bpm float64) bool {
	lag := int(math.Round(envRate * 60 / bpm))
	if lag < 1 || len(envelope) <= lag {
		return false
	}
	ac := dsp.Autocorrelate(envelope, lag, lag)
	return len(ac) == 1 && ac[0] > 0.1
}

// peakProminence scores a peak against the autocorrelation mean, clamped to
// [0, 1]. Flat autocorrelations (weak periodicity) score near zero.
func peakProminence(ac []float64, peak int) float64 {
	var mean float64
	for _, v := range ac {
		mean += v
	}
	mean /= float64(len(ac))
	prominence := ac[peak] - mean
	if prominence < 0 {
		return 0
	}
	if prominence > 1 {
		return 1
	}
	return prominence
}
