package analysis

import (
	"context"
	"math"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

// Frames whose total magnitude falls below this floor are treated as silence
// and excluded from spectral aggregates.
const silentFrameMagnitude = 1e-6

const rolloffFraction = 0.85

// spectralExtractor aggregates per-frame spectral shape statistics: centroid,
// rolloff, bandwidth, flatness, and mean flux.
type spectralExtractor struct{}

func (spectralExtractor) Name() string { return "spectral" }

func (spectralExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	frames := res.Frames()
	if len(frames) == 0 {
		return nil
	}

	var (
		centroidSum  float64
		rolloffSum   float64
		bandwidthSum float64
		flatnessSum  float64
		fluxSum      float64
		voiced       int
	)

	var prev []float64
	for _, mags := range frames {
		var total float64
		for _, m := range mags {
			total += m
		}

		if prev != nil {
			var flux float64
			for j := range mags {
				if d := mags[j] - prev[j]; d > 0 {
					flux += d
				}
			}
			fluxSum += flux
		}
		prev = mags

		if total < silentFrameMagnitude {
			continue
		}
		voiced++

		centroid := frameCentroid(mags, total, res.FrameSize(), res.SampleRate())
		centroidSum += centroid
		rolloffSum += frameRolloff(mags, total, res.FrameSize(), res.SampleRate())
		bandwidthSum += frameBandwidth(mags, total, centroid, res.FrameSize(), res.SampleRate())
		flatnessSum += frameFlatness(mags)
	}

	if voiced > 0 {
		n := float64(voiced)
		res.Features.SpectralCentroidHz = centroidSum / n
		res.Features.SpectralRolloffHz = rolloffSum / n
		res.Features.SpectralBandwidthHz = bandwidthSum / n
		res.Features.SpectralFlatness = flatnessSum / n
	}
	if len(frames) > 1 {
		res.Features.SpectralFluxMean = fluxSum / float64(len(frames)-1)
	}
	return nil
}

func frameCentroid(mags []float64, total float64, frameSize, rate int) float64 {
	var weighted float64
	for j, m := range mags {
		weighted += dsp.BinFrequency(j, frameSize, rate) * m
	}
	return weighted / total
}

// frameRolloff returns the frequency below which rolloffFraction of the frame
// magnitude is concentrated.
func frameRolloff(mags []float64, total float64, frameSize, rate int) float64 {
	target := total * rolloffFraction
	var cum float64
	for j, m := range mags {
		cum += m
		if cum >= target {
			return dsp.BinFrequency(j, frameSize, rate)
		}
	}
	return dsp.BinFrequency(len(mags)-1, frameSize, rate)
}

func frameBandwidth(mags []float64, total, centroid float64, frameSize, rate int) float64 {
	var variance float64
	for j, m := range mags {
		d := dsp.BinFrequency(j, frameSize, rate) - centroid
		variance += d * d * m
	}
	return math.Sqrt(variance / total)
}

// frameFlatness is the ratio of geometric to arithmetic mean of the power
// spectrum, 1.0 for white noise and near 0 for pure tones.
func frameFlatness(mags []float64) float64 {
	var logSum, sum float64
	for _, m := range mags {
		p := m*m + 1e-20
		logSum += math.Log(p)
		sum += p
	}
	n := float64(len(mags))
	geometric := math.Exp(logSum / n)
	arithmetic := sum / n
	if arithmetic <= 0 {
		return 0
	}
	return geometric / arithmetic
}
