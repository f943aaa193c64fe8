package analysis

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

const (
	// Gating blocks are 400 ms at 75% overlap per ITU-R BS.1770-4.
	gatingBlockSeconds = 0.4
	gatingBlockOverlap = 4

	// Short-term loudness uses 3 s windows at a 1 s hop for the EBU R128
	// loudness range.
	shortTermSeconds = 3.0

	absoluteGateLUFS    = -70.0
	relativeGateLU      = -10.0
	rangeRelativeGateLU = -20.0

	// Offset from the BS.1770-4 loudness formula; with the K-filter gain at
	// 997 Hz it centers a full-scale 997 Hz sine near 0 LUFS.
	loudnessOffsetDB = -0.691
)

// loudnessExtractor implements BS.1770-4 integrated loudness, the EBU R128
// loudness range, and an oversampled true peak estimate.
type loudnessExtractor struct{}

func (loudnessExtractor) Name() string { return "loudness" }

func (loudnessExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	rate := buf.SampleRate

	channels := [][]float64{res.Left()}
	if buf.Channels > 1 {
		channels = append(channels, res.Right())
	}

	var truePeak float64
	weighted := make([][]float64, len(channels))
	for i, ch := range channels {
		if tp := oversampledPeak(ch); tp > truePeak {
			truePeak = tp
		}
		chain := dsp.KWeighting(rate)
		weighted[i] = dsp.ApplyChain(ch, chain[:]...)
	}
	res.Features.TruePeakDB = dsp.AmplitudeToDB(truePeak)

	blockSize := int(gatingBlockSeconds * float64(rate))
	powers := blockPowers(weighted, blockSize, blockSize/gatingBlockOverlap)
	res.Features.IntegratedLUFS = gatedLoudness(powers)

	shortSize := int(shortTermSeconds * float64(rate))
	res.Features.LoudnessRange = loudnessRange(blockPowers(weighted, shortSize, rate))
	return nil
}

// blockPowers slides a window over the K-weighted channels and returns the
// channel-summed mean square power of each block.
func blockPowers(channels [][]float64, size, hop int) []float64 {
	if len(channels) == 0 || size <= 0 || hop <= 0 || len(channels[0]) < size {
		return nil
	}
	count := (len(channels[0])-size)/hop + 1
	powers := make([]float64, 0, count)
	for b := 0; b < count; b++ {
		start := b * hop
		var power float64
		for _, ch := range channels {
			var sum float64
			for _, s := range ch[start : start+size] {
				sum += s * s
			}
			power += sum / float64(size)
		}
		powers = append(powers, power)
	}
	return powers
}

func powerToLoudness(power float64) float64 {
	if power <= 0 {
		return dsp.SilenceFloorDB
	}
	l := loudnessOffsetDB + 10*math.Log10(power)
	if l < dsp.SilenceFloorDB {
		return dsp.SilenceFloorDB
	}
	return l
}

// gatedLoudness applies the two-stage BS.1770-4 gate: blocks below -70 LUFS
// are dropped, then blocks more than 10 LU below the intermediate mean.
func gatedLoudness(powers []float64) float64 {
	kept := powers[:0:0]
	for _, p := range powers {
		if powerToLoudness(p) > absoluteGateLUFS {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return dsp.SilenceFloorDB
	}
	threshold := powerToLoudness(stat.Mean(kept, nil)) + relativeGateLU
	var sum float64
	var count int
	for _, p := range kept {
		if powerToLoudness(p) > threshold {
			sum += p
			count++
		}
	}
	if count == 0 {
		return dsp.SilenceFloorDB
	}
	return powerToLoudness(sum / float64(count))
}

// loudnessRange is the 10th to 95th percentile spread of gated short-term
// loudness, per EBU Tech 3342.
func loudnessRange(powers []float64) float64 {
	kept := powers[:0:0]
	for _, p := range powers {
		if powerToLoudness(p) > absoluteGateLUFS {
			kept = append(kept, p)
		}
	}
	if len(kept) < 2 {
		return 0
	}
	threshold := powerToLoudness(stat.Mean(kept, nil)) + rangeRelativeGateLU
	loudness := make([]float64, 0, len(kept))
	for _, p := range kept {
		if l := powerToLoudness(p); l > threshold {
			loudness = append(loudness, l)
		}
	}
	if len(loudness) < 2 {
		return 0
	}
	sort.Float64s(loudness)
	return stat.Quantile(0.95, stat.Empirical, loudness, nil) - stat.Quantile(0.10, stat.Empirical, loudness, nil)
}

// oversampledPeak estimates the inter-sample peak by evaluating a Catmull-Rom
// cubic at 4x between each sample pair.
func oversampledPeak(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	for i := 1; i+2 < len(samples); i++ {
		p0, p1, p2, p3 := samples[i-1], samples[i], samples[i+1], samples[i+2]
		for _, t := range [...]float64{0.25, 0.5, 0.75} {
			a := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
			b := p0 - 2.5*p1 + 2*p2 - 0.5*p3
			c := 0.5 * (p2 - p0)
			v := ((a*t+b)*t+c)*t + p1
			if abs := math.Abs(v); abs > peak {
				peak = abs
			}
		}
	}
	return peak
}
