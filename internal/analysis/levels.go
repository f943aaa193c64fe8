package analysis

import (
	"context"
	"math"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

// levelsExtractor measures broadband sample statistics: peak, RMS, crest
// factor, DC offset, and zero-crossing rate.
type levelsExtractor struct{}

func (levelsExtractor) Name() string { return "levels" }

func (levelsExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	var peak, sumSquares, sum float64
	for _, s := range buf.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
		sumSquares += s * s
		sum += s
	}
	n := float64(len(buf.Samples))
	rms := math.Sqrt(sumSquares / n)

	res.Features.SamplePeakDB = dsp.AmplitudeToDB(peak)
	res.Features.RMSDB = dsp.AmplitudeToDB(rms)
	res.Features.CrestDB = res.Features.SamplePeakDB - res.Features.RMSDB
	res.Features.DCOffset = sum / n

	mono := res.Mono()
	crossings := 0
	for i := 1; i < len(mono); i++ {
		if (mono[i-1] >= 0) != (mono[i] >= 0) {
			crossings++
		}
	}
	if len(mono) > 1 {
		res.Features.ZeroCrossRate = float64(crossings) / float64(len(mono)-1)
	}
	return nil
}
