package analysis

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

// stereoExtractor measures the stereo image: L/R correlation, mid/side level
// difference, and a width coefficient.
type stereoExtractor struct{}

func (stereoExtractor) Name() string { return "stereo" }

func (stereoExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	if buf.Channels < 2 {
		res.Features.StereoCorrelation = 1
		res.Features.StereoWidth = 0
		res.Features.MidSideRatioDB = dsp.SilenceFloorDB
		return nil
	}

	left := res.Left()
	right := res.Right()

	var midEnergy, sideEnergy float64
	for i := range left {
		mid := (left[i] + right[i]) / 2
		side := (left[i] - right[i]) / 2
		midEnergy += mid * mid
		sideEnergy += side * side
	}

	res.Features.StereoCorrelation = channelCorrelation(left, right)
	res.Features.MidSideRatioDB = dsp.PowerToDB(sideEnergy) - dsp.PowerToDB(midEnergy)

	// Side share of total M/S energy: 0 for mono, 1 for uncorrelated wide
	// material, approaching 2 for anti-phase channels.
	if total := midEnergy + sideEnergy; total > 0 {
		res.Features.StereoWidth = 2 * sideEnergy / total
	}
	return nil
}

// channelCorrelation is the Pearson correlation of the two channels, with
// degenerate (constant) channels treated as fully correlated when identical.
func channelCorrelation(left, right []float64) float64 {
	c := stat.Correlation(left, right, nil)
	if math.IsNaN(c) {
		for i := range left {
			if left[i] != right[i] {
				return 0
			}
		}
		return 1
	}
	return c
}
