package analysis

import (
	"context"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

type frequencyBand struct {
	name string
	low  float64
	high float64
}

// Band edges follow common mixing nomenclature; "air" is capped at 20 kHz
// regardless of the Nyquist limit so shares stay comparable across sample
// rates.
var frequencyBands = []frequencyBand{
	{"sub", 20, 60},
	{"bass", 60, 250},
	{"lowmid", 250, 500},
	{"mid", 500, 2000},
	{"highmid", 2000, 4000},
	{"presence", 4000, 6000},
	{"air", 6000, 20000},
}

// BandNames returns the canonical band order used in profiles and reports.
func BandNames() []string {
	names := make([]string, len(frequencyBands))
	for i, b := range frequencyBands {
		names[i] = b.name
	}
	return names
}

// bandsExtractor measures the energy share of each named frequency band in dB
// relative to the total spectral energy.
type bandsExtractor struct{}

func (bandsExtractor) Name() string { return "bands" }

func (bandsExtractor) Extract(_ context.Context, buf *pcm.Buffer, res *Result) error {
	frames := res.Frames()
	if len(frames) == 0 {
		return nil
	}

	energies := make([]float64, len(frequencyBands))
	var total float64
	for _, mags := range frames {
		for j, m := range mags {
			power := m * m
			total += power
			freq := dsp.BinFrequency(j, res.FrameSize(), res.SampleRate())
			for bi, band := range frequencyBands {
				if freq >= band.low && freq < band.high {
					energies[bi] += power
					break
				}
			}
		}
	}

	shares := make(map[string]float64, len(frequencyBands))
	for bi, band := range frequencyBands {
		if total <= 0 {
			shares[band.name] = dsp.SilenceFloorDB
			continue
		}
		shares[band.name] = dsp.PowerToDB(energies[bi] / total)
	}
	res.Features.BandEnergies = shares
	return nil
}
