package profile

import (
	"math"

	"soundcheck/internal/library"
)

// Family groups metrics for recommendation wording.
type Family string

const (
	FamilyLoudness Family = "loudness"
	FamilyDynamics Family = "dynamics"
	FamilyTonal    Family = "tonal"
	FamilySpectral Family = "spectral"
	FamilyStereo   Family = "stereo"
	FamilyRhythm   Family = "rhythm"
)

// MetricDef describes one profiled metric: how to read it from a feature set,
// how much it matters in gap scoring, and how to phrase it.
type MetricDef struct {
	Name    string
	Label   string
	Unit    string
	Family  Family
	Weight  float64
	Extract func(*library.Features) float64
}

// Loudness and tonal balance dominate how a mix reads against references, so
// they carry more weight than fine spectral statistics.
var metricDefs = []MetricDef{
	{"integrated_lufs", "Integrated loudness", "LUFS", FamilyLoudness, 2.0, func(f *library.Features) float64 { return f.IntegratedLUFS }},
	{"loudness_range", "Loudness range", "LU", FamilyDynamics, 1.5, func(f *library.Features) float64 { return f.LoudnessRange }},
	{"true_peak_db", "True peak", "dBTP", FamilyLoudness, 1.5, func(f *library.Features) float64 { return f.TruePeakDB }},
	{"crest_db", "Crest factor", "dB", FamilyDynamics, 1.5, func(f *library.Features) float64 { return f.CrestDB }},
	{"rms_db", "RMS level", "dB", FamilyLoudness, 1.0, func(f *library.Features) float64 { return f.RMSDB }},
	{"bpm", "Tempo", "BPM", FamilyRhythm, 1.0, func(f *library.Features) float64 { return f.BPM }},
	{"spectral_centroid_hz", "Spectral centroid", "Hz", FamilyTonal, 1.5, func(f *library.Features) float64 { return f.SpectralCentroidHz }},
	{"spectral_rolloff_hz", "Spectral rolloff", "Hz", FamilySpectral, 0.75, func(f *library.Features) float64 { return f.SpectralRolloffHz }},
	{"spectral_bandwidth_hz", "Spectral bandwidth", "Hz", FamilySpectral, 0.75, func(f *library.Features) float64 { return f.SpectralBandwidthHz }},
	{"spectral_flatness", "Spectral flatness", "", FamilySpectral, 0.5, func(f *library.Features) float64 { return f.SpectralFlatness }},
	{"spectral_flux_mean", "Spectral flux", "", FamilySpectral, 0.5, func(f *library.Features) float64 { return f.SpectralFluxMean }},
	{"zero_cross_rate", "Zero-crossing rate", "", FamilySpectral, 0.5, func(f *library.Features) float64 { return f.ZeroCrossRate }},
	{"stereo_correlation", "Stereo correlation", "", FamilyStereo, 1.0, func(f *library.Features) float64 { return f.StereoCorrelation }},
	{"stereo_width", "Stereo width", "", FamilyStereo, 1.0, func(f *library.Features) float64 { return f.StereoWidth }},
	{"mid_side_ratio_db", "Mid/side ratio", "dB", FamilyStereo, 0.75, func(f *library.Features) float64 { return f.MidSideRatioDB }},
	{"band_sub", "Sub level", "dB", FamilyTonal, 1.5, bandExtract("sub")},
	{"band_bass", "Bass level", "dB", FamilyTonal, 2.0, bandExtract("bass")},
	{"band_lowmid", "Low-mid level", "dB", FamilyTonal, 1.5, bandExtract("lowmid")},
	{"band_mid", "Mid level", "dB", FamilyTonal, 1.5, bandExtract("mid")},
	{"band_highmid", "High-mid level", "dB", FamilyTonal, 1.5, bandExtract("highmid")},
	{"band_presence", "Presence level", "dB", FamilyTonal, 1.5, bandExtract("presence")},
	{"band_air", "Air level", "dB", FamilyTonal, 1.25, bandExtract("air")},
}

var metricByName = func() map[string]MetricDef {
	m := make(map[string]MetricDef, len(metricDefs))
	for _, def := range metricDefs {
		m[def.Name] = def
	}
	return m
}()

func bandExtract(band string) func(*library.Features) float64 {
	return func(f *library.Features) float64 {
		v, ok := f.BandEnergies[band]
		if !ok {
			return math.NaN()
		}
		return v
	}
}

// Metrics returns the canonical metric order used in profiles, correlation
// matrices, and gap reports.
func Metrics() []MetricDef {
	out := make([]MetricDef, len(metricDefs))
	copy(out, metricDefs)
	return out
}

// MetricNames returns the canonical metric names in order.
func MetricNames() []string {
	names := make([]string, len(metricDefs))
	for i, def := range metricDefs {
		names[i] = def.Name
	}
	return names
}

// Lookup returns the definition of a metric by name.
func Lookup(name string) (MetricDef, bool) {
	def, ok := metricByName[name]
	return def, ok
}

// vectorOf flattens a feature set into the canonical metric order. The second
// return is false when any metric is missing or non-finite.
func vectorOf(f *library.Features) ([]float64, bool) {
	vec := make([]float64, len(metricDefs))
	for i, def := range metricDefs {
		v := def.Extract(f)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		vec[i] = v
	}
	return vec, true
}
