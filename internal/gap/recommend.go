package gap

import (
	"fmt"

	"soundcheck/internal/profile"
)

// adviceFor phrases a fix for one out-of-range metric. Wording is grouped by
// metric family and keyed on direction relative to the references.
func adviceFor(g MetricGap) (action, detail string) {
	deltaText := fmt.Sprintf("%s is %.2f against a reference mean of %.2f", g.Label, g.Value, g.Mean)
	if g.Unit != "" {
		deltaText = fmt.Sprintf("%s is %.2f %s against a reference mean of %.2f %s", g.Label, g.Value, g.Unit, g.Mean, g.Unit)
	}

	switch g.Metric {
	case "integrated_lufs":
		if g.Direction == DirectionLow {
			return "Raise overall loudness", deltaText + ". Push more input gain into the limiter or raise its output ceiling."
		}
		return "Lower overall loudness", deltaText + ". Ease off the limiter so the master sits with the references."
	case "true_peak_db":
		if g.Direction == DirectionHigh {
			return "Pull down the true-peak ceiling", deltaText + ". Set the limiter ceiling around -1 dBTP to avoid clipping on lossy encodes."
		}
		return "Recover headroom usage", deltaText + ". The master peaks well below the references; raise output gain."
	case "loudness_range", "crest_db":
		if g.Direction == DirectionLow {
			return "Restore dynamics", deltaText + ". Reduce bus compression ratio or slow the attack to let transients through."
		}
		return "Tighten dynamics", deltaText + ". Add gentle bus compression to even out the level swings."
	case "rms_db":
		if g.Direction == DirectionLow {
			return "Raise average level", deltaText + "."
		}
		return "Lower average level", deltaText + "."
	case "bpm":
		if g.Direction == DirectionLow {
			return "Consider a faster tempo", deltaText + "."
		}
		return "Consider a slower tempo", deltaText + "."
	case "spectral_centroid_hz":
		if g.Direction == DirectionHigh {
			return "Tame the top end", deltaText + ". Try a gentle high shelf cut around 4-8 kHz."
		}
		return "Open up the top end", deltaText + ". Try a gentle high shelf boost or brighter saturation."
	case "stereo_correlation":
		if g.Direction == DirectionLow {
			return "Check mono compatibility", deltaText + ". Low correlation risks phase cancellation in mono playback."
		}
		return "Widen the stereo image", deltaText + ". The mix is narrower than the references."
	case "stereo_width", "mid_side_ratio_db":
		if g.Direction == DirectionLow {
			return "Widen the stereo image", deltaText + ". Add side energy with stereo spread or wider reverbs."
		}
		return "Narrow the stereo image", deltaText + ". Pull side level down, especially in the low end."
	}

	// Band metrics share one wording pattern.
	if band, ok := bandRegion[g.Metric]; ok {
		if g.Direction == DirectionLow {
			return fmt.Sprintf("Boost the %s", band.region), deltaText + fmt.Sprintf(". Add energy around %s.", band.rangeText)
		}
		return fmt.Sprintf("Reduce the %s", band.region), deltaText + fmt.Sprintf(". Cut around %s.", band.rangeText)
	}

	switch g.Family() {
	case "spectral":
		if g.Direction == DirectionLow {
			return fmt.Sprintf("Raise %s", g.Label), deltaText + "."
		}
		return fmt.Sprintf("Reduce %s", g.Label), deltaText + "."
	default:
		return fmt.Sprintf("Review %s", g.Label), deltaText + "."
	}
}

var bandRegion = map[string]struct {
	region    string
	rangeText string
}{
	"band_sub":      {"sub bass", "20-60 Hz"},
	"band_bass":     {"bass", "60-250 Hz"},
	"band_lowmid":   {"low mids", "250-500 Hz"},
	"band_mid":      {"mids", "500 Hz-2 kHz"},
	"band_highmid":  {"high mids", "2-4 kHz"},
	"band_presence": {"presence range", "4-6 kHz"},
	"band_air":      {"air band", "6-20 kHz"},
}

// Family returns the metric family for recommendation wording.
func (g MetricGap) Family() string {
	if def, ok := profile.Lookup(g.Metric); ok {
		return string(def.Family)
	}
	return ""
}

// recommend turns flagged gaps into at most topN ranked recommendations.
// Gaps arrive sorted by priority, so rank follows input order.
func recommend(gaps []MetricGap, topN int) []Recommendation {
	recs := make([]Recommendation, 0, topN)
	for _, g := range gaps {
		if g.Severity == SeverityOK {
			continue
		}
		action, detail := adviceFor(g)
		recs = append(recs, Recommendation{
			Rank:   len(recs) + 1,
			Metric: g.Metric,
			Action: action,
			Detail: detail,
		})
		if len(recs) == topN {
			break
		}
	}
	return recs
}
