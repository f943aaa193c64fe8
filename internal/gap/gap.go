package gap

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"soundcheck/internal/library"
	"soundcheck/internal/profile"
	"soundcheck/internal/services"
)

// Severity buckets the magnitude of a metric gap.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Direction describes which side of the reference a candidate metric falls.
type Direction string

const (
	DirectionLow   Direction = "low"
	DirectionHigh  Direction = "high"
	DirectionMatch Direction = "match"
)

// MetricGap is the comparison of one candidate metric against the profile.
type MetricGap struct {
	Metric     string    `json:"metric"`
	Label      string    `json:"label"`
	Unit       string    `json:"unit,omitempty"`
	Value      float64   `json:"value"`
	Mean       float64   `json:"mean"`
	StdDev     float64   `json:"std_dev"`
	ZScore     float64   `json:"z_score"`
	Percentile float64   `json:"percentile"`
	Direction  Direction `json:"direction"`
	Severity   Severity  `json:"severity"`
	Weight     float64   `json:"weight"`
	Priority   float64   `json:"priority"`
}

// Recommendation is one prioritized fix suggestion.
type Recommendation struct {
	Rank   int    `json:"rank"`
	Metric string `json:"metric"`
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// Report is the full gap analysis of one candidate against one profile.
type Report struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	TrackID         int64            `json:"track_id"`
	TrackTitle      string           `json:"track_title"`
	SetName         string           `json:"set_name"`
	ProfileBuiltAt  time.Time        `json:"profile_built_at"`
	MatchScore      float64          `json:"match_score"`
	NearestCluster  string           `json:"nearest_cluster"`
	Gaps            []MetricGap      `json:"gaps"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
}

// Options bounds the report output.
type Options struct {
	// TopRecommendations caps the recommendation list. Zero means 5.
	TopRecommendations int
}

// Analyze compares the candidate's features against the profile. Every metric
// the profile knows yields exactly one MetricGap; candidate metrics that are
// missing or non-finite are skipped and noted in the summary.
func Analyze(prof *profile.Profile, track *library.Track, features *library.Features, opts Options) (*Report, error) {
	if prof == nil {
		return nil, services.Wrap(services.ErrValidation, "gap", "analyze", "Reference profile is required", nil)
	}
	if features == nil {
		return nil, services.Wrap(services.ErrValidation, "gap", "analyze", "Candidate features are required", nil)
	}
	topN := opts.TopRecommendations
	if topN <= 0 {
		topN = 5
	}

	report := &Report{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		SetName:        prof.SetName,
		ProfileBuiltAt: prof.BuiltAt,
	}
	if track != nil {
		report.TrackID = track.ID
		report.TrackTitle = track.DisplayTitle()
	}

	order := make(map[string]int, len(prof.MetricOrder))
	for i, name := range prof.MetricOrder {
		order[name] = i
	}

	var skipped []string
	var scoreSum, weightSum float64
	for _, name := range prof.MetricOrder {
		stats, ok := prof.Stats[name]
		if !ok {
			continue
		}
		def, ok := profile.Lookup(name)
		if !ok {
			continue
		}
		value := def.Extract(features)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			skipped = append(skipped, def.Label)
			continue
		}

		z := (value - stats.Mean) / math.Max(stats.StdDev, profile.StdDevFloor)
		g := MetricGap{
			Metric:     name,
			Label:      def.Label,
			Unit:       def.Unit,
			Value:      value,
			Mean:       stats.Mean,
			StdDev:     stats.StdDev,
			ZScore:     z,
			Percentile: percentile(value, z, stats, prof.TrackCount),
			Direction:  direction(value, stats.Mean, z),
			Severity:   severity(z),
			Weight:     def.Weight,
			Priority:   math.Abs(z) * def.Weight,
		}
		report.Gaps = append(report.Gaps, g)

		scoreSum += def.Weight * math.Exp(-z*z/8)
		weightSum += def.Weight
	}

	if weightSum > 0 {
		report.MatchScore = 100 * scoreSum / weightSum
	}
	report.NearestCluster = nearestCluster(prof, features)

	sort.SliceStable(report.Gaps, func(i, j int) bool {
		if report.Gaps[i].Priority != report.Gaps[j].Priority {
			return report.Gaps[i].Priority > report.Gaps[j].Priority
		}
		return order[report.Gaps[i].Metric] < order[report.Gaps[j].Metric]
	})

	report.Recommendations = recommend(report.Gaps, topN)
	report.Summary = summarize(report, skipped)
	return report, nil
}

func severity(z float64) Severity {
	switch a := math.Abs(z); {
	case a >= 3:
		return SeveritySevere
	case a >= 2:
		return SeverityModerate
	case a >= 1:
		return SeverityMinor
	default:
		return SeverityOK
	}
}

func direction(value, mean, z float64) Direction {
	switch {
	case value == mean || math.Abs(z) < 1e-9:
		return DirectionMatch
	case value < mean:
		return DirectionLow
	default:
		return DirectionHigh
	}
}

// percentile blends the normal-CDF rank with an empirical interpolation over
// the profile's stored quantiles. Small sets fall back to the CDF alone,
// since their quantiles are too coarse to interpolate.
func percentile(value, z float64, stats profile.MetricStats, trackCount int) float64 {
	normal := 100 * normCDF(z)
	if trackCount < 10 {
		return normal
	}
	return (normal + empiricalPercentile(value, stats)) / 2
}

func normCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// empiricalPercentile interpolates linearly through the stored quantile knots.
func empiricalPercentile(value float64, stats profile.MetricStats) float64 {
	knots := [...]struct {
		x float64
		p float64
	}{
		{stats.Min, 0},
		{stats.P10, 10},
		{stats.P25, 25},
		{stats.P50, 50},
		{stats.P75, 75},
		{stats.P90, 90},
		{stats.Max, 100},
	}
	if value <= knots[0].x {
		return 0
	}
	if value >= knots[len(knots)-1].x {
		return 100
	}
	for i := 1; i < len(knots); i++ {
		if value > knots[i].x {
			continue
		}
		lo, hi := knots[i-1], knots[i]
		if hi.x == lo.x {
			return hi.p
		}
		return lo.p + (hi.p-lo.p)*(value-lo.x)/(hi.x-lo.x)
	}
	return 100
}

// nearestCluster finds the profile cluster whose standardized centroid is
// closest to the candidate in Euclidean distance.
func nearestCluster(prof *profile.Profile, features *library.Features) string {
	if len(prof.Clusters) == 0 {
		return ""
	}

	best := ""
	bestDist := math.Inf(1)
	for _, cluster := range prof.Clusters {
		var sum float64
		usable := true
		for _, name := range prof.MetricOrder {
			def, ok := profile.Lookup(name)
			if !ok {
				continue
			}
			stats := prof.Stats[name]
			value := def.Extract(features)
			if math.IsNaN(value) || math.IsInf(value, 0) {
				usable = false
				break
			}
			std := math.Max(stats.StdDev, profile.StdDevFloor)
			d := (value - cluster.Centroid[name]) / std
			sum += d * d
		}
		if !usable {
			continue
		}
		if sum < bestDist {
			bestDist = sum
			best = cluster.Label
		}
	}
	return best
}

func summarize(report *Report, skipped []string) string {
	var flagged int
	for _, g := range report.Gaps {
		if g.Severity != SeverityOK {
			flagged++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Match score %.0f/100 against %q", report.MatchScore, report.SetName)
	if report.NearestCluster != "" {
		fmt.Fprintf(&b, ", closest to the %q cluster", report.NearestCluster)
	}
	switch flagged {
	case 0:
		b.WriteString(". All metrics sit inside the reference range.")
	case 1:
		b.WriteString(". 1 metric stands out from the references.")
	default:
		fmt.Fprintf(&b, ". %d metrics stand out from the references.", flagged)
	}
	if len(skipped) > 0 {
		fmt.Fprintf(&b, " Skipped (not measured): %s.", strings.Join(skipped, ", "))
	}
	return b.String()
}
