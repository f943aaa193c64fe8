package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"soundcheck/internal/config"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/services"
)

// SchemaVersion identifies the profile payload layout. Stored profiles with
// an older version are rebuilt before use.
const SchemaVersion = 1

// StdDevFloor is the minimum standard deviation used when standardizing
// metrics, so zero-variance metrics never divide by zero downstream.
const StdDevFloor = 1e-9

// MetricStats summarizes one metric across the reference set.
type MetricStats struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P10    float64 `json:"p10"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// Cluster is one k-means grouping of the reference tracks.
type Cluster struct {
	Label    string             `json:"label"`
	Size     int                `json:"size"`
	Centroid map[string]float64 `json:"centroid"`
	TrackIDs []int64            `json:"track_ids"`
}

// Profile is the full statistical picture of a reference set.
type Profile struct {
	SetName       string                 `json:"set_name"`
	BuiltAt       time.Time              `json:"built_at"`
	TrackCount    int                    `json:"track_count"`
	SchemaVersion int                    `json:"schema_version"`
	MetricOrder   []string               `json:"metric_order"`
	Stats         map[string]MetricStats `json:"stats"`
	Correlations  [][]float64            `json:"correlations"`
	Clusters      []Cluster              `json:"clusters"`
	Centroid      map[string]float64     `json:"centroid"`
}

// Builder assembles profiles under the configured constraints.
type Builder struct {
	minTracks   int
	maxClusters int
	logger      *slog.Logger
}

// NewBuilder constructs a profile builder from config.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		minTracks:   cfg.Profile.MinTracks,
		maxClusters: cfg.Profile.MaxClusters,
		logger:      logging.NewComponentLogger(logger, "profile"),
	}
}

// Build computes the profile of a reference set from its analyzed features.
// Tracks with missing or non-finite metrics are excluded with a warning;
// fewer than the configured minimum of usable tracks is a validation error.
func (b *Builder) Build(ctx context.Context, setName string, features []*library.Features) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float64, 0, len(features))
	trackIDs := make([]int64, 0, len(features))
	for _, f := range features {
		vec, ok := vectorOf(f)
		if !ok {
			b.logger.Warn("excluding track with incomplete features",
				logging.Int64(logging.FieldTrackID, f.TrackID))
			continue
		}
		vectors = append(vectors, vec)
		trackIDs = append(trackIDs, f.TrackID)
	}

	if len(vectors) < b.minTracks {
		return nil, services.Wrap(services.ErrValidation, "profile", "build",
			fmt.Sprintf("Set %q has %d analyzable tracks, need at least %d", setName, len(vectors), b.minTracks), nil)
	}

	names := MetricNames()
	prof := &Profile{
		SetName:       setName,
		BuiltAt:       time.Now().UTC(),
		TrackCount:    len(vectors),
		SchemaVersion: SchemaVersion,
		MetricOrder:   names,
		Stats:         make(map[string]MetricStats, len(names)),
		Centroid:      make(map[string]float64, len(names)),
	}

	column := make([]float64, len(vectors))
	for d, name := range names {
		for i, vec := range vectors {
			column[i] = vec[d]
		}
		stats := columnStats(name, column)
		prof.Stats[name] = stats
		prof.Centroid[name] = stats.Mean
	}

	prof.Correlations = correlationMatrix(vectors, prof)
	prof.Clusters = b.cluster(vectors, trackIDs, prof)
	return prof, nil
}

func columnStats(name string, column []float64) MetricStats {
	sorted := make([]float64, len(column))
	copy(sorted, column)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(column, nil)
	if math.IsNaN(std) || std < StdDevFloor {
		std = StdDevFloor
	}
	return MetricStats{
		Metric: name,
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P10:    stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.90, stat.Empirical, sorted, nil),
	}
}

// correlationMatrix computes the Pearson correlation between metrics over the
// standardized columns. Zero-variance metrics correlate as zero off-diagonal.
func correlationMatrix(vectors [][]float64, prof *Profile) [][]float64 {
	rows := len(vectors)
	cols := len(prof.MetricOrder)
	data := mat.NewDense(rows, cols, nil)
	for i, vec := range vectors {
		for j := range vec {
			data.Set(i, j, vec[j])
		}
	}

	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, data, nil)

	out := make([][]float64, cols)
	for i := 0; i < cols; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			v := sym.At(i, j)
			if math.IsNaN(v) {
				if i == j {
					v = 1
				} else {
					v = 0
				}
			}
			out[i][j] = v
		}
	}
	return out
}

// Standardized maps a raw metric vector into z-scores against this profile.
func (p *Profile) Standardized(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for name, v := range values {
		stats, ok := p.Stats[name]
		if !ok {
			continue
		}
		out[name] = (v - stats.Mean) / math.Max(stats.StdDev, StdDevFloor)
	}
	return out
}

// MarshalJSON output of Profile is stable because MetricOrder fixes the
// canonical ordering; map iteration only affects JSON key order, which
// decoders ignore.

// Encode serializes the profile for storage in the library.
func (p *Profile) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return string(raw), nil
}

// Decode restores a stored profile payload.
func Decode(payload string) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}
