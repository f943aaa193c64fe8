package library

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SimilarTracks ranks library tracks by cosine similarity to the query track
// over standardized feature vectors. The query track itself is excluded.
// Tracks without current-schema features are skipped.
func (s *Store) SimilarTracks(ctx context.Context, trackID int64, limit int) ([]SimilarTrack, error) {
	ctx = ensureContext(ctx)

	target, err := s.FeaturesByTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("track %d has no analyzed features", trackID)
	}

	all, err := s.listFeatures(ctx)
	if err != nil {
		return nil, err
	}
	tracks, err := s.ListTracks(ctx, "", "", 0)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}

	// Assemble the candidate pool with the query track first so it shares
	// the standardization statistics.
	vectors := [][]float64{featureVector(target)}
	candidates := make([]*Features, 0, len(all))
	for _, f := range all {
		if f.TrackID == trackID {
			continue
		}
		if _, ok := byID[f.TrackID]; !ok {
			continue
		}
		candidates = append(candidates, f)
		vectors = append(vectors, featureVector(f))
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	standardize(vectors)

	query := vectors[0]
	results := make([]SimilarTrack, 0, len(candidates))
	for i, f := range candidates {
		results = append(results, SimilarTrack{
			Track:      *byID[f.TrackID],
			Similarity: cosine(query, vectors[i+1]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Track.ID < results[j].Track.ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) listFeatures(ctx context.Context) ([]*Features, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM features WHERE schema_version = ? ORDER BY track_id ASC", featureColumns),
		FeatureSchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var all []*Features
	for rows.Next() {
		features, err := scanFeatures(rows)
		if err != nil {
			return nil, fmt.Errorf("scan features: %w", err)
		}
		all = append(all, features)
	}
	return all, rows.Err()
}

// featureVector flattens the scalar metrics and chroma into a fixed-order
// vector for similarity math. Keep the order stable: standardization is
// positional.
func featureVector(f *Features) []float64 {
	vec := []float64{
		f.BPM,
		f.IntegratedLUFS,
		f.LoudnessRange,
		f.TruePeakDB,
		f.RMSDB,
		f.CrestDB,
		f.ZeroCrossRate,
		f.SpectralCentroidHz,
		f.SpectralRolloffHz,
		f.SpectralBandwidthHz,
		f.SpectralFlatness,
		f.SpectralFluxMean,
		f.StereoCorrelation,
		f.StereoWidth,
		f.MidSideRatioDB,
	}
	chroma := make([]float64, 12)
	copy(chroma, f.Chroma)
	return append(vec, chroma...)
}

// standardize z-scores every dimension across the pool in place. Dimensions
// with zero variance are flattened to zero so they carry no weight.
func standardize(vectors [][]float64) {
	if len(vectors) == 0 {
		return
	}
	dims := len(vectors[0])
	column := make([]float64, len(vectors))
	for d := 0; d < dims; d++ {
		for i, vec := range vectors {
			column[i] = vec[d]
		}
		mean, std := stat.MeanStdDev(column, nil)
		for i := range vectors {
			if std > 0 && !math.IsNaN(std) {
				vectors[i][d] = (vectors[i][d] - mean) / std
			} else {
				vectors[i][d] = 0
			}
		}
	}
}

func cosine(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
