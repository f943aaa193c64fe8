package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const featureColumns = `track_id, schema_version, bpm, bpm_confidence, key_index, key_mode,
	key_name, key_confidence, camelot, integrated_lufs, loudness_range, true_peak_db,
	sample_peak_db, rms_db, crest_db, dc_offset, zero_cross_rate, spectral_centroid_hz,
	spectral_rolloff_hz, spectral_bandwidth_hz, spectral_flatness, spectral_flux_mean,
	stereo_correlation, stereo_width, mid_side_ratio_db, chroma_json, band_energies_json,
	signature_json, created_at, updated_at`

// SaveFeatures upserts the feature row for features.TrackID. The schema
// version is stamped automatically so callers never persist stale layouts.
func (s *Store) SaveFeatures(ctx context.Context, features *Features) error {
	if features == nil {
		return errors.New("features are nil")
	}
	if features.TrackID == 0 {
		return errors.New("features track ID is required")
	}
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	if features.CreatedAt.IsZero() {
		features.CreatedAt = now
	}
	features.UpdatedAt = now
	features.SchemaVersion = FeatureSchemaVersion

	chromaJSON, err := encodeVector(features.Chroma)
	if err != nil {
		return fmt.Errorf("encode chroma: %w", err)
	}
	bandsJSON, err := encodeBands(features.BandEnergies)
	if err != nil {
		return fmt.Errorf("encode band energies: %w", err)
	}
	sigJSON, err := encodeSignature(features.Signature)
	if err != nil {
		return fmt.Errorf("encode signature: %w", err)
	}

	query := `INSERT INTO features (
		track_id, schema_version, bpm, bpm_confidence, key_index, key_mode, key_name,
		key_confidence, camelot, integrated_lufs, loudness_range, true_peak_db,
		sample_peak_db, rms_db, crest_db, dc_offset, zero_cross_rate, spectral_centroid_hz,
		spectral_rolloff_hz, spectral_bandwidth_hz, spectral_flatness, spectral_flux_mean,
		stereo_correlation, stereo_width, mid_side_ratio_db, chroma_json, band_energies_json,
		signature_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(track_id) DO UPDATE SET
		schema_version = excluded.schema_version,
		bpm = excluded.bpm,
		bpm_confidence = excluded.bpm_confidence,
		key_index = excluded.key_index,
		key_mode = excluded.key_mode,
		key_name = excluded.key_name,
		key_confidence = excluded.key_confidence,
		camelot = excluded.camelot,
		integrated_lufs = excluded.integrated_lufs,
		loudness_range = excluded.loudness_range,
		true_peak_db = excluded.true_peak_db,
		sample_peak_db = excluded.sample_peak_db,
		rms_db = excluded.rms_db,
		crest_db = excluded.crest_db,
		dc_offset = excluded.dc_offset,
		zero_cross_rate = excluded.zero_cross_rate,
		spectral_centroid_hz = excluded.spectral_centroid_hz,
		spectral_rolloff_hz = excluded.spectral_rolloff_hz,
		spectral_bandwidth_hz = excluded.spectral_bandwidth_hz,
		spectral_flatness = excluded.spectral_flatness,
		spectral_flux_mean = excluded.spectral_flux_mean,
		stereo_correlation = excluded.stereo_correlation,
		stereo_width = excluded.stereo_width,
		mid_side_ratio_db = excluded.mid_side_ratio_db,
		chroma_json = excluded.chroma_json,
		band_energies_json = excluded.band_energies_json,
		signature_json = excluded.signature_json,
		updated_at = excluded.updated_at`

	if _, err := s.execWithRetry(ctx, query,
		features.TrackID,
		features.SchemaVersion,
		features.BPM,
		features.BPMConfidence,
		features.KeyIndex,
		features.KeyMode,
		features.KeyName,
		features.KeyConfidence,
		features.Camelot,
		features.IntegratedLUFS,
		features.LoudnessRange,
		features.TruePeakDB,
		features.SamplePeakDB,
		features.RMSDB,
		features.CrestDB,
		features.DCOffset,
		features.ZeroCrossRate,
		features.SpectralCentroidHz,
		features.SpectralRolloffHz,
		features.SpectralBandwidthHz,
		features.SpectralFlatness,
		features.SpectralFluxMean,
		features.StereoCorrelation,
		features.StereoWidth,
		features.MidSideRatioDB,
		chromaJSON,
		bandsJSON,
		sigJSON,
		features.CreatedAt.Format(time.RFC3339Nano),
		features.UpdatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save features for track %d: %w", features.TrackID, err)
	}
	return nil
}

// FeaturesByTrack returns the stored features for a track, or nil when absent
// or written under an older feature schema version.
func (s *Store) FeaturesByTrack(ctx context.Context, trackID int64) (*Features, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM features WHERE track_id = ? AND schema_version = ?", featureColumns),
		trackID, FeatureSchemaVersion)
	features, err := scanFeatures(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query features for track %d: %w", trackID, err)
	}
	return features, nil
}

// Signatures returns the stored fingerprint signature for every track that
// has one, keyed by track ID. Used by ingest dedup to spot near-duplicates.
func (s *Store) Signatures(ctx context.Context) (map[int64][]uint32, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT track_id, signature_json FROM features WHERE signature_json IS NOT NULL AND signature_json != ''")
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	signatures := make(map[int64][]uint32)
	for rows.Next() {
		var trackID int64
		var raw string
		if err := rows.Scan(&trackID, &raw); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		var sig []uint32
		if err := json.Unmarshal([]byte(raw), &sig); err != nil {
			continue
		}
		if len(sig) > 0 {
			signatures[trackID] = sig
		}
	}
	return signatures, rows.Err()
}

// FeaturesForSet returns current-schema features for every member of the set,
// ordered by track insertion time. Tracks without features are skipped.
func (s *Store) FeaturesForSet(ctx context.Context, setID int64) ([]*Features, error) {
	ctx = ensureContext(ctx)
	query := fmt.Sprintf(`SELECT %s FROM features
		WHERE schema_version = ?
		AND track_id IN (SELECT track_id FROM set_members WHERE set_id = ?)
		ORDER BY track_id ASC`, featureColumns)
	rows, err := s.db.QueryContext(ctx, query, FeatureSchemaVersion, setID)
	if err != nil {
		return nil, fmt.Errorf("query features for set %d: %w", setID, err)
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
