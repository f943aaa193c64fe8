package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(scanner rowScanner) (*Track, error) {
	var (
		track     Track
		kind      string
		createdAt string
		updatedAt string
	)
	err := scanner.Scan(
		&track.ID,
		&track.Fingerprint,
		&track.Title,
		&track.Artist,
		&kind,
		&track.SourceURL,
		&track.SourcePath,
		&track.LibraryPath,
		&track.DurationSeconds,
		&track.SampleRate,
		&track.Channels,
		&track.Format,
		&track.Bitrate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	track.Kind = Kind(kind)
	if parsed, err := parseTimeString(createdAt); err == nil {
		track.CreatedAt = parsed
	}
	if parsed, err := parseTimeString(updatedAt); err == nil {
		track.UpdatedAt = parsed
	}
	return &track, nil
}

func scanFeatures(scanner rowScanner) (*Features, error) {
	var (
		f            Features
		chromaJSON   string
		bandsJSON    string
		sigJSON      string
		createdAtRaw string
		updatedAtRaw string
	)
	err := scanner.Scan(
		&f.TrackID,
		&f.SchemaVersion,
		&f.BPM,
		&f.BPMConfidence,
		&f.KeyIndex,
		&f.KeyMode,
		&f.KeyName,
		&f.KeyConfidence,
		&f.Camelot,
		&f.IntegratedLUFS,
		&f.LoudnessRange,
		&f.TruePeakDB,
		&f.SamplePeakDB,
		&f.RMSDB,
		&f.CrestDB,
		&f.DCOffset,
		&f.ZeroCrossRate,
		&f.SpectralCentroidHz,
		&f.SpectralRolloffHz,
		&f.SpectralBandwidthHz,
		&f.SpectralFlatness,
		&f.SpectralFluxMean,
		&f.StereoCorrelation,
		&f.StereoWidth,
		&f.MidSideRatioDB,
		&chromaJSON,
		&bandsJSON,
		&sigJSON,
		&createdAtRaw,
		&updatedAtRaw,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(chromaJSON), &f.Chroma); err != nil {
		return nil, fmt.Errorf("decode chroma: %w", err)
	}
	if err := json.Unmarshal([]byte(bandsJSON), &f.BandEnergies); err != nil {
		return nil, fmt.Errorf("decode band energies: %w", err)
	}
	if err := json.Unmarshal([]byte(sigJSON), &f.Signature); err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if parsed, err := parseTimeString(createdAtRaw); err == nil {
		f.CreatedAt = parsed
	}
	if parsed, err := parseTimeString(updatedAtRaw); err == nil {
		f.UpdatedAt = parsed
	}
	return &f, nil
}

func encodeVector(v []float64) (string, error) {
	if v == nil {
		v = []float64{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeBands(bands map[string]float64) (string, error) {
	if bands == nil {
		bands = map[string]float64{}
	}
	data, err := json.Marshal(bands)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeSignature(sig []uint32) (string, error) {
	if sig == nil {
		sig = []uint32{}
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
