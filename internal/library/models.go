package library

import "time"

// Kind mirrors the queue item kind for persisted tracks.
type Kind string

const (
	KindReference Kind = "reference"
	KindCandidate Kind = "candidate"
)

// FeatureSchemaVersion identifies the layout and meaning of the persisted
// feature set. Bump it when extractors change; stored rows with an older
// version are treated as missing so affected tracks get re-analyzed.
const FeatureSchemaVersion = 1

// Track is one audio source known to the library.
type Track struct {
	ID              int64
	Fingerprint     string
	Title           string
	Artist          string
	Kind            Kind
	SourceURL       string
	SourcePath      string
	LibraryPath     string
	DurationSeconds float64
	SampleRate      int
	Channels        int
	Format          string
	Bitrate         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayTitle returns "Artist - Title" when both are known.
func (t *Track) DisplayTitle() string {
	if t.Artist != "" && t.Title != "" {
		return t.Artist + " - " + t.Title
	}
	if t.Title != "" {
		return t.Title
	}
	return t.Fingerprint
}

// Features holds the scalar metrics and encoded vectors produced by analysis
// for a single track.
type Features struct {
	TrackID       int64
	SchemaVersion int

	BPM           float64
	BPMConfidence float64

	KeyIndex      int
	KeyMode       string
	KeyName       string
	KeyConfidence float64
	Camelot       string

	IntegratedLUFS float64
	LoudnessRange  float64
	TruePeakDB     float64
	SamplePeakDB   float64
	RMSDB          float64
	CrestDB        float64
	DCOffset       float64
	ZeroCrossRate  float64

	SpectralCentroidHz  float64
	SpectralRolloffHz   float64
	SpectralBandwidthHz float64
	SpectralFlatness    float64
	SpectralFluxMean    float64

	StereoCorrelation float64
	StereoWidth       float64
	MidSideRatioDB    float64

	Chroma       []float64
	BandEnergies map[string]float64
	Signature    []uint32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReferenceSet groups reference tracks that define one sonic target.
type ReferenceSet struct {
	ID          int64
	Name        string
	Description string
	Genre       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileRecord is a stored profile snapshot for a reference set. Payload is
// an opaque JSON document; the library stores and returns it without
// interpreting its contents.
type ProfileRecord struct {
	ID         int64
	SetID      int64
	BuiltAt    time.Time
	TrackCount int
	Payload    string
}

// SimilarTrack pairs a library track with its similarity to a query track.
type SimilarTrack struct {
	Track      Track
	Similarity float64
}
