package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
)

// Metadata captures track identity carried alongside a queue item. Remote
// sources populate it from the downloader's info JSON; local imports infer
// it from the file name.
type Metadata struct {
	TitleValue      string  `json:"title"`
	ArtistValue     string  `json:"artist,omitempty"`
	Uploader        string  `json:"uploader,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	UploadDate      string  `json:"upload_date,omitempty"`
	WebpageURL      string  `json:"webpage_url,omitempty"`
	LibraryPath     string  `json:"library_path,omitempty"`
	ReportPath      string  `json:"report_path,omitempty"`
	MatchScore      float64 `json:"match_score,omitempty"`
	FilenameValue   string  `json:"filename"`
	Reference       bool    `json:"reference"`
}

// MetadataFromJSON builds metadata from stored JSON, falling back to basic inference.
func MetadataFromJSON(data, fallbackTitle string) Metadata {
	meta := Metadata{TitleValue: fallbackTitle, FilenameValue: fallbackTitle}
	_ = json.Unmarshal([]byte(data), &meta)
	return meta
}

// NewBasicMetadata constructs a metadata record using the provided title,
// artist, and reference flag. Filenames are sanitized for filesystem safety.
func NewBasicMetadata(title, artist string, reference bool) Metadata {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Manual Import"
	}
	return Metadata{
		TitleValue:    title,
		ArtistValue:   strings.TrimSpace(artist),
		FilenameValue: sanitizeFilename(title),
		Reference:     reference,
	}
}

// GetLibraryPath resolves the destination directory, splitting reference
// material from candidate tracks under the library root.
func (m Metadata) GetLibraryPath(root, referenceDir, candidateDir string) string {
	if m.LibraryPath != "" {
		return m.LibraryPath
	}
	if m.Reference {
		return filepath.Join(root, referenceDir)
	}
	return filepath.Join(root, candidateDir)
}

func (m Metadata) GetFilename() string {
	if m.FilenameValue != "" {
		return m.FilenameValue
	}
	return m.TitleValue
}

func (m Metadata) IsReference() bool { return m.Reference }

func (m Metadata) Title() string { return m.TitleValue }

func (m Metadata) Artist() string { return m.ArtistValue }

func sanitizeFilename(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "manual-import"
	}
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		"\n", " ",
		"\t", " ",
	)
	cleaned := replacer.Replace(value)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return "manual-import"
	}
	return strings.Join(fields, " ")
}

// MetadataEncoder can serialize itself for storage. This is satisfied by
// ingest.TrackInfo without requiring a direct import of that package.
type MetadataEncoder interface {
	Encode() (string, error)
}

// PersistMetadata encodes enc and writes the result to item via store.Update.
// On success the updated item fields (including any store-generated values)
// are written back through the item pointer. Returns a non-nil error when
// encoding or persistence fails; callers decide how to log the result.
func PersistMetadata(ctx context.Context, store *Store, item *Item, enc MetadataEncoder) error {
	encoded, err := enc.Encode()
	if err != nil {
		return err
	}
	copy := *item
	copy.MetadataJSON = encoded
	if store != nil {
		if err := store.Update(ctx, &copy); err != nil {
			return err
		}
	}
	*item = copy
	return nil
}
