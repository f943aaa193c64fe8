package api

import (
	"encoding/json"
	"regexp"
)

// MetadataField extracts a string field from metadata JSON.
func MetadataField(metadataJSON, field, fallback string) string {
	if metadataJSON == "" {
		return fallback
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return fallback
	}
	value, ok := metadata[field].(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}

var yearPattern = regexp.MustCompile(`^\d{4}`)

// MetadataYear extracts the upload year from the upload_date metadata field
// (yt-dlp uses YYYYMMDD).
func MetadataYear(metadataJSON string) string {
	uploadDate := MetadataField(metadataJSON, "upload_date", "")
	if uploadDate == "" {
		return "Unknown"
	}
	if match := yearPattern.FindString(uploadDate); match != "" {
		return match
	}
	return "Unknown"
}

// MetadataTitle extracts title from metadata JSON.
func MetadataTitle(metadataJSON string) string {
	return MetadataField(metadataJSON, "title", "Unknown")
}

// MetadataArtist extracts artist from metadata JSON, falling back to uploader.
func MetadataArtist(metadataJSON string) string {
	if artist := MetadataField(metadataJSON, "artist", ""); artist != "" {
		return artist
	}
	return MetadataField(metadataJSON, "uploader", "")
}

// MetadataFilename extracts filename from metadata JSON.
func MetadataFilename(metadataJSON string) string {
	return MetadataField(metadataJSON, "filename", "")
}

// metadataFields holds all commonly extracted metadata fields from a single JSON parse.
type metadataFields struct {
	title    string
	artist   string
	year     string
	filename string
}

// parseMetadataFields extracts all common metadata fields with a single JSON parse.
func parseMetadataFields(metadataJSON string) metadataFields {
	if metadataJSON == "" {
		return metadataFields{title: "Unknown", year: "Unknown"}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &raw); err != nil {
		return metadataFields{title: "Unknown", year: "Unknown"}
	}

	str := func(key, fallback string) string {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
		return fallback
	}

	year := "Unknown"
	if rd := str("upload_date", ""); rd != "" {
		if match := yearPattern.FindString(rd); match != "" {
			year = match
		}
	}

	artist := str("artist", "")
	if artist == "" {
		artist = str("uploader", "")
	}

	return metadataFields{
		title:    str("title", "Unknown"),
		artist:   artist,
		year:     year,
		filename: str("filename", ""),
	}
}
