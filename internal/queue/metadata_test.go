package queue

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestMetadataGetLibraryPathSplitsReferenceFromCandidates(t *testing.T) {
	payload := map[string]any{"title": "Warehouse Anthem", "reference": true}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal reference metadata: %v", err)
	}
	meta := MetadataFromJSON(string(data), "fallback")
	got := meta.GetLibraryPath("/library", "references", "candidates")
	want := filepath.Join("/library", "references")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	candidate := NewBasicMetadata("Demo Take 3", "", false)
	got = candidate.GetLibraryPath("/library", "references", "candidates")
	want = filepath.Join("/library", "candidates")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMetadataGetLibraryPathPrefersExplicitPath(t *testing.T) {
	meta := Metadata{TitleValue: "Anything", LibraryPath: "/mnt/external/refs"}
	if got := meta.GetLibraryPath("/library", "references", "candidates"); got != "/mnt/external/refs" {
		t.Fatalf("expected explicit library path, got %q", got)
	}
}

func TestMetadataGetFilenameSanitizes(t *testing.T) {
	meta := NewBasicMetadata("Mix: Club / Edit?", "", false)
	want := "Mix- Club - Edit"
	if meta.GetFilename() != want {
		t.Fatalf("expected sanitized filename %q, got %q", want, meta.GetFilename())
	}
}

func TestMetadataGetFilenameFallsBackToTitle(t *testing.T) {
	meta := Metadata{TitleValue: "Untagged Bounce"}
	if got := meta.GetFilename(); got != "Untagged Bounce" {
		t.Fatalf("expected title fallback, got %q", got)
	}
}

func TestNewBasicMetadataDefaultsEmptyTitle(t *testing.T) {
	meta := NewBasicMetadata("   ", "Someone", true)
	if meta.Title() != "Manual Import" {
		t.Fatalf("expected default title, got %q", meta.Title())
	}
	if meta.Artist() != "Someone" {
		t.Fatalf("expected artist preserved, got %q", meta.Artist())
	}
	if !meta.IsReference() {
		t.Fatal("expected reference flag preserved")
	}
}

func TestMetadataFromJSONKeepsFallbackOnBadPayload(t *testing.T) {
	meta := MetadataFromJSON("{not json", "Session Bounce")
	if meta.Title() != "Session Bounce" {
		t.Fatalf("expected fallback title, got %q", meta.Title())
	}
	if meta.GetFilename() != "Session Bounce" {
		t.Fatalf("expected fallback filename, got %q", meta.GetFilename())
	}
}

func TestMetadataRoundTripPreservesTrackFields(t *testing.T) {
	original := Metadata{
		TitleValue:      "Night Drive",
		ArtistValue:     "Karo",
		Uploader:        "karoofficial",
		DurationSeconds: 312.4,
		UploadDate:      "20240817",
		WebpageURL:      "https://youtu.be/abc123def45",
		FilenameValue:   "Night Drive",
		Reference:       true,
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	restored := MetadataFromJSON(string(data), "fallback")
	if restored.Title() != "Night Drive" || restored.Artist() != "Karo" {
		t.Fatalf("unexpected identity after round trip: %q by %q", restored.Title(), restored.Artist())
	}
	if restored.DurationSeconds != 312.4 {
		t.Fatalf("expected duration preserved, got %f", restored.DurationSeconds)
	}
	if !restored.IsReference() {
		t.Fatal("expected reference flag preserved")
	}
}
