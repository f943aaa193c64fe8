package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"soundcheck/internal/config"
	"soundcheck/internal/services"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantURL string
		wantID  string
	}{
		{
			name:    "standard watch",
			input:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123",
			wantURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantID:  "dQw4w9WgXcQ",
		},
		{
			name:    "short link",
			input:   "https://youtu.be/dQw4w9WgXcQ?t=42",
			wantURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantID:  "dQw4w9WgXcQ",
		},
		{
			name:    "shorts",
			input:   "https://www.youtube.com/shorts/abc123XYZ_-",
			wantURL: "https://www.youtube.com/watch?v=abc123XYZ_-",
			wantID:  "abc123XYZ_-",
		},
		{
			name:    "music host",
			input:   "https://music.youtube.com/watch?v=zzzzzzzzzzz",
			wantURL: "https://www.youtube.com/watch?v=zzzzzzzzzzz",
			wantID:  "zzzzzzzzzzz",
		},
		{
			name:    "mobile live",
			input:   "https://m.youtube.com/live/streamID99/",
			wantURL: "https://www.youtube.com/watch?v=streamID99",
			wantID:  "streamID99",
		},
		{
			name:    "unknown host passes through",
			input:   "https://example.com/audio/track.mp3",
			wantURL: "https://example.com/audio/track.mp3",
			wantID:  "",
		},
		{
			name:    "whitespace trimmed",
			input:   "  https://youtu.be/dQw4w9WgXcQ  ",
			wantURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantID:  "dQw4w9WgXcQ",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotURL, gotID := NormalizeURL(tc.input)
			if gotURL != tc.wantURL {
				t.Fatalf("canonical URL = %q, want %q", gotURL, tc.wantURL)
			}
			if gotID != tc.wantID {
				t.Fatalf("video ID = %q, want %q", gotID, tc.wantID)
			}
		})
	}
}

type stubExecutor struct {
	lines   []string
	err     error
	gotArgs []string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string, onLine func(string)) error {
	s.gotArgs = args
	for _, line := range s.lines {
		onLine(line)
	}
	return s.err
}

func testClient(t *testing.T, exec Executor) *Client {
	t.Helper()
	cfg := config.Default()
	return NewClient(&cfg, WithExecutor(exec))
}

func TestClientInfo(t *testing.T) {
	stub := &stubExecutor{lines: []string{
		`{"id":"dQw4w9WgXcQ","title":"Night Drive","uploader":"Testwave","duration":212.4,"upload_date":"20240115","webpage_url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`,
	}}
	client := testClient(t, stub)

	meta, err := client.Info(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if meta.ID != "dQw4w9WgXcQ" || meta.Title != "Night Drive" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.DurationSeconds != 212.4 {
		t.Fatalf("duration = %f, want 212.4", meta.DurationSeconds)
	}
	if meta.BestArtist() != "Testwave" {
		t.Fatalf("best artist = %q", meta.BestArtist())
	}
}

func TestClientInfoFailure(t *testing.T) {
	stub := &stubExecutor{
		lines: []string{"ERROR: [youtube] video unavailable"},
		err:   errors.New("exit status 1"),
	}
	client := testClient(t, stub)

	_, err := client.Info(context.Background(), "https://www.youtube.com/watch?v=gone")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestClientDownload(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "dQw4w9WgXcQ.m4a")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	infoJSON := `{"id":"dQw4w9WgXcQ","title":"Night Drive","artist":"Testwave","duration":212.4}`
	if err := os.WriteFile(filepath.Join(dir, "dQw4w9WgXcQ.info.json"), []byte(infoJSON), 0o644); err != nil {
		t.Fatalf("write info json: %v", err)
	}

	stub := &stubExecutor{lines: []string{
		"[download]   1.0% of 3.52MiB at 1.21MiB/s ETA 00:03",
		"[download]  42.1% of 3.52MiB at 1.21MiB/s ETA 00:02",
		"[download] 100% of 3.52MiB in 00:03",
		audioPath,
	}}
	client := testClient(t, stub)

	var updates []float64
	result, err := client.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir, func(u ProgressUpdate) {
		updates = append(updates, u.Percent)
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.AudioPath != audioPath {
		t.Fatalf("audio path = %q, want %q", result.AudioPath, audioPath)
	}
	if result.Metadata.Title != "Night Drive" || result.Metadata.BestArtist() != "Testwave" {
		t.Fatalf("sidecar metadata not loaded: %+v", result.Metadata)
	}
	if len(updates) < 3 {
		t.Fatalf("expected throttled progress updates, got %v", updates)
	}
	if updates[len(updates)-1] != 100 {
		t.Fatalf("expected terminal 100%% update, got %v", updates)
	}
}

func TestClientDownloadToleratesMaxDownloadsExit(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "abc.m4a")
	if err := os.WriteFile(audioPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	// yt-dlp exits non-zero after --max-downloads stops it, with the
	// file already complete.
	stub := &stubExecutor{
		lines: []string{audioPath},
		err:   errors.New("exit status 101"),
	}
	client := testClient(t, stub)

	result, err := client.Download(context.Background(), "https://www.youtube.com/watch?v=abc", dir, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.AudioPath != audioPath {
		t.Fatalf("audio path = %q", result.AudioPath)
	}
}

func TestClientDownloadFailureCleansPartials(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "abc.m4a.part")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	stub := &stubExecutor{
		lines: []string{"ERROR: network unreachable"},
		err:   errors.New("exit status 1"),
	}
	client := testClient(t, stub)

	_, err := client.Download(context.Background(), "https://www.youtube.com/watch?v=abc", dir, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, statErr := os.Stat(partial); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial file removed, stat err = %v", statErr)
	}
}

func TestParseDownloadPercent(t *testing.T) {
	cases := []struct {
		line string
		pct  float64
		ok   bool
	}{
		{"[download]  42.1% of 3.52MiB at 1.21MiB/s ETA 00:02", 42.1, true},
		{"[download] 100% of 3.52MiB in 00:03", 100, true},
		{"[download] Destination: /tmp/abc.m4a", 0, false},
		{"[ExtractAudio] Destination: /tmp/abc.m4a", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		pct, ok := parseDownloadPercent(tc.line)
		if ok != tc.ok || pct != tc.pct {
			t.Fatalf("parse %q = (%f, %v), want (%f, %v)", tc.line, pct, ok, tc.pct, tc.ok)
		}
	}
}

func TestImportFile(t *testing.T) {
	srcDir := t.TempDir()
	destDir := filepath.Join(t.TempDir(), "staging")
	src := filepath.Join(srcDir, "demo track.flac")
	if err := os.WriteFile(src, []byte("flacdata"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	staged, err := ImportFile(context.Background(), src, destDir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if filepath.Dir(staged) != destDir {
		t.Fatalf("staged outside destination: %s", staged)
	}
	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("read staged: %v", err)
	}
	if string(data) != "flacdata" {
		t.Fatalf("staged content mismatch: %q", data)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain in place: %v", err)
	}
}

func TestImportFileRejectsUnsupported(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name   string
		setup  func(t *testing.T) string
		marker error
	}{
		{
			name: "unsupported extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "notes.txt")
				if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
					t.Fatalf("write: %v", err)
				}
				return path
			},
			marker: services.ErrValidation,
		},
		{
			name: "empty file",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "empty.mp3")
				if err := os.WriteFile(path, nil, 0o644); err != nil {
					t.Fatalf("write: %v", err)
				}
				return path
			},
			marker: services.ErrValidation,
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(dir, "missing.mp3")
			},
			marker: services.ErrNotFound,
		},
		{
			name: "directory",
			setup: func(t *testing.T) string {
				path := filepath.Join(dir, "album.mp3")
				if err := os.MkdirAll(path, 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
				return path
			},
			marker: services.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := tc.setup(t)
			if _, err := ImportFile(context.Background(), src, t.TempDir()); !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
		})
	}
}

func TestSupportedExtension(t *testing.T) {
	for _, ext := range []string{".mp3", ".m4a", ".flac", ".wav", ".ogg", ".opus", ".aiff"} {
		if !SupportedExtension(fmt.Sprintf("track%s", ext)) {
			t.Fatalf("expected %s supported", ext)
		}
	}
	for _, name := range []string{"track.txt", "track.mp4", "track"} {
		if SupportedExtension(name) {
			t.Fatalf("expected %s unsupported", name)
		}
	}
}
