package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"soundcheck/internal/library"
)

func TestCLISetShowAndAddTrack(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"set", "create", "techno", "--genre", "techno"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("set create: %v", err)
	}

	track := &library.Track{
		Fingerprint:     "fp-berlin-001",
		Title:           "Berlin Loop",
		Artist:          "Test Artist",
		Kind:            library.KindReference,
		DurationSeconds: 184,
	}
	if err := env.lib.SaveTrack(context.Background(), track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}
	stored, err := env.lib.TrackByFingerprint(context.Background(), "fp-berlin-001")
	if err != nil || stored == nil {
		t.Fatalf("TrackByFingerprint: %v %v", stored, err)
	}

	out, _, err := runCLI(t, []string{"set", "add-track", "techno", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("set add-track: %v", err)
	}
	requireContains(t, out, "Added track #1 (Berlin Loop)")

	out, _, err = runCLI(t, []string{"set", "show", "techno"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("set show: %v", err)
	}
	requireContains(t, out, `Reference set "techno"`)
	requireContains(t, out, "Berlin Loop")
	requireContains(t, out, "Tracks:      1")

	_, _, err = runCLI(t, []string{"set", "show", "missing"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing-set error, got %v", err)
	}
}

func TestCLITrackRemove(t *testing.T) {
	env := setupCLITestEnv(t)

	track := &library.Track{
		Fingerprint: "fp-remove-001",
		Title:       "Scratch Take",
		Kind:        library.KindCandidate,
	}
	if err := env.lib.SaveTrack(context.Background(), track); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}

	out, _, err := runCLI(t, []string{"track", "remove", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("track remove: %v", err)
	}
	requireContains(t, out, "Removed track #1 (Scratch Take)")

	_, _, err = runCLI(t, []string{"track", "remove", "1"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCLIProfileExportWithoutProfile(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"set", "create", "ambient"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("set create: %v", err)
	}

	_, _, err := runCLI(t, []string{"profile", "export", "ambient"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no profile built") {
		t.Fatalf("expected no-profile error, got %v", err)
	}
}

func TestCLIReportCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"report", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("report list: %v", err)
	}
	requireContains(t, out, "No reports generated yet")

	name := "20260101-120000-test-mix"
	path := filepath.Join(env.cfg.Paths.ReportsDir, name+".md")
	if err := os.WriteFile(path, []byte("# Gap Report\n\ncontent\n"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	out, _, err = runCLI(t, []string{"report", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("report list: %v", err)
	}
	requireContains(t, out, name)

	out, _, err = runCLI(t, []string{"report", "show", name}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("report show: %v", err)
	}
	requireContains(t, out, "# Gap Report")

	_, _, err = runCLI(t, []string{"report", "show", "nope"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCLIDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"deps"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "Summary")
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "yt-dlp")
}

func TestCLIConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "staging_dir")
	requireContains(t, out, env.cfg.Paths.LibraryDir)
}
