package pcm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"soundcheck/internal/services"
)

// missingFFmpeg returns a binary path that is guaranteed not to exist so
// LookPath fails regardless of the host environment.
func missingFFmpeg(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ffmpeg")
}

func TestDecodeRejectsEmptyPath(t *testing.T) {
	if _, err := Decode(context.Background(), "ffmpeg", "  ", DecodeOptions{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeReportsMissingFFmpeg(t *testing.T) {
	src := filepath.Join(t.TempDir(), "take.wav")
	if err := os.WriteFile(src, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := Decode(context.Background(), missingFFmpeg(t), src, DecodeOptions{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestDecodeFallsBackToNativeMP3(t *testing.T) {
	// Garbage bytes under an .mp3 extension: the native decoder must be the
	// one to reject them, which surfaces as a validation error rather than
	// the external-tool error a missing ffmpeg would produce.
	src := filepath.Join(t.TempDir(), "take.mp3")
	if err := os.WriteFile(src, []byte("not an mp3 stream"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := Decode(context.Background(), missingFFmpeg(t), src, DecodeOptions{})
	if err == nil {
		t.Fatal("expected an error for a corrupt mp3")
	}
	if errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected the native mp3 path, got external tool error: %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error from the mp3 decoder, got %v", err)
	}
}

func TestDecodeMP3MissingFile(t *testing.T) {
	_, err := DecodeMP3(filepath.Join(t.TempDir(), "gone.mp3"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
