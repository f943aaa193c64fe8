package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "take1.wav")
	dst := filepath.Join(dir, "take1-copy.wav")

	payload := []byte("riff header and some samples")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("copied content = %q, want %q", got, payload)
	}
}

func TestCopyFileModeSetsPermissions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tool.sh")
	dst := filepath.Join(dir, "tool-installed.sh")

	if err := os.WriteFile(src, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileMode(src, dst, 0o755); err != nil {
		t.Fatalf("CopyFileMode: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	// umask may clear group/other bits but never the owner exec bit.
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("owner exec bit missing, perms %o", info.Mode().Perm())
	}
}

func TestCopyFileVerifiedMatchesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mixdown.flac")
	dst := filepath.Join(dir, "library.flac")

	payload := bytes.Repeat([]byte("audio-frame-"), 512)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("verified copy diverges from source (%d bytes vs %d)", len(got), len(payload))
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFileVerified(filepath.Join(dir, "gone.wav"), filepath.Join(dir, "out.wav")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "gone.wav"), filepath.Join(dir, "out.wav")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
