package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type activeItemStub struct {
	ids map[int64]struct{}
	err error
}

func (s activeItemStub) ActiveItemIDs(_ context.Context) (map[int64]struct{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ids, nil
}

func TestCleanStagingDirectoriesNotConfigured(t *testing.T) {
	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if result.Configured {
		t.Fatal("Configured = true, want false")
	}
}

func TestCleanStagingDirectoriesCleanAll(t *testing.T) {
	dir := t.TempDir()
	oldDir := filepath.Join(dir, "old")
	if err := os.MkdirAll(oldDir, 0o755); err != nil {
		t.Fatalf("mkdir old dir: %v", err)
	}

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingDir: dir,
		CleanAll:   true,
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if !result.Configured {
		t.Fatal("Configured = false, want true")
	}
	if result.Scope != "staging" {
		t.Fatalf("Scope = %q, want staging", result.Scope)
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("removed = %d, want 1", len(result.Cleanup.Removed))
	}
}

func TestCleanStagingDirectoriesOrphaned(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "item-7")
	orphan := filepath.Join(dir, "item-42")
	for _, d := range []string{active, orphan} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingDir:  dir,
		ActiveItems: activeItemStub{ids: map[int64]struct{}{7: {}}},
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if result.Scope != "orphaned staging" {
		t.Fatalf("Scope = %q, want orphaned staging", result.Scope)
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("removed = %d, want 1", len(result.Cleanup.Removed))
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatalf("active dir should remain: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan dir should be removed, stat err=%v", err)
	}
}

func TestCleanStagingDirectoriesRequiresProvider(t *testing.T) {
	if _, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingDir: t.TempDir()}); err == nil {
		t.Fatal("expected error without active item provider")
	}
}
