package testsupport

import (
	"context"
	"testing"

	"soundcheck/internal/config"
	"soundcheck/internal/library"
	"soundcheck/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTrack enqueues a URL-sourced item for tests using the provided store.
func NewTrack(t testing.TB, store *queue.Store, kind queue.Kind, url, fingerprint string) *queue.Item {
	t.Helper()

	item, _, err := store.NewURL(context.Background(), kind, url, fingerprint, "")
	if err != nil {
		t.Fatalf("store.NewURL: %v", err)
	}
	return item
}
