package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"soundcheck/internal/config"
	"soundcheck/internal/ingest"
)

// CheckNtfyFromConfig evaluates ntfy status from config and connectivity.
func CheckNtfyFromConfig(cfg *config.Config) Result {
	const name = "ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckNtfy(context.Background(), cfg.Notifications.NtfyTopic)
}

// WatchProbe reports the current watch-folder snapshot.
type WatchProbe struct {
	Enabled bool
	Dir     string
	Pending int
}

// ProbeWatchDir counts recognised audio files sitting in the watch folder.
func ProbeWatchDir(cfg *config.Config) WatchProbe {
	if cfg == nil || !cfg.Watch.Enabled {
		return WatchProbe{}
	}
	dir := strings.TrimSpace(cfg.Watch.Dir)
	probe := WatchProbe{Enabled: true, Dir: dir}
	if dir == "" {
		return probe
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return probe
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ingest.SupportedExtension(entry.Name()) {
			probe.Pending++
		}
	}
	return probe
}

// WatchDetail renders a display-friendly summary for status UIs.
func (p WatchProbe) WatchDetail() string {
	if !p.Enabled {
		return "Watch folder disabled"
	}
	if p.Pending == 0 {
		return fmt.Sprintf("Watching %s", p.Dir)
	}
	return fmt.Sprintf("Watching %s (%d files pending)", p.Dir, p.Pending)
}
