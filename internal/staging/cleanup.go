package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"soundcheck/internal/logging"
)

// CleanStaleResult reports what a cleanup pass removed and what it could not.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staging directories whose mtime is older than maxAge.
// Failed downloads and interrupted analyses leave directories behind; this
// is the periodic sweep that reclaims them.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult

	entries, ok := readStagingDir(stagingDir, &result)
	if !ok {
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if removeStagingDir(dirPath, "stale", logger, &result) {
			if logger != nil {
				logger.Info("removed stale staging directory",
					logging.String("path", dirPath),
					logging.Duration("age", time.Since(info.ModTime())),
					logging.String(logging.FieldEventType, "staging_cleanup"),
				)
			}
		}
	}
	return result
}

// CleanOrphaned removes item-{ID} staging directories whose queue item is no
// longer active. Directories outside that naming scheme are left for the
// age-based sweep.
func CleanOrphaned(ctx context.Context, stagingDir string, activeItems map[int64]struct{}, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult

	entries, ok := readStagingDir(stagingDir, &result)
	if !ok {
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, ok := parseItemDirName(entry.Name())
		if !ok {
			continue
		}
		if _, active := activeItems[id]; active {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		if removeStagingDir(dirPath, "orphaned", logger, &result) {
			if logger != nil {
				logger.Info("removed orphaned staging directory",
					logging.String("path", dirPath),
					logging.String(logging.FieldEventType, "staging_cleanup"),
				)
			}
		}
	}
	return result
}

func readStagingDir(stagingDir string, result *CleanStaleResult) ([]os.DirEntry, bool) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, false
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return nil, false
	}
	return entries, true
}

func removeStagingDir(dirPath, kind string, logger *slog.Logger, result *CleanStaleResult) bool {
	if err := os.RemoveAll(dirPath); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
		if logger != nil {
			logger.Warn("failed to remove "+kind+" staging directory",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
		return false
	}
	result.Removed = append(result.Removed, dirPath)
	return true
}

func parseItemDirName(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(name), "item-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// DirInfo describes one staging directory for the staging list command.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories enumerates staging directories with their sizes. A missing
// staging root is treated as empty.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(stagingDir, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return dirs, nil
}

// dirSize sums file sizes under path, best effort.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
