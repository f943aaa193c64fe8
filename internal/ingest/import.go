package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"soundcheck/internal/fileutil"
	"soundcheck/internal/services"
)

var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".aac":  {},
	".flac": {},
	".wav":  {},
	".ogg":  {},
	".opus": {},
	".aiff": {},
	".aif":  {},
}

// SupportedExtension reports whether the file extension is an audio format
// the pipeline accepts.
func SupportedExtension(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ImportFile validates a local audio file and copies it into destDir,
// returning the staged path. The original file is left in place.
func ImportFile(ctx context.Context, sourcePath, destDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return "", services.Wrap(services.ErrValidation, "fetch", "import", "Source path is required", nil)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "fetch", "import",
			fmt.Sprintf("Cannot read %s", sourcePath), err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "fetch", "import",
			fmt.Sprintf("%s is a directory, not an audio file", sourcePath), nil)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrValidation, "fetch", "import",
			fmt.Sprintf("%s is empty", sourcePath), nil)
	}
	if !SupportedExtension(sourcePath) {
		return "", services.Wrap(services.ErrValidation, "fetch", "import",
			fmt.Sprintf("Unsupported audio format %q", filepath.Ext(sourcePath)), nil)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "fetch", "import", "Cannot create staging directory", err)
	}

	staged := filepath.Join(destDir, filepath.Base(sourcePath))
	if err := fileutil.CopyFileVerified(sourcePath, staged); err != nil {
		return "", services.Wrap(services.ErrTransient, "fetch", "import", "Copy into staging failed", err)
	}
	return staged, nil
}
