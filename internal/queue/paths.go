package queue

import (
	"fmt"
	"path/filepath"
	"strings"

	"soundcheck/internal/textutil"
)

// StagingRoot returns the per-item staging directory rooted at base. The
// source fingerprint names the directory when one is known, so retries of
// the same source land in the same place; otherwise queue-{ID} keeps items
// from colliding.
func (i Item) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}

	segment := strings.TrimSpace(i.Fingerprint)
	if segment == "" {
		segment = fmt.Sprintf("queue-%d", i.ID)
	} else {
		// Strip the source-kind prefix; it is noise in a path.
		segment = strings.TrimPrefix(segment, "file:")
		segment = strings.TrimPrefix(segment, "yt:")
	}
	return filepath.Join(base, sanitizeSegment(segment))
}

func sanitizeSegment(value string) string {
	value = textutil.SanitizeFileName(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, " ", "-")
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	if trimmed := strings.Trim(value, "-_"); trimmed != "" {
		return trimmed
	}
	return "queue"
}
