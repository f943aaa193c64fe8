package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// FFmpegVersion reports the version string of the given ffmpeg-family binary
// (ffmpeg or ffprobe), e.g. "6.1.1".
func FFmpegVersion(binary string) (string, error) {
	line, err := probeVersion(binary, "-version")
	if err != nil {
		return "", err
	}
	// "ffmpeg version 6.1.1 Copyright ..." -> "6.1.1"
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return line, nil
}

// YtDlpVersion reports the yt-dlp release, e.g. "2025.01.15".
func YtDlpVersion(binary string) (string, error) {
	return probeVersion(binary, "--version")
}

func probeVersion(binary string, args ...string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("command not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		return "", fmt.Errorf("probe %s version: %w", binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("probe %s version: empty output", binary)
	}
	return line, nil
}
