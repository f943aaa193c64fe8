package pcm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"

	"soundcheck/internal/services"
)

// DefaultSampleRate is the analysis rate used when DecodeOptions leaves
// TargetRate unset.
const DefaultSampleRate = 44100

// DecodeOptions controls the decode pipeline.
type DecodeOptions struct {
	// TargetRate resamples the source; 0 means DefaultSampleRate.
	TargetRate int
	// MaxSeconds truncates the decode so long sources bound memory; 0 decodes everything.
	MaxSeconds float64
}

// Decode shells out to ffmpeg and reads stereo s16le PCM from a pipe.
func Decode(ctx context.Context, ffmpegBinary, path string, opts DecodeOptions) (*Buffer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "decode", "ffmpeg", "empty path", nil)
	}
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	rate := opts.TargetRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		// MP3 sources can still be decoded natively when ffmpeg is missing.
		if strings.EqualFold(filepath.Ext(path), ".mp3") {
			return DecodeMP3(path)
		}
		return nil, services.Wrap(services.ErrExternalTool, "decode", "ffmpeg", "ffmpeg not found in PATH", err)
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	if opts.MaxSeconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", opts.MaxSeconds))
	}
	args = append(args,
		"-i", path,
		"-vn", "-sn", "-dn",
		"-ac", "2",
		"-ar", fmt.Sprintf("%d", rate),
		"-f", "s16le",
		"-",
	)

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "decode", "ffmpeg", stderrSummary(&stderr), err)
	}

	return FromS16LE(stdout.Bytes(), rate, 2)
}

// DecodeMP3 decodes an MP3 file natively. go-mp3 always emits 16-bit stereo
// at the source sample rate.
func DecodeMP3(path string) (*Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "decode", "mp3", "open source", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "decode", "mp3", "create decoder", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "decode", "mp3", "read samples", err)
	}
	return FromS16LE(raw, decoder.SampleRate(), 2)
}

func stderrSummary(stderr *bytes.Buffer) string {
	text := strings.TrimSpace(stderr.String())
	if text == "" {
		return "ffmpeg failed"
	}
	const maxTail = 400
	if len(text) > maxTail {
		text = "..." + text[len(text)-maxTail:]
	}
	return text
}

