package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"soundcheck/internal/config"
	"soundcheck/internal/services"
)

// ProgressUpdate carries throttled download progress.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Metadata is the subset of yt-dlp info JSON the pipeline keeps.
type Metadata struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Uploader        string  `json:"uploader"`
	Channel         string  `json:"channel"`
	DurationSeconds float64 `json:"duration"`
	UploadDate      string  `json:"upload_date"`
	WebpageURL      string  `json:"webpage_url"`
}

// BestArtist returns the most specific creator field present.
func (m Metadata) BestArtist() string {
	for _, v := range []string{m.Artist, m.Uploader, m.Channel} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// DownloadResult describes a completed download.
type DownloadResult struct {
	AudioPath string
	Metadata  Metadata
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary          string
	audioFormat     string
	rateLimit       string
	downloadTimeout time.Duration
	infoTimeout     time.Duration
	exec            Executor
}

// NewClient constructs a yt-dlp client from config.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		binary:          cfg.YtDlpBinary(),
		audioFormat:     cfg.Ingest.AudioFormat,
		rateLimit:       strings.TrimSpace(cfg.Ingest.RateLimit),
		downloadTimeout: time.Duration(cfg.Ingest.DownloadTimeout) * time.Second,
		infoTimeout:     time.Duration(cfg.Ingest.InfoTimeout) * time.Second,
		exec:            commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Version probes the binary, returning its version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version string
	err := c.exec.Run(ctx, c.binary, []string{"--version"}, func(line string) {
		if version == "" {
			version = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "fetch", "probe", "yt-dlp is not runnable", err)
	}
	return version, nil
}

// Info fetches source metadata without downloading, used for duration
// enforcement before committing to a download.
func (c *Client) Info(ctx context.Context, sourceURL string) (*Metadata, error) {
	infoCtx := ctx
	if c.infoTimeout > 0 {
		var cancel context.CancelFunc
		infoCtx, cancel = context.WithTimeout(ctx, c.infoTimeout)
		defer cancel()
	}

	var jsonLine string
	tail := newLineTail(8)
	err := c.exec.Run(infoCtx, c.binary,
		[]string{"--dump-json", "--no-playlist", "--no-download", sourceURL},
		func(line string) {
			tail.add(line)
			if strings.HasPrefix(strings.TrimSpace(line), "{") {
				jsonLine = line
			}
		})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "info",
			fmt.Sprintf("yt-dlp metadata fetch failed: %s", tail.join()), err)
	}
	if jsonLine == "" {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "info", "yt-dlp produced no metadata", nil)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(jsonLine), &meta); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "info", "yt-dlp metadata is not valid JSON", err)
	}
	return &meta, nil
}

// Download fetches the best audio stream into destDir and returns the final
// audio path plus parsed metadata. Progress callbacks are throttled to whole
// percent changes.
func (c *Client) Download(ctx context.Context, sourceURL, destDir string, progress func(ProgressUpdate)) (*DownloadResult, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "download", "Source URL is required", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "download", "Cannot create staging directory", err)
	}

	dlCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		dlCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	args := []string{
		"--no-playlist",
		"--max-downloads", "1",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", c.audioFormat,
		"--write-info-json",
		"--newline",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
	}
	if c.rateLimit != "" {
		args = append(args, "--limit-rate", c.rateLimit)
	}
	args = append(args, sourceURL)

	var audioPath string
	lastPercent := -1.0
	tail := newLineTail(8)
	err := c.exec.Run(dlCtx, c.binary, args, func(line string) {
		tail.add(line)
		if pct, ok := parseDownloadPercent(line); ok {
			if progress != nil && pct-lastPercent >= 1 {
				lastPercent = pct
				progress(ProgressUpdate{Percent: pct, Message: strings.TrimSpace(line)})
			}
			return
		}
		if trimmed := strings.TrimSpace(line); filepath.IsAbs(trimmed) {
			audioPath = trimmed
		}
	})
	if err != nil {
		// yt-dlp exits 101 when --max-downloads stops it; the file is
		// still complete in that case.
		if audioPath == "" {
			cleanupPartials(destDir)
			return nil, services.Wrap(services.ErrExternalTool, "fetch", "download",
				fmt.Sprintf("yt-dlp failed: %s", tail.join()), err)
		}
	}
	if audioPath == "" {
		cleanupPartials(destDir)
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "download", "yt-dlp reported no output file", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "download", "yt-dlp output file is missing", err)
	}

	result := &DownloadResult{AudioPath: audioPath}
	if meta, err := readInfoJSON(audioPath); err == nil {
		result.Metadata = *meta
	}
	if progress != nil {
		progress(ProgressUpdate{Percent: 100, Message: "Download complete"})
	}
	return result, nil
}

// readInfoJSON loads the sidecar metadata yt-dlp wrote next to the audio.
func readInfoJSON(audioPath string) (*Metadata, error) {
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	raw, err := os.ReadFile(base + ".info.json")
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// parseDownloadPercent extracts the percentage from yt-dlp progress lines
// such as "[download]  42.1% of 3.52MiB at 1.21MiB/s ETA 00:02".
func parseDownloadPercent(line string) (float64, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "[download]") {
		return 0, false
	}
	fields := strings.Fields(strings.TrimPrefix(trimmed, "[download]"))
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

// cleanupPartials removes leftover .part/.ytdl files after a failed download.
func cleanupPartials(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.HasSuffix(name, ".temp") {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
}

type lineTail struct {
	limit int
	lines []string
}

func newLineTail(limit int) *lineTail {
	return &lineTail{limit: limit}
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *lineTail) join() string {
	return strings.Join(t.lines, " | ")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
