package analysis

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"soundcheck/internal/config"
	"soundcheck/internal/dsp"
	"soundcheck/internal/library"
	"soundcheck/internal/logging"
	"soundcheck/internal/media/pcm"
	"soundcheck/internal/services"
)

// Extractor computes one family of metrics from decoded audio and writes the
// outcome into the shared Result.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, buf *pcm.Buffer, res *Result) error
}

// Result accumulates extractor output and caches the intermediates several
// extractors share, so the mono mixdown, channel splits, and STFT are each
// computed once per track.
type Result struct {
	Features library.Features

	buf       *pcm.Buffer
	frameSize int
	hopSize   int

	mono   []float64
	left   []float64
	right  []float64
	frames [][]float64
}

func newResult(buf *pcm.Buffer, frameSize, hopSize int) *Result {
	return &Result{buf: buf, frameSize: frameSize, hopSize: hopSize}
}

// SampleRate returns the sample rate of the audio under analysis.
func (r *Result) SampleRate() int { return r.buf.SampleRate }

// FrameSize returns the STFT frame size in samples.
func (r *Result) FrameSize() int { return r.frameSize }

// HopSize returns the STFT hop size in samples.
func (r *Result) HopSize() int { return r.hopSize }

// Mono returns the cached mono mixdown.
func (r *Result) Mono() []float64 {
	if r.mono == nil {
		r.mono = r.buf.Mono()
	}
	return r.mono
}

// Left returns the cached first channel.
func (r *Result) Left() []float64 {
	if r.left == nil {
		r.left = r.buf.Left()
	}
	return r.left
}

// Right returns the cached second channel, which equals Left for mono input.
func (r *Result) Right() []float64 {
	if r.right == nil {
		r.right = r.buf.Right()
	}
	return r.right
}

// Frames returns the cached one-sided magnitude STFT of the mono mixdown.
func (r *Result) Frames() [][]float64 {
	if r.frames == nil {
		r.frames = dsp.STFT(r.Mono(), r.frameSize, r.hopSize)
	}
	return r.frames
}

// Analyzer runs the extractor registry in a fixed order over decoded audio.
type Analyzer struct {
	cfg        *config.Config
	logger     *slog.Logger
	extractors []Extractor
}

// New builds an analyzer with the full extractor registry. Extractors run in
// registration order so repeated runs over the same audio assemble identical
// Features.
func New(cfg *config.Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Analyzer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
	a.extractors = []Extractor{
		levelsExtractor{},
		loudnessExtractor{},
		spectralExtractor{},
		bandsExtractor{},
		stereoExtractor{},
		newTempoExtractor(cfg.Analysis.TempoMinBPM, cfg.Analysis.TempoMaxBPM),
		newKeyExtractor(cfg.Analysis.KeyWindowSeconds),
	}
	return a
}

// SetLogger rebinds the analyzer to an item-scoped logger.
func (a *Analyzer) SetLogger(logger *slog.Logger) {
	if a == nil || logger == nil {
		return
	}
	a.logger = logging.NewComponentLogger(logger, "analysis")
}

// ExtractorNames reports the registry in run order.
func (a *Analyzer) ExtractorNames() []string {
	names := make([]string, 0, len(a.extractors))
	for _, ex := range a.extractors {
		names = append(names, ex.Name())
	}
	return names
}

// Analyze runs every extractor and returns the assembled feature set. Any
// extractor failure aborts the run so partial features never reach the
// library.
func (a *Analyzer) Analyze(ctx context.Context, buf *pcm.Buffer) (*library.Features, error) {
	if a == nil || a.cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "analyze", "Analyzer is not configured", nil)
	}
	if buf == nil || len(buf.Samples) == 0 {
		return nil, services.Wrap(services.ErrValidation, "analysis", "analyze", "Audio buffer is empty", nil)
	}
	if buf.FrameCount() < a.cfg.Analysis.FrameSize {
		return nil, services.Wrap(services.ErrValidation, "analysis", "analyze",
			fmt.Sprintf("Audio too short to analyze: %d frames, need at least %d", buf.FrameCount(), a.cfg.Analysis.FrameSize), nil)
	}

	res := newResult(buf, a.cfg.Analysis.FrameSize, a.cfg.Analysis.HopSize)
	res.Features.SchemaVersion = library.FeatureSchemaVersion

	for _, ex := range a.extractors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := ex.Extract(ctx, buf, res); err != nil {
			return nil, fmt.Errorf("%s: %w", ex.Name(), err)
		}
		a.logger.Debug("extractor finished",
			logging.String("extractor", ex.Name()),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return &res.Features, nil
}
