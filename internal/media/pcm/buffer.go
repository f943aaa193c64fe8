package pcm

import (
	"encoding/binary"
	"fmt"

	"soundcheck/internal/services"
)

// Buffer holds decoded audio as interleaved float64 samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float64
}

// FromS16LE converts raw signed 16-bit little-endian PCM into a Buffer.
// Trailing bytes that do not complete a full frame are discarded.
func FromS16LE(raw []byte, rate, channels int) (*Buffer, error) {
	if rate <= 0 {
		return nil, services.Wrap(services.ErrValidation, "decode", "pcm", fmt.Sprintf("invalid sample rate %d", rate), nil)
	}
	if channels <= 0 {
		return nil, services.Wrap(services.ErrValidation, "decode", "pcm", fmt.Sprintf("invalid channel count %d", channels), nil)
	}
	frameBytes := 2 * channels
	frames := len(raw) / frameBytes
	if frames == 0 {
		return nil, services.Wrap(services.ErrValidation, "decode", "pcm", "no audio samples decoded", nil)
	}

	samples := make([]float64, frames*channels)
	for i := range samples {
		offset := i * 2
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[offset:]))) / 32768.0
	}
	return &Buffer{SampleRate: rate, Channels: channels, Samples: samples}, nil
}

// FrameCount returns the number of sample frames (samples per channel).
func (b *Buffer) FrameCount() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// DurationSeconds returns the buffer length in seconds.
func (b *Buffer) DurationSeconds() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.FrameCount()) / float64(b.SampleRate)
}

// Mono returns a single-channel view of the buffer. For mono input the
// underlying slice is returned directly; multichannel input is averaged
// into a new slice.
func (b *Buffer) Mono() []float64 {
	if b == nil {
		return nil
	}
	if b.Channels == 1 {
		return b.Samples
	}
	frames := b.FrameCount()
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		base := i * b.Channels
		for c := 0; c < b.Channels; c++ {
			sum += b.Samples[base+c]
		}
		mono[i] = sum / float64(b.Channels)
	}
	return mono
}

// Channel extracts one channel as a new slice. Out-of-range indexes clamp to
// the last channel.
func (b *Buffer) Channel(idx int) []float64 {
	if b == nil || b.Channels <= 0 {
		return nil
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= b.Channels {
		idx = b.Channels - 1
	}
	frames := b.FrameCount()
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		out[i] = b.Samples[i*b.Channels+idx]
	}
	return out
}

// Left returns the first channel.
func (b *Buffer) Left() []float64 { return b.Channel(0) }

// Right returns the second channel, or the first for mono input.
func (b *Buffer) Right() []float64 { return b.Channel(1) }

