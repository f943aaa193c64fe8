package pcm

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestFromS16LE(t *testing.T) {
	raw := make([]byte, 8)
	samples := []int16{16384, -16384, 32767, -32768} // L0, R0, L1, R1
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}

	buf, err := FromS16LE(raw, 44100, 2)
	if err != nil {
		t.Fatalf("FromS16LE: %v", err)
	}
	if buf.FrameCount() != 2 {
		t.Fatalf("FrameCount = %d, want 2", buf.FrameCount())
	}
	if math.Abs(buf.Samples[0]-0.5) > 1e-9 {
		t.Fatalf("sample 0 = %f, want 0.5", buf.Samples[0])
	}
	if math.Abs(buf.Samples[3]+1.0) > 1e-9 {
		t.Fatalf("sample 3 = %f, want -1.0", buf.Samples[3])
	}
}

func TestFromS16LEDiscardsPartialFrame(t *testing.T) {
	raw := make([]byte, 9)
	buf, err := FromS16LE(raw, 44100, 2)
	if err != nil {
		t.Fatalf("FromS16LE: %v", err)
	}
	if buf.FrameCount() != 2 {
		t.Fatalf("FrameCount = %d, want 2", buf.FrameCount())
	}
}

func TestFromS16LERejectsBadParams(t *testing.T) {
	if _, err := FromS16LE(make([]byte, 4), 0, 2); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := FromS16LE(make([]byte, 4), 44100, 0); err == nil {
		t.Fatal("expected error for zero channels")
	}
	if _, err := FromS16LE(nil, 44100, 2); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestMonoAveragesChannels(t *testing.T) {
	buf := &Buffer{
		SampleRate: 44100,
		Channels:   2,
		Samples:    []float64{1.0, 0.0, -0.5, 0.5},
	}
	mono := buf.Mono()
	if len(mono) != 2 {
		t.Fatalf("len(mono) = %d, want 2", len(mono))
	}
	if math.Abs(mono[0]-0.5) > 1e-9 || math.Abs(mono[1]) > 1e-9 {
		t.Fatalf("mono = %v, want [0.5 0]", mono)
	}
}

func TestMonoPassthroughForSingleChannel(t *testing.T) {
	buf := &Buffer{SampleRate: 44100, Channels: 1, Samples: []float64{0.25, -0.25}}
	mono := buf.Mono()
	if &mono[0] != &buf.Samples[0] {
		t.Fatal("expected mono to share the underlying slice")
	}
}

func TestChannelExtraction(t *testing.T) {
	buf := &Buffer{
		SampleRate: 44100,
		Channels:   2,
		Samples:    []float64{1.0, 2.0, 3.0, 4.0},
	}
	left := buf.Left()
	right := buf.Right()
	if left[0] != 1.0 || left[1] != 3.0 {
		t.Fatalf("left = %v", left)
	}
	if right[0] != 2.0 || right[1] != 4.0 {
		t.Fatalf("right = %v", right)
	}
	// Out-of-range indexes clamp to the last channel.
	if got := buf.Channel(5); got[0] != 2.0 {
		t.Fatalf("clamped channel = %v", got)
	}
}

func TestDurationSeconds(t *testing.T) {
	buf := &Buffer{SampleRate: 44100, Channels: 2, Samples: make([]float64, 44100*2)}
	if d := buf.DurationSeconds(); math.Abs(d-1.0) > 1e-9 {
		t.Fatalf("DurationSeconds = %f, want 1.0", d)
	}
	var nilBuf *Buffer
	if nilBuf.DurationSeconds() != 0 {
		t.Fatal("nil buffer should report zero duration")
	}
}
