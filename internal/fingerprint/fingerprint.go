package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"soundcheck/internal/dsp"
	"soundcheck/internal/media/pcm"
)

const (
	frameSize = 1024
	hopSize   = 512

	// Peaks are picked per logarithmic-ish frequency zone so quiet bands
	// still contribute landmarks.
	peakZones = 6

	// Each anchor peak is paired with the next few peaks inside its target
	// zone, Shazam-style.
	targetZoneSize = 5
	maxDeltaFrames = 64

	freqBits  = 10
	deltaBits = 12
)

type peak struct {
	frame int
	bin   int
}

// Signature is the sorted, deduplicated set of constellation hashes for one
// audio source.
type Signature []uint32

// Compute builds the constellation signature of a buffer. Only the mono
// mixdown is inspected; sample rate differences of the same content yield
// different signatures, so callers should decode at a fixed analysis rate.
func Compute(buf *pcm.Buffer) Signature {
	if buf == nil {
		return nil
	}
	frames := dsp.STFT(buf.Mono(), frameSize, hopSize)
	if len(frames) == 0 {
		return nil
	}

	peaks := constellation(frames)
	if len(peaks) == 0 {
		return nil
	}

	seen := make(map[uint32]struct{})
	for i, anchor := range peaks {
		paired := 0
		for j := i + 1; j < len(peaks) && paired < targetZoneSize; j++ {
			target := peaks[j]
			delta := target.frame - anchor.frame
			if delta <= 0 {
				continue
			}
			if delta > maxDeltaFrames {
				break
			}
			seen[hashPair(anchor, target, delta)] = struct{}{}
			paired++
		}
	}

	sig := make(Signature, 0, len(seen))
	for h := range seen {
		sig = append(sig, h)
	}
	sort.Slice(sig, func(i, j int) bool { return sig[i] < sig[j] })
	return sig
}

// Digest returns the hex SHA-256 of the signature stream, the stable identity
// string stored on queue items and library tracks.
func (s Signature) Digest() string {
	if len(s) == 0 {
		return ""
	}
	h := sha256.New()
	var word [4]byte
	for _, v := range s {
		binary.BigEndian.PutUint32(word[:], v)
		h.Write(word[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Overlap reports the fraction of the smaller signature's hashes present in
// the other, in [0, 1]. Values above roughly 0.25 indicate the same
// underlying recording.
func Overlap(a, b Signature) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	set := make(map[uint32]struct{}, len(b))
	for _, h := range b {
		set[h] = struct{}{}
	}
	matched := 0
	for _, h := range a {
		if _, ok := set[h]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(a))
}

// constellation picks the strongest bin per frequency zone per frame,
// keeping only zone winners that beat the frame mean.
func constellation(frames [][]float64) []peak {
	var peaks []peak
	for t, mags := range frames {
		var mean float64
		for _, m := range mags {
			mean += m
		}
		mean /= float64(len(mags))

		zoneSize := len(mags) / peakZones
		if zoneSize == 0 {
			zoneSize = 1
		}
		for z := 0; z < peakZones; z++ {
			start := z * zoneSize
			end := start + zoneSize
			if z == peakZones-1 || end > len(mags) {
				end = len(mags)
			}
			best := -1
			for bin := start; bin < end; bin++ {
				if mags[bin] <= mean*2 {
					continue
				}
				if best < 0 || mags[bin] > mags[best] {
					best = bin
				}
			}
			if best >= 0 {
				peaks = append(peaks, peak{frame: t, bin: best})
			}
		}
	}
	return peaks
}

// hashPair packs anchor frequency, target frequency, and frame delta into a
// 32-bit landmark: 10 bits each for the frequencies and 12 for the delta.
func hashPair(anchor, target peak, delta int) uint32 {
	a := uint32(anchor.bin) & ((1 << freqBits) - 1)
	t := uint32(target.bin) & ((1 << freqBits) - 1)
	d := uint32(delta) & ((1 << deltaBits) - 1)
	return a<<(freqBits+deltaBits) | t<<deltaBits | d
}
