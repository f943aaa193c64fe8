package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// STFT computes a one-sided short-time Fourier transform and returns
// [frames][bins] magnitudes with 2/N normalization (DC and Nyquist are not
// doubled). Returns nil when samples are shorter than one frame.
func STFT(samples []float64, frameSize, hopSize int) [][]float64 {
	if frameSize <= 0 || hopSize <= 0 || len(samples) < frameSize {
		return nil
	}

	window := HannWindow(frameSize)
	fft := fourier.NewFFT(frameSize)

	numFrames := (len(samples)-frameSize)/hopSize + 1
	numBins := frameSize/2 + 1

	result := make([][]float64, numFrames)
	frame := make([]float64, frameSize)

	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		for j := 0; j < frameSize; j++ {
			frame[j] = samples[start+j] * window[j]
		}

		coeffs := fft.Coefficients(nil, frame)

		scale := 2.0 / float64(frameSize)
		result[i] = make([]float64, numBins)
		for j := 0; j < numBins; j++ {
			re := real(coeffs[j])
			im := imag(coeffs[j])
			s := scale
			if j == 0 || j == numBins-1 {
				s = 1.0 / float64(frameSize)
			}
			result[i][j] = math.Sqrt(re*re+im*im) * s
		}
	}

	return result
}

// Spectrum computes the one-sided magnitude spectrum of a single windowed
// frame. The input is windowed in place with a Hann window when window is
// true.
func Spectrum(frame []float64, window bool) []float64 {
	if len(frame) == 0 {
		return nil
	}
	buf := frame
	if window {
		w := HannWindow(len(frame))
		buf = make([]float64, len(frame))
		for i := range frame {
			buf[i] = frame[i] * w[i]
		}
	}
	fft := fourier.NewFFT(len(buf))
	coeffs := fft.Coefficients(nil, buf)

	numBins := len(buf)/2 + 1
	out := make([]float64, numBins)
	scale := 2.0 / float64(len(buf))
	for j := 0; j < numBins; j++ {
		re := real(coeffs[j])
		im := imag(coeffs[j])
		s := scale
		if j == 0 || j == numBins-1 {
			s = 1.0 / float64(len(buf))
		}
		out[j] = math.Sqrt(re*re+im*im) * s
	}
	return out
}

// BinFrequency returns the center frequency in Hz of an STFT bin.
func BinFrequency(bin, frameSize, sampleRate int) float64 {
	if frameSize <= 0 {
		return 0
	}
	return float64(bin) * float64(sampleRate) / float64(frameSize)
}
