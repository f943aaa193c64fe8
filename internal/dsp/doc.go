// Package dsp provides the numeric primitives shared by the feature
// extractors: windowing, short-time Fourier transforms, decibel conversion,
// biquad filters, autocorrelation, and peak picking. Everything operates on
// plain float64 slices so extractors stay composable.
package dsp
