package dsp

import "math"

// Biquad is a second-order IIR filter in transposed direct form II.
// Coefficients are normalized so a0 == 1.
type Biquad struct {
	B0, B1, B2 float64
	A1, A2     float64

	z1, z2 float64
}

// ProcessSample filters one sample, carrying state across calls.
func (f *Biquad) ProcessSample(x float64) float64 {
	y := f.B0*x + f.z1
	f.z1 = f.B1*x - f.A1*y + f.z2
	f.z2 = f.B2*x - f.A2*y
	return y
}

// Process filters the input into a new slice without mutating it.
func (f *Biquad) Process(input []float64) []float64 {
	out := make([]float64, len(input))
	for i, x := range input {
		out[i] = f.ProcessSample(x)
	}
	return out
}

// Reset clears the filter state.
func (f *Biquad) Reset() {
	f.z1 = 0
	f.z2 = 0
}

// NewHighShelf builds a high-shelf biquad with the given corner frequency,
// gain in dB, and Q.
func NewHighShelf(sampleRate int, freq, gainDB, q float64) *Biquad {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	sqrtA := math.Sqrt(a)

	b0 := a * ((a + 1) + (a-1)*cosW + 2*sqrtA*alpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosW)
	b2 := a * ((a + 1) + (a-1)*cosW - 2*sqrtA*alpha)
	a0 := (a + 1) - (a-1)*cosW + 2*sqrtA*alpha
	a1 := 2 * ((a - 1) - (a+1)*cosW)
	a2 := (a + 1) - (a-1)*cosW - 2*sqrtA*alpha

	return &Biquad{
		B0: b0 / a0, B1: b1 / a0, B2: b2 / a0,
		A1: a1 / a0, A2: a2 / a0,
	}
}

// NewHighPass builds a second-order high-pass biquad.
func NewHighPass(sampleRate int, freq, q float64) *Biquad {
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	b0 := (1 + cosW) / 2
	b1 := -(1 + cosW)
	b2 := (1 + cosW) / 2
	a0 := 1 + alpha
	a1 := -2 * cosW
	a2 := 1 - alpha

	return &Biquad{
		B0: b0 / a0, B1: b1 / a0, B2: b2 / a0,
		A1: a1 / a0, A2: a2 / a0,
	}
}

// BS.1770-4 K-weighting prototype parameters. The shelf models head
// diffraction; the high-pass is the RLB weighting curve.
const (
	kShelfFreq    = 1681.9744509555319
	kShelfGainDB  = 3.99984385397
	kShelfQ       = 0.7071752369554193
	kHighPassFreq = 38.13547087613982
	kHighPassQ    = 0.5003270373253953
)

// KWeighting returns the two-stage K-weighting filter chain for the given
// sample rate.
func KWeighting(sampleRate int) [2]*Biquad {
	return [2]*Biquad{
		NewHighShelf(sampleRate, kShelfFreq, kShelfGainDB, kShelfQ),
		NewHighPass(sampleRate, kHighPassFreq, kHighPassQ),
	}
}

// ApplyChain runs the input through each filter in sequence, returning a new
// slice.
func ApplyChain(input []float64, chain ...*Biquad) []float64 {
	out := input
	for _, filter := range chain {
		filter.Reset()
		out = filter.Process(out)
	}
	return out
}
