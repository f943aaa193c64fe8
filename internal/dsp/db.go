package dsp

import "math"

// SilenceFloorDB is the decibel floor returned for zero or negative power,
// keeping downstream statistics NaN-free on silent input.
const SilenceFloorDB = -120.0

// PowerToDB converts a power quantity to decibels, flooring silence.
func PowerToDB(power float64) float64 {
	if power <= 0 || math.IsNaN(power) {
		return SilenceFloorDB
	}
	db := 10 * math.Log10(power)
	if db < SilenceFloorDB {
		return SilenceFloorDB
	}
	return db
}

// AmplitudeToDB converts an amplitude quantity to decibels, flooring silence.
func AmplitudeToDB(amplitude float64) float64 {
	if amplitude <= 0 || math.IsNaN(amplitude) {
		return SilenceFloorDB
	}
	db := 20 * math.Log10(amplitude)
	if db < SilenceFloorDB {
		return SilenceFloorDB
	}
	return db
}

// DBToAmplitude converts decibels back to a linear amplitude.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// RMS returns the root mean square of the samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
