// Package fingerprint derives a content identity for decoded audio from a
// spectrogram peak constellation, used to deduplicate queue submissions and
// library tracks.
package fingerprint
