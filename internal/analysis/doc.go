// Package analysis turns decoded PCM audio into the feature set the library
// stores for every track. A fixed registry of extractors covers levels,
// loudness, spectral shape, band energy, stereo image, tempo, and key; each
// extractor writes into a shared Result so one run assembles a complete
// library.Features row.
package analysis
