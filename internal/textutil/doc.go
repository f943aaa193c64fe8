// Package textutil handles the text side of track identity: token-frequency
// fingerprints with cosine similarity for near-duplicate title matching,
// filename and token sanitization for library paths, and display-title
// derivation from source filenames.
//
// Tokenization lowercases, splits on non-alphanumerics, and drops tokens
// shorter than three characters; fingerprints are normalized term-frequency
// vectors so comparisons stay cheap.
package textutil
