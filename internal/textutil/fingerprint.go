package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// Fingerprint is a normalized term-frequency vector over a piece of text.
// Track titles and artist names are fingerprinted this way to catch
// re-uploads whose audio hash differs but whose labeling matches.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint tokenizes text into a fingerprint, or nil when no usable
// tokens remain.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

// Tokenize lowercases text, splits on non-alphanumerics, and drops tokens
// shorter than three characters.
func Tokenize(text string) []string {
	raw := tokenSplitter.Split(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if token = strings.TrimSpace(token); len(token) >= 3 {
			terms = append(terms, token)
		}
	}
	return terms
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// WithIDF reweights the fingerprint by the given IDF map and recomputes the
// norm. Terms missing from the map keep their raw counts; a fully zeroed
// result returns nil.
func (f *Fingerprint) WithIDF(idf map[string]float64) *Fingerprint {
	if f == nil || len(idf) == 0 {
		return f
	}
	weighted := make(map[string]float64, len(f.tokens))
	var norm float64
	for token, count := range f.tokens {
		w := count
		if idfVal, ok := idf[token]; ok {
			w *= idfVal
		}
		if w == 0 {
			continue
		}
		weighted[token] = w
		norm += w * w
	}
	if len(weighted) == 0 {
		return nil
	}
	return &Fingerprint{tokens: weighted, norm: math.Sqrt(norm)}
}

// Corpus accumulates document frequencies for IDF weighting.
type Corpus struct {
	docCount int
	docFreq  map[string]int
}

func NewCorpus() *Corpus {
	return &Corpus{docFreq: make(map[string]int)}
}

// Add counts the fingerprint's distinct terms into the corpus.
func (c *Corpus) Add(fp *Fingerprint) {
	if c == nil || fp == nil {
		return
	}
	c.docCount++
	for token := range fp.tokens {
		c.docFreq[token]++
	}
}

// IDF returns log((N+1)/(1+df)) per term.
func (c *Corpus) IDF() map[string]float64 {
	if c == nil || c.docCount == 0 {
		return nil
	}
	idf := make(map[string]float64, len(c.docFreq))
	n := float64(c.docCount)
	for term, df := range c.docFreq {
		idf[term] = math.Log((n + 1) / (1 + float64(df)))
	}
	return idf
}
