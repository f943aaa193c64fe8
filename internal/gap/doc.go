// Package gap scores a candidate track against a reference profile: per
// metric z-scores and percentile ranks, a weighted match score, and a
// prioritized list of fix recommendations.
package gap
