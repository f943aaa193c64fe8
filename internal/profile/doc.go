// Package profile aggregates analyzed track features into a reference
// profile: per-metric statistics, a correlation matrix, and k-means clusters
// that describe the sonic territory of a reference set.
package profile
