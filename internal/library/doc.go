// Package library persists analyzed tracks, their extracted features,
// reference sets, and built profile snapshots in a SQLite database separate
// from the work queue. The queue tracks in-flight pipeline state; the library
// is the durable catalog the profiler and reporter read from.
package library
