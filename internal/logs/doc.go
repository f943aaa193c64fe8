// Package logs reads daemon log output back for display: a bounded-memory
// file tailer with resumable byte offsets, and an HTTP client for the
// daemon's structured log API.
//
// The tailer supports "last N lines" via negative offsets and short polling
// for follow mode; the API client adds field filters the raw tail cannot
// express. The logs command tries the API first and falls back to the tailer
// when the daemon's HTTP listener is disabled.
package logs
