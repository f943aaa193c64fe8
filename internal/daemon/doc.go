// Package daemon coordinates the long-running soundcheck process and system
// integration points.
//
// It wires configuration, the queue and library stores, the workflow manager,
// the watch folder, and the HTTP API into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon exposes queue maintenance
// helpers, source enqueueing, reference set and profile management, and
// dependency health summaries consumed by the IPC and HTTP surfaces.
//
// Keep orchestration logic here: individual workflow stages should live in
// their respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
