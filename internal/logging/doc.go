// Package logging builds the slog stack shared by the daemon and CLI: a
// pretty console handler, a compact JSON file handler, the in-memory event
// stream hub, and the on-disk event archive.
//
// Context helpers stamp queue item IDs, stage names, lanes, and correlation
// IDs onto records automatically, so stage code logs through a plain
// *slog.Logger and still produces fully attributed output. Per-stage level
// overrides and progress sampling keep long fetch and analysis runs readable.
//
// New components should obtain loggers through this package rather than
// constructing slog handlers themselves.
package logging
