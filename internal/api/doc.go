// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue and library models into
// transport-friendly DTOs that CLI and HTTP consumers can render without
// coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with progress, report
// path, and match score.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// Track/ReferenceSet/ProfileInfo: library entities for listing and display.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with report details lifted out of
// the stored metadata JSON.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.ProcessingLane) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. Metadata is passed through as
// json.RawMessage to avoid double-encoding.
package api
