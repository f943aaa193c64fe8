// Package notifications publishes pipeline milestones to ntfy.
//
// Events cover fetch completion, analysis completion, report availability,
// review flags, failures, and daemon lifecycle. When no topic is configured
// the constructor returns a no-op service, so stage handlers publish
// unconditionally. A dedup window keeps repeated failures from flooding a
// topic.
package notifications
