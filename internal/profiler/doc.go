// Package profiler implements the background workflow stage that keeps
// reference-set profiles current. Reference items trigger a rebuild of their
// set's profile once enough tracks are analyzed; candidate items make sure a
// usable profile exists before the gap report runs.
package profiler
