// Package reporter implements the final background workflow stage. Candidate
// items are compared against their reference-set profile and the resulting
// gap report is written to the reports directory; reference items simply
// complete the pipeline.
package reporter
