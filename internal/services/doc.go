// Package services holds the cross-cutting pieces every stage handler leans
// on: correlation context (item ID, stage, lane, request ID) for log
// attribution, and the marker-error scheme used to classify failures.
//
// Wrap attaches a marker, stage, and operation to an error; FailureStatus
// maps the marker chain to the terminal queue status (validation problems
// route to review, everything else to failed). New stage code should wrap
// errors through this package so retry and review behavior stays uniform.
package services
