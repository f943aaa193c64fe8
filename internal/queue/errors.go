package queue

import "errors"

// ErrorClassifier lets stage errors declare how their failure should land in
// the queue: kinds "validation", "configuration", and "not_found" route to
// StatusReview, everything else to StatusFailed.
type ErrorClassifier interface {
	ErrorKind() string
}

// FailureStatus resolves the terminal status for a failed stage execution.
func FailureStatus(err error) Status {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "validation", "configuration", "not_found":
			return StatusReview
		}
	}
	return StatusFailed
}
