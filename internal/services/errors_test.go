package services_test

import (
	"errors"
	"strings"
	"testing"

	"soundcheck/internal/queue"
	"soundcheck/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "analyze", "decode", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"analyze", "decode", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestDetailsDecomposesWrappedError(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "analyze", "decode", "ffmpeg failed", base)

	details := services.Details(err)
	if details.Kind != services.KindExternalTool {
		t.Fatalf("kind = %s, want external_tool", details.Kind)
	}
	if details.Stage != "analyze" || details.Operation != "decode" {
		t.Fatalf("unexpected stage/operation: %+v", details)
	}
	if !strings.Contains(details.Message, "ffmpeg failed") {
		t.Fatalf("message missing detail: %q", details.Message)
	}
	if details.Cause != base {
		t.Fatalf("cause not preserved: %v", details.Cause)
	}
	if details.Hint == "" {
		t.Fatal("expected a remediation hint")
	}

	plain := services.Details(errors.New("boom"))
	if plain.Kind != services.KindUnknown {
		t.Fatalf("expected unknown kind for plain error, got %s", plain.Kind)
	}
}

func TestFailureStatusMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "fetch", "prepare", "invalid", nil)
	if status := services.FailureStatus(validationErr); status != queue.StatusReview {
		t.Fatalf("expected review for validation error, got %s", status)
	}

	transientErr := services.Wrap(services.ErrTransient, "analyze", "copy", "copy failed", errors.New("io"))
	if status := services.FailureStatus(transientErr); status != queue.StatusFailed {
		t.Fatalf("expected failed for transient error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != queue.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}
