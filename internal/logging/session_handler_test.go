package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSessionIDHandlerStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	handler := newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "diag-123")

	slog.New(handler).Info("analysis started")

	if !strings.Contains(buf.String(), `"session_id":"diag-123"`) {
		t.Fatalf("expected session_id in output, got: %s", buf.String())
	}
}

func TestSessionIDHandlerPreservesAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "diag-abc")

	slog.New(handler).With("set_name", "techno").Info("profile rebuilt")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"diag-abc"`) {
		t.Fatalf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"set_name":"techno"`) {
		t.Fatalf("expected attached attr in output, got: %s", output)
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	handler := newSessionIDHandler(nil, "diag-123")
	if _, ok := handler.(NoopHandler); !ok {
		t.Fatalf("expected NoopHandler for nil base, got %T", handler)
	}
}
