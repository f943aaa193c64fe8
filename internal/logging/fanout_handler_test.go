package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestFanoutConstructorAllNil(t *testing.T) {
	h := newFanoutHandler(nil, nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Fatalf("expected NoopHandler when nothing survives filtering, got %T", h)
	}
}

func TestFanoutConstructorUnwrapsSingleHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)

	if h := newFanoutHandler(inner); h != inner {
		t.Error("single handler should come back unwrapped")
	}
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Error("nil entries should be dropped before the single-handler shortcut")
	}
}

func TestFanoutEnabledWhenAnyHandlerAccepts(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(info, debug)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled while one handler accepts it")
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled")
	}
}

func TestFanoutEnabledWhenNoHandlerAccepts(t *testing.T) {
	var warnBuf, errBuf bytes.Buffer
	warn := slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	errh := slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError})

	if newFanoutHandler(warn, errh).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled when every handler filters it")
	}
}

func TestFanoutDeliversToAllHandlers(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)

	slog.New(h).Info("profile build started")

	if buf1.Len() == 0 || buf2.Len() == 0 {
		t.Errorf("expected both sinks to receive the record, sizes %d and %d", buf1.Len(), buf2.Len())
	}
}

func TestFanoutHonorsPerHandlerLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)

	slog.New(h).Info("analysis complete")

	if infoBuf.Len() == 0 {
		t.Error("info-level sink should receive the record")
	}
	if warnBuf.Len() != 0 {
		t.Error("warn-level sink should filter an info record")
	}
}

func TestFanoutDebugStaysOutOfInfoSinks(t *testing.T) {
	// The per-handler Enabled check in Handle matters: a debug record must
	// not leak into a sink gated at info.
	var infoBuf, debugBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	slog.New(h).Debug("raw ffprobe output")

	if infoBuf.Len() != 0 {
		t.Error("info sink should not see debug records")
	}
	if debugBuf.Len() == 0 {
		t.Error("debug sink should see debug records")
	}
}

func TestFanoutWithAttrsReachesEverySink(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	).WithAttrs([]slog.Attr{slog.String("set_name", "techno")})

	slog.New(h).Info("gap check queued")

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"set_name"`)) {
			t.Errorf("sink %d missing attached attr: %s", i+1, buf.String())
		}
	}
}

func TestFanoutWithGroupReachesEverySink(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	).WithGroup("analysis")

	slog.New(h).Info("features extracted", slog.String("codec", "flac"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"analysis"`)) {
			t.Errorf("sink %d missing group: %s", i+1, buf.String())
		}
	}
}

func TestFanoutRecordAttrsSurviveCloning(t *testing.T) {
	// Records are cloned for every sink but the last; attrs must arrive
	// intact on both sides of that split.
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	)

	slog.New(h).Info("track saved", slog.Int64("track_id", 42))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"track_id"`)) {
			t.Errorf("sink %d missing record attr: %s", i+1, buf.String())
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, extraBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))

	logger := TeeLogger(base, slog.NewJSONHandler(&extraBuf, nil))
	logger.Info("daemon starting")

	if baseBuf.Len() == 0 {
		t.Error("base handler should receive the record")
	}
	if extraBuf.Len() == 0 {
		t.Error("extra handler should receive the record")
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&buf, nil))
	logger.Info("no base logger")
	if buf.Len() == 0 {
		t.Error("expected output without a base logger")
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	)

	slog.New(h).Info("queue drained")

	if buf1.Len() == 0 || buf2.Len() == 0 {
		t.Errorf("expected both sinks populated, sizes %d and %d", buf1.Len(), buf2.Len())
	}
}
