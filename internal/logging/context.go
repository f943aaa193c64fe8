package logging

import (
	"context"
	"log/slog"

	"soundcheck/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldTrackID is the standardized structured logging key for library track identifiers.
	FieldTrackID = "track_id"
	// FieldSetName is the standardized structured logging key for reference set names.
	FieldSetName = "set_name"
	// FieldTrackTitle is the standardized structured logging key for human-readable track titles.
	FieldTrackTitle = "track_title"
	// FieldTrackArtist is the standardized structured logging key for track artist names.
	FieldTrackArtist = "track_artist"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType categorizes lifecycle events (stage_start, stage_complete, error, decision).
	FieldEventType = "event_type"
	// FieldDecisionType names automated decisions so operators can audit them.
	FieldDecisionType = "decision_type"
	// FieldErrorCode carries a stable machine-readable error identifier.
	FieldErrorCode = "error_code"
	// FieldErrorKind carries the classification of a wrapped stage error.
	FieldErrorKind = "error_kind"
	// FieldErrorOperation names the operation that produced a stage error.
	FieldErrorOperation = "error_operation"
	// FieldErrorHint suggests the most likely remediation for an error.
	FieldErrorHint = "error_hint"
	// FieldErrorDetailPath points at an artifact with full diagnostic output.
	FieldErrorDetailPath = "error_detail_path"
	// FieldProgressStage names the long-running operation a progress record belongs to.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent carries completion percent for a long-running operation.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage carries the human-readable progress detail line.
	FieldProgressMessage = "progress_message"
	// FieldProgressETA carries the estimated time remaining for an operation.
	FieldProgressETA = "progress_eta"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
