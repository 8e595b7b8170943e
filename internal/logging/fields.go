package logging

import (
	"context"
	"log/slog"

	"recipeforge/internal/services"
)

// Structured field keys shared by every component. The logs package and the
// CLI filter on FieldComponent and FieldJobID.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldTaskID        = "task_id"
	FieldLane          = "lane"
	FieldEntityType    = "entity_type"
	FieldEntityID      = "entity_id"
	FieldCollectionID  = "collection_id"
	FieldCorrelationID = "correlation_id"

	// FieldEventType names what happened (job_created, item_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint tells an operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// WithContext adds the job, task, lane and request identifiers carried by ctx
// to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var attrs []Attr
	if id, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldJobID, id))
	}
	if id, ok := services.TaskIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldTaskID, id))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		attrs = append(attrs, String(FieldLane, lane))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
