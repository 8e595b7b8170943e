package services

import "context"

type ctxKey uint8

const (
	jobKey ctxKey = iota + 1
	taskKey
	laneKey
	requestKey
)

// WithJobID tags ctx with the generation or translation job being worked on.
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobKey, id)
}

// JobIDFromContext returns the job tagged by WithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, jobKey)
}

// WithTaskID tags ctx with the durable queue task id.
func WithTaskID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, taskKey, id)
}

func TaskIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(taskKey).(int64)
	return id, ok
}

// WithLane tags ctx with the worker lane ("generate" or "translate").
func WithLane(ctx context.Context, lane string) context.Context {
	return withString(ctx, laneKey, lane)
}

func LaneFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, laneKey)
}

// WithRequestID tags ctx with the API request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestKey)
}

// withString leaves ctx untouched for blank values so lookups report absence.
func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key ctxKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
