package obscontext

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	workerIDKey  contextKey = "worker_id"
	runIDKey     contextKey = "run_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithWorkerRun tags a context with the worker identity and the ULID of
// the current batch run.
func WithWorkerRun(ctx context.Context, workerID, runID string) context.Context {
	ctx = context.WithValue(ctx, workerIDKey, strings.TrimSpace(workerID))
	return context.WithValue(ctx, runIDKey, strings.TrimSpace(runID))
}

func WorkerRunFromContext(ctx context.Context) (string, string) {
	workerID, _ := ctx.Value(workerIDKey).(string)
	runID, _ := ctx.Value(runIDKey).(string)
	return workerID, runID
}
