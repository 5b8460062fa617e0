// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if submissionID := SubmissionIDFromContext(ctx); submissionID != "" {
		fields = append(fields, zap.String("submission.id", submissionID))
	}

	return fields
}

// Context key types
type requestCtxKey struct{}
type submissionCtxKey struct{}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// SubmissionIDFromContext extracts submission ID from context.
func SubmissionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(submissionCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithSubmissionID adds submission ID to context.
func WithSubmissionID(ctx context.Context, submissionID string) context.Context {
	return context.WithValue(ctx, submissionCtxKey{}, submissionID)
}
