package logging

import (
	"context"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		fields = append(fields, zap.String("session.id", sessionID))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if noteID := NoteIDFromContext(ctx); noteID != "" {
		fields = append(fields, zap.String("note.id", noteID))
	}

	return fields
}

type sessionCtxKey struct{}
type requestCtxKey struct{}
type noteCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validID reports whether id is safe to attach to log records.
func validID(id string) bool {
	return id != "" &&
		len(id) <= maxIDLen &&
		utf8.ValidString(id) &&
		idPattern.MatchString(id)
}

func withID(ctx context.Context, key any, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFromContext(ctx context.Context, key any) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithSessionID adds a session ID to ctx. Invalid IDs are ignored.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withID(ctx, sessionCtxKey{}, sessionID)
}

// SessionIDFromContext extracts the session ID from ctx.
func SessionIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, sessionCtxKey{})
}

// WithRequestID adds a request ID to ctx. Invalid IDs are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withID(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from ctx.
func RequestIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, requestCtxKey{})
}

// WithNoteID adds the ID of the note being operated on to ctx.
// Invalid IDs are ignored.
func WithNoteID(ctx context.Context, noteID string) context.Context {
	return withID(ctx, noteCtxKey{}, noteID)
}

// NoteIDFromContext extracts the note ID from ctx.
func NoteIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, noteCtxKey{})
}
