package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_All(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithRequestID(ctx, "req_2")
	ctx = WithNoteID(ctx, "1718000000000-abc")

	got := map[string]any{}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range ContextFields(ctx) {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		got[k] = v
	}

	assert.Equal(t, sc.TraceID().String(), got["trace_id"])
	assert.Equal(t, sc.SpanID().String(), got["span_id"])
	assert.Equal(t, true, got["trace_sampled"])
	assert.Equal(t, "sess-1", got["session.id"])
	assert.Equal(t, "req_2", got["request.id"])
	assert.Equal(t, "1718000000000-abc", got["note.id"])
}

func TestWithIDs_IgnoreInvalid(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"spaces", "has space"},
		{"newline", "line\nbreak"},
		{"too long", strings.Repeat("a", maxIDLen+1)},
		{"invalid utf8", "\xff\xfe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			assert.Empty(t, SessionIDFromContext(WithSessionID(ctx, tt.id)))
			assert.Empty(t, RequestIDFromContext(WithRequestID(ctx, tt.id)))
			assert.Empty(t, NoteIDFromContext(WithNoteID(ctx, tt.id)))
		})
	}
}

func TestTestLogger_TraceCorrelation(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0xaa},
		SpanID:  trace.SpanID{0xbb},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	tl := NewTestLogger()
	tl.Info(ctx, "correlated")
	tl.AssertTraceCorrelation(t, "correlated")

	tl.Reset()
	assert.Empty(t, tl.All())
}
