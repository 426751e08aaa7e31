package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work. Its logger carries the trace and span ids so that log
// lines emitted inside the span can be correlated.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	attrs  []any
	err    error
	now    func() time.Time
}

// StartSpan derives a child span from ctx, opening a new trace when ctx has none.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With("trace_id", traceID)
	}

	spanID := uuid.NewString()
	attrs := []any{"span_id", spanID, "span_name", name}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, "parent_span_id", parent)
	}
	logger = logger.With(attrs...)

	ctx = WithSpanID(WithLogger(ctx, logger), spanID)
	return ctx, &Span{name: name, logger: logger, start: time.Now(), now: time.Now}
}

// Annotate adds key/value pairs reported when the span ends.
func (s *Span) Annotate(args ...any) {
	if s == nil {
		return
	}
	s.attrs = append(s.attrs, args...)
}

// Fail records err so that End reports the span as failed.
func (s *Span) Fail(err error) {
	if s == nil || err == nil {
		return
	}
	s.err = err
}

// End emits the completion entry: debug on success, warn on failure.
func (s *Span) End() {
	if s == nil {
		return
	}
	args := append([]any{slog.Duration("duration", s.now().Sub(s.start))}, s.attrs...)
	if s.err != nil {
		s.logger.Warn(s.name+" failed", append(args, "error", s.err.Error())...)
		return
	}
	s.logger.Debug(s.name+" completed", args...)
}
