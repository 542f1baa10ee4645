package trace

import "context"

type ctxKey uint8

const (
	tracerKey ctxKey = iota
	spanKey
)

// FromContext returns the tracer stored in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithTracer returns ctx carrying t. A nil t is stored as Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey, t)
}

// SpanContext is the innermost open span of a context together with the
// function under analysis, if any.
type SpanContext struct {
	SpanID uint64
	Func   string
}

// CurrentSpan returns the span context stored in ctx; zero when none.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanKey).(SpanContext)
	return sc
}

// WithSpanContext returns ctx carrying sc.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		return nil
	}
	return context.WithValue(ctx, spanKey, sc)
}
