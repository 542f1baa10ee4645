// Package trace records what the inference driver is doing.
//
// A Tracer travels in the context; there is no global logger:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeFunc, "infer:main", parent)
//	defer span.End("")
//
// Levels gate scopes: phase shows driver and pass boundaries, detail adds
// one span per function, debug adds per-node events. Storage is a stream
// (stderr or a file, rotated when MaxSizeMB is set), an in-memory ring for
// post-mortem dumps, or both.
package trace
