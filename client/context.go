package client

import "context"

// scopeKey is the context.Context key holding the current merged scope
// map. Using a Go context as the carrier is the idiomatic substitution
// for the original's contextvars.ContextVar: it gives the same
// task-inherited, stack-restorable dynamic scoping without a goroutine
// equivalent of thread-locals.
type scopeKey struct{}

// Context is an alias kept distinct from context.Context in call sites so
// it reads as "the logging scope", while remaining a real context.Context
// underneath.
type Context = context.Context

// Background returns a Context with no scope attached, the starting
// point for a request or task.
func Background() Context {
	return context.Background()
}

// WithRequestContext returns a child of ctx whose scope is exactly
// requestFields: the whole scope already attached to ctx, including
// fields added by WithUserContext, is replaced rather than merged.
func WithRequestContext(ctx Context, requestFields map[string]any) Context {
	return setScope(ctx, requestFields)
}

// WithUserContext merges userFields on top of whatever scope ctx already
// carries (new keys win on collision) and returns a child context. The
// caller restores the prior scope simply by continuing to use ctx instead
// of the returned value once the enclosed work is done — matching the
// original's user_context() contextmanager, which merges on enter and
// resets via a captured token on exit.
func WithUserContext(ctx Context, userFields map[string]any) Context {
	merged := make(map[string]any, len(userFields)+4)
	for k, v := range mergedContext(ctx) {
		merged[k] = v
	}
	for k, v := range userFields {
		merged[k] = v
	}
	return setScope(ctx, merged)
}

func setScope(ctx Context, fields map[string]any) Context {
	return context.WithValue(ctx, scopeKey{}, fields)
}

// mergedContext returns the scope fields currently attached to ctx, or
// nil if none.
func mergedContext(ctx Context) map[string]any {
	v := ctx.Value(scopeKey{})
	if v == nil {
		return nil
	}
	fields, _ := v.(map[string]any)
	return fields
}
