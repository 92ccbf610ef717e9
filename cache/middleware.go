package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/kvops/observe"
)

// OperationFunc is one store-backed operation: it takes the call arguments and
// returns the call result.
type OperationFunc func(ctx context.Context, args []any) (any, error)

// Middleware decorates the operation named by identity.
type Middleware func(identity string, next OperationFunc) OperationFunc

// Chain wraps fn with mws. The first middleware is the outermost, so it sees
// the call first and the result last.
func Chain(identity string, fn OperationFunc, mws ...Middleware) OperationFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		fn = mws[i](identity, fn)
	}
	return fn
}

func passthrough(_ string, next OperationFunc) OperationFunc { return next }

// CountCalls increments the counter stored under the operation identity
// before every call. A failed increment aborts the call. Backends without
// Counter are left uninstrumented.
func CountCalls(backend Backend) Middleware {
	counter, ok := backend.(Counter)
	if !ok {
		return passthrough
	}
	return func(identity string, next OperationFunc) OperationFunc {
		return func(ctx context.Context, args []any) (any, error) {
			if _, err := counter.Incr(ctx, identity); err != nil {
				return nil, fmt.Errorf("cache: count %s: %w", identity, err)
			}
			return next(ctx, args)
		}
	}
}

// CallHistory appends the formatted arguments to "<identity>:inputs" before
// every call and the formatted result to "<identity>:outputs" after it. A
// failed call records "error: <message>" as its output so the two lists stay
// index-aligned. Backends without Recorder are left uninstrumented.
func CallHistory(backend Backend) Middleware {
	rec, ok := backend.(Recorder)
	if !ok {
		return passthrough
	}
	return func(identity string, next OperationFunc) OperationFunc {
		inKey, outKey := HistoryKeys(identity)
		return func(ctx context.Context, args []any) (any, error) {
			if err := rec.RPush(ctx, inKey, formatArgs(args)); err != nil {
				return nil, fmt.Errorf("cache: record %s inputs: %w", identity, err)
			}

			done := false
			defer func() {
				if !done {
					// next panicked; keep the lists aligned before unwinding.
					_ = rec.RPush(context.WithoutCancel(ctx), outKey, errorMarker+"panic")
				}
			}()
			out, err := next(ctx, args)
			done = true

			if pushErr := rec.RPush(context.WithoutCancel(ctx), outKey, formatOutput(out, err)); pushErr != nil {
				return out, errors.Join(err, fmt.Errorf("cache: record %s outputs: %w", identity, pushErr))
			}
			return out, err
		}
	}
}

// Observed adds a span, operation metrics and a log entry to every call.
// backendName is attached as the op.backend attribute.
func Observed(mw *observe.Middleware, backendName string) Middleware {
	if mw == nil {
		return passthrough
	}
	return func(identity string, next OperationFunc) OperationFunc {
		meta := observe.ParseOperationID(identity)
		meta.Backend = backendName
		wrapped := mw.Wrap(func(ctx context.Context, _ observe.OperationMeta, args []any) (any, error) {
			return next(ctx, args)
		})
		return func(ctx context.Context, args []any) (any, error) {
			return wrapped(ctx, meta, args)
		}
	}
}
