// Package filter implements the ordered wrap-around interceptor chain
// that both the client Invoker and the server dispatcher wrap
// around a single *rpc.Invocation instead of a request/response pair.
package filter

import (
	"context"
	"log/slog"
	"time"

	"gateway/internal/rpc"
)

// Handler processes one invocation, mutating its result or error in
// place.
type Handler func(ctx context.Context, inv *rpc.Invocation) error

// Filter wraps a Handler with additional behavior.
type Filter func(next Handler) Handler

// Chain composes filters into one Handler, applied in the order given:
// the first filter is outermost.
func Chain(filters ...Filter) Filter {
	return func(next Handler) Handler {
		for i := len(filters) - 1; i >= 0; i-- {
			next = filters[i](next)
		}
		return next
	}
}

// Logging logs one line before and after each invocation.
func Logging(logger *slog.Logger) Filter {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *rpc.Invocation) error {
			start := time.Now()
			logger.Info("invocation", "service", inv.Service.String(), "method", inv.Method, "request_id", inv.RequestID)

			err := next(ctx, inv)

			logger.Info("invocation complete",
				"service", inv.Service.String(),
				"method", inv.Method,
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
	}
}

// Recovery converts a panic in an inner Handler into inv.SetError(rpc.Info(...)).
func Recovery(logger *slog.Logger) Filter {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *rpc.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered", "panic", r, "service", inv.Service.String(), "method", inv.Method)
					err = rpc.Info("internal error")
				}
			}()
			return next(ctx, inv)
		}
	}
}
