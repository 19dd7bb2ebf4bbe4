package filter

import (
	"context"
	"sync"

	"gateway/internal/circuitbreaker"
	"gateway/internal/rpc"
)

// CircuitBreaker returns a filter that trips one circuit breaker per
// service identity, built with cfg, and rejects invocations while that
// service's breaker is open.
func CircuitBreaker(cfg circuitbreaker.Config) Filter {
	var mu sync.Mutex
	breakers := make(map[string]*circuitbreaker.CircuitBreaker)

	breakerFor := func(key string) *circuitbreaker.CircuitBreaker {
		mu.Lock()
		defer mu.Unlock()
		cb, ok := breakers[key]
		if !ok {
			cb = circuitbreaker.New(cfg)
			breakers[key] = cb
		}
		return cb
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, inv *rpc.Invocation) error {
			cb := breakerFor(inv.Service.Key())
			return cb.Call(ctx, func(ctx context.Context) error {
				return next(ctx, inv)
			})
		}
	}
}
