package filter

import (
	"context"

	"gateway/internal/retry"
	"gateway/internal/rpc"
)

// Retry returns a filter that retries a failed invocation with
// exponential backoff, per cfg. Each attempt runs against a fresh clone
// of the invocation so the single-write Result/Err rule on the original
// isn't tripped; the final attempt's outcome is copied onto it.
func Retry(cfg retry.Config) Filter {
	r := retry.New(cfg)
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *rpc.Invocation) error {
			var attempt *rpc.Invocation
			err := r.Do(ctx, func(ctx context.Context) error {
				attempt = inv.Clone()
				return next(ctx, attempt)
			})

			if result, ok := attempt.Result(); ok {
				inv.SetResult(result)
			} else if attempt.Err() != nil {
				inv.SetError(attempt.Err())
			}
			return err
		}
	}
}
