package filter

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"gateway/internal/rpc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainAppliesInOrder(t *testing.T) {
	var order []string
	mark := func(name string) Filter {
		return func(next Handler) Handler {
			return func(ctx context.Context, inv *rpc.Invocation) error {
				order = append(order, name)
				return next(ctx, inv)
			}
		}
	}

	chain := Chain(mark("a"), mark("b"), mark("c"))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		order = append(order, "final")
		return nil
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	if err := final(context.Background(), inv); err != nil {
		t.Fatalf("chain() error = %v", err)
	}

	want := []string{"a", "b", "c", "final"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRecoveryConvertsPanicToError(t *testing.T) {
	chain := Chain(Recovery(testLogger()))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		panic("boom")
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	err := final(context.Background(), inv)
	if err == nil {
		t.Fatal("expected non-nil error after recovered panic")
	}
}

func TestLoggingDoesNotMutateInvocation(t *testing.T) {
	chain := Chain(Logging(testLogger()))
	final := chain(func(ctx context.Context, inv *rpc.Invocation) error {
		inv.SetResult("ok")
		return nil
	})

	inv := rpc.New(context.Background(), rpc.ServiceIdentity{Interface: "DemoService"}, "doRun")
	if err := final(context.Background(), inv); err != nil {
		t.Fatalf("chain() error = %v", err)
	}
	result, ok := inv.Result()
	if !ok || result != "ok" {
		t.Errorf("result = (%q, %v), want (\"ok\", true)", result, ok)
	}
}
