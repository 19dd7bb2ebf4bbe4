// Package client implements the invocation pipeline's client side:
// the handler chain an outbound call runs through, from argument
// serialization to response decode.
package client

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"gateway/internal/codec"
	"gateway/internal/filter"
	"gateway/internal/route"
	"gateway/internal/route/balancer"
	"gateway/internal/rpc"
	"gateway/internal/transport"
)

// Invoker drives one Invocation through the client handler chain:
// serialize, trace, route, balance, socket, decode, finalize.
type Invoker struct {
	cache      *route.Cache
	balancer   balancer.Balancer
	pool       *transport.Pool
	requests   *codec.RequestCodec
	responses  *codec.ResponseCodec
	propagator propagation.TextMapPropagator
	filters    filter.Filter
}

// Option configures an Invoker at construction.
type Option func(*Invoker)

// WithBalancer overrides the default round-robin balancer.
func WithBalancer(b balancer.Balancer) Option {
	return func(i *Invoker) { i.balancer = b }
}

// WithFilters installs a filter chain run around every Invoke call, for
// cross-cutting concerns like logging and recovery.
func WithFilters(f filter.Filter) Option {
	return func(i *Invoker) { i.filters = f }
}

// NewInvoker builds an Invoker over cache for route lookups and pool for
// outbound sockets.
func NewInvoker(cache *route.Cache, pool *transport.Pool, opts ...Option) *Invoker {
	i := &Invoker{
		cache:      cache,
		pool:       pool,
		requests:   codec.NewRequestCodec(),
		responses:  codec.NewResponseCodec(),
		propagator: propagation.TraceContext{},
		balancer:   balancer.NewRoundRobin(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke runs inv through the full client pipeline and returns the
// backend's result string, or the typed *rpc.Error the backend or
// transport produced.
func (i *Invoker) Invoke(ctx context.Context, inv *rpc.Invocation) (string, error) {
	inv = inv.WithContext(ctx)

	handler := i.core
	if i.filters != nil {
		handler = i.filters(func(ctx context.Context, inv *rpc.Invocation) error {
			result, err := i.core(ctx, inv)
			if err != nil {
				inv.SetError(err)
				return err
			}
			inv.SetResult(result)
			return nil
		})
		if err := handler(ctx, inv); err != nil {
			return "", err
		}
		result, _ := inv.Result()
		return result, nil
	}

	return i.core(ctx, inv)
}

// core performs the route → balance → socket → decode stages; Invoke
// wraps it with trace injection and the optional filter chain.
func (i *Invoker) core(ctx context.Context, inv *rpc.Invocation) (string, error) {
	// route: resolve the candidate resource set for this service identity.
	info := i.cache.Lookup(inv.Service)
	if info.Empty() {
		return "", rpc.Info("no provider")
	}

	// balance: pick one resource, keyed by request id for sticky routing.
	key := inv.RequestID
	if key == "" {
		key = inv.HandlerKey().String()
	}
	resource, err := i.balancer.Select(key, info.Resources)
	if err != nil {
		return "", err
	}

	baseURL := fmt.Sprintf("http://%s:%d", resource.IP, resource.Port)

	// serialize: build the protocol-specific outbound request.
	httpReq, err := i.requests.EncodeClientRequest(inv, baseURL)
	if err != nil {
		return "", err
	}

	// trace: inject the active span context as a W3C traceparent header.
	i.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	tracer := trace.SpanFromContext(ctx).TracerProvider().Tracer("gateway/client")
	spanCtx, span := tracer.Start(ctx, inv.HandlerKey().String())
	defer span.End()
	httpReq = httpReq.WithContext(spanCtx)

	// socket: send over the pooled/multiplexed client for this protocol.
	client := i.pool.Client(inv.Protocol, baseURL)
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return "", rpc.Info("send request: " + err.Error())
	}
	defer httpResp.Body.Close()

	// decode: parse the backend's response into a result or typed error.
	return i.responses.DecodeClientResponse(httpResp)
}
