// Package app wires the runtime's modules together behind a fluent
// builder that assembles a listening server and an outbound invoker
// sharing one registry-backed route cache.
package app

import (
	"context"
	"log/slog"

	"gateway/internal/client"
	"gateway/internal/codec"
	"gateway/internal/filter"
	"gateway/internal/registry"
	"gateway/internal/route"
	"gateway/internal/route/balancer"
	"gateway/internal/rpc"
	"gateway/internal/server"
	"gateway/internal/transport"
)

// Context is the assembled runtime: a server able to dispatch inbound
// calls and an invoker able to place outbound ones, sharing one route
// cache kept current by a registry subscription per identity.
type Context struct {
	logger      *slog.Logger
	registry    registry.Registry
	registries  map[rpc.Protocol]registry.Registry
	cache       *route.Cache
	pool        *transport.Pool
	handlers    *server.Registry
	requests    *codec.RequestCodec
	filters     filter.Filter

	Server  *server.Server
	Invoker *client.Invoker
}

// Builder assembles a Context step by step.
type Builder struct {
	logger      *slog.Logger
	reg         registry.Registry
	registries  map[rpc.Protocol]registry.Registry
	serverCfg   server.Config
	poolCfg     transport.Config
	balancer    balancer.Balancer
	filters     []filter.Filter
	handlers    []handlerBinding
	springRoute []springBinding
}

type handlerBinding struct {
	key     rpc.HandlerKey
	handler server.Handler
}

type springBinding struct {
	method  string
	service rpc.ServiceIdentity
}

// NewBuilder starts a Builder backed by reg, the default registry used
// for any service identity with no protocol-specific registry attached
// via AddRegistry.
func NewBuilder(reg registry.Registry) *Builder {
	return &Builder{
		reg:        reg,
		registries: make(map[rpc.Protocol]registry.Registry),
		serverCfg:  server.Config{Host: "0.0.0.0", Port: 8080},
		poolCfg:    transport.DefaultConfig(),
	}
}

// AddRegistry attaches a distinct registry for one protocol variant, so
// a single process can run Fusen against one discovery backend and
// Dubbo3 or SpringCloud against another, rather than assuming every
// protocol shares the default registry.
func (b *Builder) AddRegistry(protocol rpc.Protocol, reg registry.Registry) *Builder {
	b.registries[protocol] = reg
	return b
}

// WithLogger overrides the default logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithServerConfig overrides the inbound listener configuration.
func (b *Builder) WithServerConfig(cfg server.Config) *Builder {
	b.serverCfg = cfg
	return b
}

// WithBalancer installs a non-default load balancer for outbound calls.
func (b *Builder) WithBalancer(bal balancer.Balancer) *Builder {
	b.balancer = bal
	return b
}

// WithFilter appends a filter to both the client and server chains, in
// registration order.
func (b *Builder) WithFilter(f filter.Filter) *Builder {
	b.filters = append(b.filters, f)
	return b
}

// Handle binds a user handler to a dispatchable endpoint.
func (b *Builder) Handle(key rpc.HandlerKey, handler server.Handler) *Builder {
	b.handlers = append(b.handlers, handlerBinding{key: key, handler: handler})
	return b
}

// AddHandler is Handle, named to match the fluent
// AddRegistry(...).AddHandler(...).Build() assembly style.
func (b *Builder) AddHandler(key rpc.HandlerKey, handler server.Handler) *Builder {
	return b.Handle(key, handler)
}

// BindSpringRoute registers the service identity a SpringCloud method name
// resolves to on the server's request codec.
func (b *Builder) BindSpringRoute(method string, service rpc.ServiceIdentity) *Builder {
	b.springRoute = append(b.springRoute, springBinding{method: method, service: service})
	return b
}

// Build assembles the Context. The returned Context's Server is not yet
// listening; call ctx.Server.Start.
func (b *Builder) Build() *Context {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	cache := route.NewCache()
	pool := transport.NewPool(b.poolCfg)
	requests := codec.NewRequestCodec()
	for _, binding := range b.springRoute {
		requests.BindSpringRoute(binding.method, binding.service)
	}

	handlers := server.NewRegistry()
	for _, binding := range b.handlers {
		handlers.Bind(binding.key, binding.handler)
	}

	chain := filter.Filter(nil)
	if len(b.filters) > 0 {
		chain = filter.Chain(b.filters...)
	}

	invokerOpts := []client.Option{client.WithFilters(chain)}
	if b.balancer != nil {
		invokerOpts = append(invokerOpts, client.WithBalancer(b.balancer))
	}

	registries := make(map[rpc.Protocol]registry.Registry, len(b.registries))
	for protocol, reg := range b.registries {
		registries[protocol] = reg
	}

	ctx := &Context{
		logger:     logger,
		registry:   b.reg,
		registries: registries,
		cache:      cache,
		pool:       pool,
		handlers:   handlers,
		requests:   requests,
		filters:    chain,
		Server:     server.New(b.serverCfg, handlers, requests, chain, logger),
		Invoker:    client.NewInvoker(cache, pool, invokerOpts...),
	}
	return ctx
}

// registryFor resolves the registry bound to protocol via AddRegistry,
// falling back to the default registry when protocol is empty or has no
// dedicated registry attached.
func (c *Context) registryFor(protocol rpc.Protocol) registry.Registry {
	if reg, ok := c.registries[protocol]; ok {
		return reg
	}
	return c.registry
}

// Watch subscribes the route cache to identity's registry updates until
// ctx is canceled, so outbound calls to identity see live membership
// changes. It uses the default registry; use WatchVia to pick a
// protocol-specific one.
func (c *Context) Watch(ctx context.Context, identity rpc.ServiceIdentity) error {
	return c.WatchVia(ctx, "", identity)
}

// WatchVia is Watch, but resolves identity's updates through the
// registry attached to protocol via AddRegistry (the default registry
// if none was attached for it).
func (c *Context) WatchVia(ctx context.Context, protocol rpc.Protocol, identity rpc.ServiceIdentity) error {
	events, err := c.registryFor(protocol).Subscribe(ctx, identity)
	if err != nil {
		return err
	}
	go func() {
		for event := range events {
			c.cache.Apply(identity, event)
		}
	}()
	return nil
}

// Register publishes resource as an instance of identity to the default
// backing registry. Use RegisterVia to publish to a protocol-specific
// registry attached via AddRegistry.
func (c *Context) Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return c.RegisterVia(ctx, "", identity, resource)
}

// RegisterVia is Register, but publishes through the registry attached
// to protocol via AddRegistry (the default registry if none was
// attached for it).
func (c *Context) RegisterVia(ctx context.Context, protocol rpc.Protocol, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return c.registryFor(protocol).Register(ctx, identity, resource)
}
