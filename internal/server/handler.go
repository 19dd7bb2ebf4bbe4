package server

import (
	"context"

	"gateway/internal/rpc"
)

// Handler is user business logic bound to one HandlerKey: given the
// decoded arguments, produce a result string or a typed *rpc.Error.
type Handler func(ctx context.Context, inv *rpc.Invocation) (string, error)

// Registry maps a HandlerKey to the Handler that serves it.
type Registry struct {
	byKey map[rpc.HandlerKey]Handler
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[rpc.HandlerKey]Handler)}
}

// Bind registers handler for key, replacing any prior binding.
func (r *Registry) Bind(key rpc.HandlerKey, handler Handler) {
	r.byKey[key] = handler
}

// Lookup returns the handler bound to key, if any.
func (r *Registry) Lookup(key rpc.HandlerKey) (Handler, bool) {
	h, ok := r.byKey[key]
	return h, ok
}
