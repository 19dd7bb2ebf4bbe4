// Package registry implements the registry abstraction: the
// pluggable service-discovery boundary any of the three protocols'
// backends publish themselves to and clients subscribe against.
package registry

import (
	"context"

	"gateway/internal/rpc"
)

// Registry is the pluggable discovery boundary. A concrete registry
// (static config, filesystem watch, Redis pub/sub, Docker, Kubernetes)
// implements it and is selected by configuration; callers never depend on
// the wire dialog a specific registry speaks.
type Registry interface {
	// Check reports whether identity already has a live registration and,
	// if so, the port it is bound to.
	Check(ctx context.Context, identity rpc.ServiceIdentity) (port int, ok bool, err error)

	// Register publishes resource as an instance of its owning identity.
	Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error

	// Deregister withdraws a previously-registered resource.
	Deregister(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error

	// Subscribe streams registry events for identity until ctx is
	// canceled. The initial snapshot is delivered as a sequence of
	// EventAdded events before any live update.
	Subscribe(ctx context.Context, identity rpc.ServiceIdentity) (<-chan rpc.RegistryEvent, error)
}
