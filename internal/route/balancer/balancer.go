// Package balancer selects one Resource among a ResourceInfo's live set for
// a given invocation.
package balancer

import (
	"gateway/internal/rpc"
)

// Balancer picks one resource from the candidate set for a request keyed
// by key (the value consistent-hash-style balancers hash on; stateless
// balancers ignore it).
type Balancer interface {
	Select(key string, resources []rpc.Resource) (*rpc.Resource, error)
}

// registry is the process-wide table of named balancers, letting callers
// register a custom Balancer and select it by name from configuration.
type registry struct {
	byName map[string]Balancer
}

var defaultRegistry = newRegistry()

func newRegistry() *registry {
	r := &registry{byName: make(map[string]Balancer)}
	r.byName["round_robin"] = NewRoundRobin()
	r.byName["random"] = NewRandom()
	r.byName["consistent_hash"] = NewConsistentHash(0, nil)
	r.byName["weighted_random"] = NewWeightedRandom()
	return r
}

// Register adds or replaces a named balancer in the default registry.
func Register(name string, b Balancer) {
	defaultRegistry.byName[name] = b
}

// Lookup returns the named balancer, or (nil, false) if none is registered.
func Lookup(name string) (Balancer, bool) {
	b, ok := defaultRegistry.byName[name]
	return b, ok
}
