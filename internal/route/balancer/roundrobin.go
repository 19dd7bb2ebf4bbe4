package balancer

import (
	"sync/atomic"

	"gateway/internal/rpc"
)

// RoundRobin cycles through resources in order, ignoring the request key.
type RoundRobin struct {
	counter atomic.Uint64
}

// NewRoundRobin returns a RoundRobin balancer.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Select returns the next resource in sequence.
func (b *RoundRobin) Select(key string, resources []rpc.Resource) (*rpc.Resource, error) {
	if len(resources) == 0 {
		return nil, rpc.Info("no resources available")
	}
	index := b.counter.Add(1) % uint64(len(resources))
	return &resources[index], nil
}
