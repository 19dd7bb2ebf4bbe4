package balancer

import (
	"math/rand"

	"gateway/internal/rpc"
)

// Random picks a resource uniformly at random, ignoring the request key.
type Random struct{}

// NewRandom returns a Random balancer.
func NewRandom() *Random {
	return &Random{}
}

// Select returns a uniformly random resource.
func (b *Random) Select(key string, resources []rpc.Resource) (*rpc.Resource, error) {
	if len(resources) == 0 {
		return nil, rpc.Info("no resources available")
	}
	return &resources[rand.Intn(len(resources))], nil
}
