package balancer

import (
	"math/rand"
	"strconv"

	"gateway/internal/rpc"
)

// WeightedRandom picks a resource at random, proportional to its "weight"
// param (default 1), ignoring the request key.
type WeightedRandom struct{}

// NewWeightedRandom returns a WeightedRandom balancer.
func NewWeightedRandom() *WeightedRandom {
	return &WeightedRandom{}
}

// Select returns a resource chosen with probability proportional to its
// weight.
func (b *WeightedRandom) Select(key string, resources []rpc.Resource) (*rpc.Resource, error) {
	if len(resources) == 0 {
		return nil, rpc.Info("no resources available")
	}

	total := 0
	weights := make([]int, len(resources))
	for i, r := range resources {
		w := weightOf(r)
		weights[i] = w
		total += w
	}
	if total == 0 {
		return &resources[rand.Intn(len(resources))], nil
	}

	target := rand.Intn(total)
	current := 0
	for i, w := range weights {
		current += w
		if target < current {
			return &resources[i], nil
		}
	}
	return &resources[len(resources)-1], nil
}

func weightOf(r rpc.Resource) int {
	if r.Params == nil {
		return 1
	}
	v, ok := r.Params["weight"]
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
