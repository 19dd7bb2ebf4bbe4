package balancer

import (
	"testing"

	"gateway/internal/rpc"
)

func sampleResources() []rpc.Resource {
	return []rpc.Resource{
		{IP: "10.0.0.1", Port: 8080},
		{IP: "10.0.0.2", Port: 8080},
		{IP: "10.0.0.3", Port: 8080},
	}
}

func TestRoundRobinCyclesThroughAll(t *testing.T) {
	b := NewRoundRobin()
	resources := sampleResources()
	seen := make(map[string]bool)
	for i := 0; i < len(resources)*2; i++ {
		r, err := b.Select("", resources)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		seen[r.Key()] = true
	}
	if len(seen) != len(resources) {
		t.Errorf("saw %d distinct resources, want %d", len(seen), len(resources))
	}
}

func TestRoundRobinEmptyIsInfo(t *testing.T) {
	b := NewRoundRobin()
	if _, err := b.Select("", nil); !rpc.IsInfo(err) {
		t.Fatalf("expected Info, got %v", err)
	}
}

func TestRandomSelectsFromSet(t *testing.T) {
	b := NewRandom()
	resources := sampleResources()
	valid := make(map[string]bool)
	for _, r := range resources {
		valid[r.Key()] = true
	}
	for i := 0; i < 20; i++ {
		r, err := b.Select("", resources)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if !valid[r.Key()] {
			t.Fatalf("selected resource %q not in candidate set", r.Key())
		}
	}
}

func TestWeightedRandomFavorsHeavierWeight(t *testing.T) {
	b := NewWeightedRandom()
	resources := []rpc.Resource{
		{IP: "10.0.0.1", Port: 1, Params: map[string]string{"weight": "1"}},
		{IP: "10.0.0.2", Port: 1, Params: map[string]string{"weight": "99"}},
	}

	counts := map[string]int{}
	for i := 0; i < 200; i++ {
		r, err := b.Select("", resources)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		counts[r.Key()]++
	}
	if counts["10.0.0.2:1"] <= counts["10.0.0.1:1"] {
		t.Errorf("expected heavier-weighted resource to dominate, got %+v", counts)
	}
}

func TestConsistentHashStableForSameKey(t *testing.T) {
	b := NewConsistentHash(0, nil)
	resources := sampleResources()

	first, err := b.Select("session-42", resources)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := b.Select("session-42", resources)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if again.Key() != first.Key() {
			t.Fatalf("selection changed across calls: %q != %q", again.Key(), first.Key())
		}
	}
}

func TestConsistentHashDistributesDifferentKeys(t *testing.T) {
	b := NewConsistentHash(0, nil)
	resources := sampleResources()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		r, err := b.Select(string(rune('a'+i%26))+string(rune(i)), resources)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		seen[r.Key()] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected hashing to spread across more than one resource, saw %v", seen)
	}
}

func TestRegistryLookupBuiltins(t *testing.T) {
	for _, name := range []string{"round_robin", "random", "consistent_hash", "weighted_random"} {
		if _, ok := Lookup(name); !ok {
			t.Errorf("expected builtin balancer %q to be registered", name)
		}
	}
	if _, ok := Lookup("nonexistent"); ok {
		t.Error("expected lookup of unregistered name to fail")
	}
}

func TestRegisterCustomBalancer(t *testing.T) {
	Register("always-first", customFirst{})
	b, ok := Lookup("always-first")
	if !ok {
		t.Fatal("expected custom balancer to be registered")
	}
	resources := sampleResources()
	r, err := b.Select("", resources)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Key() != resources[0].Key() {
		t.Errorf("custom balancer not invoked correctly, got %q", r.Key())
	}
}

type customFirst struct{}

func (customFirst) Select(key string, resources []rpc.Resource) (*rpc.Resource, error) {
	if len(resources) == 0 {
		return nil, rpc.Info("no resources available")
	}
	return &resources[0], nil
}
