package route

import (
	"testing"

	"gateway/internal/rpc"
)

func testIdentity() rpc.ServiceIdentity {
	return rpc.ServiceIdentity{Interface: "DemoService", Version: "1.0.0"}
}

func TestCacheLookupEmptyByDefault(t *testing.T) {
	c := NewCache()
	info := c.Lookup(testIdentity())
	if !info.Empty() {
		t.Fatalf("expected empty snapshot, got %+v", info)
	}
}

func TestCacheApplyAddedThenLookup(t *testing.T) {
	c := NewCache()
	identity := testIdentity()
	res := rpc.Resource{ServerName: "DemoService", IP: "10.0.0.1", Port: 8080}

	c.Apply(identity, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res})

	info := c.Lookup(identity)
	if info.Empty() {
		t.Fatal("expected non-empty snapshot after add")
	}
	if len(info.Resources) != 1 || info.Resources[0].Key() != res.Key() {
		t.Errorf("resources = %+v", info.Resources)
	}
}

func TestCacheApplyRemoved(t *testing.T) {
	c := NewCache()
	identity := testIdentity()
	res := rpc.Resource{ServerName: "DemoService", IP: "10.0.0.1", Port: 8080}

	c.Apply(identity, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res})
	c.Apply(identity, rpc.RegistryEvent{Kind: rpc.EventRemoved, Resource: res})

	if info := c.Lookup(identity); !info.Empty() {
		t.Fatalf("expected empty snapshot after remove, got %+v", info)
	}
}

func TestCacheLookupReturnsStableSnapshotDuringConcurrentApply(t *testing.T) {
	c := NewCache()
	identity := testIdentity()
	first := rpc.Resource{ServerName: "DemoService", IP: "10.0.0.1", Port: 8080}

	c.Apply(identity, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: first})
	snap := c.Lookup(identity)

	second := rpc.Resource{ServerName: "DemoService", IP: "10.0.0.2", Port: 8081}
	c.Apply(identity, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: second})

	if len(snap.Resources) != 1 {
		t.Fatalf("held snapshot mutated in place: %+v", snap.Resources)
	}
	if fresh := c.Lookup(identity); len(fresh.Resources) != 2 {
		t.Fatalf("expected 2 resources after second add, got %+v", fresh.Resources)
	}
}

func TestCacheDrop(t *testing.T) {
	c := NewCache()
	identity := testIdentity()
	c.Apply(identity, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: rpc.Resource{IP: "10.0.0.1", Port: 1}})

	c.Drop(identity)

	if info := c.Lookup(identity); !info.Empty() {
		t.Fatalf("expected empty snapshot after drop, got %+v", info)
	}
}
