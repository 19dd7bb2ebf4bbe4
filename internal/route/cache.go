// Package route implements the Route Cache: the mapping from service
// identity to the live set of Resources serving it, refreshed by registry
// push events with snapshot-replacement semantics so readers never observe
// a torn mutation.
package route

import (
	"sync"
	"sync/atomic"

	"gateway/internal/rpc"
)

// Cache maps a service identity to an atomically-swapped *rpc.ResourceInfo
// snapshot. Readers call Lookup and get back the exact value some writer
// last Stored; Update/Remove build a new ResourceInfo and swap it in, never
// mutating the one readers may be holding.
type Cache struct {
	mu    sync.RWMutex
	byKey map[string]*atomic.Pointer[rpc.ResourceInfo]
}

// NewCache returns an empty Route Cache.
func NewCache() *Cache {
	return &Cache{byKey: make(map[string]*atomic.Pointer[rpc.ResourceInfo])}
}

// Lookup returns the current ResourceInfo snapshot for identity, creating
// an empty tracked entry on first lookup.
func (c *Cache) Lookup(identity rpc.ServiceIdentity) *rpc.ResourceInfo {
	slot := c.slot(identity)
	if snap := slot.Load(); snap != nil {
		return snap
	}
	return &rpc.ResourceInfo{Identity: identity}
}

// Apply applies one registry push event to identity's snapshot, replacing
// the stored pointer atomically so any in-flight reader's Lookup result
// remains a consistent, never-partial value.
func (c *Cache) Apply(identity rpc.ServiceIdentity, event rpc.RegistryEvent) {
	slot := c.slot(identity)
	for {
		old := slot.Load()
		if old == nil {
			old = &rpc.ResourceInfo{Identity: identity}
		}
		var next *rpc.ResourceInfo
		switch event.Kind {
		case rpc.EventAdded:
			next = old.WithUpserted(event.Resource)
		case rpc.EventRemoved:
			next = old.WithRemoved(event.Resource.Key())
		default:
			return
		}
		if slot.CompareAndSwap(old, next) {
			return
		}
	}
}

// Drop removes the tracked entry for identity entirely, e.g. when the last
// subscriber releases interest in it.
func (c *Cache) Drop(identity rpc.ServiceIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, identity.Key())
}

func (c *Cache) slot(identity rpc.ServiceIdentity) *atomic.Pointer[rpc.ResourceInfo] {
	key := identity.Key()

	c.mu.RLock()
	slot, ok := c.byKey[key]
	c.mu.RUnlock()
	if ok {
		return slot
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok = c.byKey[key]; ok {
		return slot
	}
	slot = new(atomic.Pointer[rpc.ResourceInfo])
	c.byKey[key] = slot
	return slot
}
