package rpc

import "strconv"

// Category distinguishes a registry record that advertises a server from
// one some registries use for client-side dependency tracking.
type Category string

const (
	CategoryServer Category = "server"
	CategoryClient Category = "client"
)

// Resource is a record published to, or returned from, the registry: one
// network-reachable instance of a service.
type Resource struct {
	ServerName string
	Category   Category
	Group      string
	Version    string
	Methods    []string
	IP         string
	Port       int
	Params     map[string]string
}

// Key identifies the endpoint this resource describes, independent of its
// method list or params, for dedup within a ResourceInfo.
func (r Resource) Key() string {
	return r.IP + ":" + strconv.Itoa(r.Port)
}

// ResourceInfo is the aggregate, per service identity, of currently-known
// Resources. It is created on first lookup, mutated wholesale by registry
// push events (never partially), and is safe to read concurrently with
// replacement — callers treat a ResourceInfo value as immutable once
// obtained.
type ResourceInfo struct {
	Identity  ServiceIdentity
	Resources []Resource
}

// Empty reports whether this snapshot has no known resources.
func (ri *ResourceInfo) Empty() bool {
	return ri == nil || len(ri.Resources) == 0
}

// WithUpserted returns a new ResourceInfo with resource added or replacing
// any existing entry with the same key, without mutating the receiver.
func (ri *ResourceInfo) WithUpserted(r Resource) *ResourceInfo {
	out := &ResourceInfo{Identity: ri.identityOr(r)}
	replaced := false
	if ri != nil {
		out.Resources = make([]Resource, 0, len(ri.Resources)+1)
		for _, existing := range ri.Resources {
			if existing.Key() == r.Key() {
				out.Resources = append(out.Resources, r)
				replaced = true
			} else {
				out.Resources = append(out.Resources, existing)
			}
		}
	}
	if !replaced {
		out.Resources = append(out.Resources, r)
	}
	return out
}

// WithRemoved returns a new ResourceInfo with any resource matching key
// removed, without mutating the receiver.
func (ri *ResourceInfo) WithRemoved(key string) *ResourceInfo {
	if ri == nil {
		return &ResourceInfo{}
	}
	out := &ResourceInfo{Identity: ri.Identity, Resources: make([]Resource, 0, len(ri.Resources))}
	for _, existing := range ri.Resources {
		if existing.Key() != key {
			out.Resources = append(out.Resources, existing)
		}
	}
	return out
}

func (ri *ResourceInfo) identityOr(r Resource) ServiceIdentity {
	if ri != nil {
		return ri.Identity
	}
	return ServiceIdentity{Interface: r.ServerName, Version: r.Version, Group: r.Group}
}

// RegistryEventKind distinguishes an addition from a removal in a push
// update stream.
type RegistryEventKind int

const (
	EventAdded RegistryEventKind = iota
	EventRemoved
)

// RegistryEvent is one push notification from Subscribe.
type RegistryEvent struct {
	Kind     RegistryEventKind
	Resource Resource
}
