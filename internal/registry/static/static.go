// Package static implements a Registry backed by a fixed, config-supplied
// instance list: no watch, no push, a single snapshot delivered once.
package static

import (
	"context"
	"strconv"
	"sync"

	"gateway/internal/registry"
	"gateway/internal/rpc"
)

var _ registry.Registry = (*Registry)(nil)

// Config is the static registry's YAML shape, one entry per service
// identity.
type Config struct {
	Services []ServiceConfig `yaml:"services"`
}

// ServiceConfig names one service identity and its fixed instance list.
type ServiceConfig struct {
	Interface string           `yaml:"interface"`
	Group     string           `yaml:"group"`
	Version   string           `yaml:"version"`
	Instances []InstanceConfig `yaml:"instances"`
}

// InstanceConfig is one statically-configured backend instance.
type InstanceConfig struct {
	IP     string            `yaml:"ip"`
	Port   int               `yaml:"port"`
	Weight int               `yaml:"weight"`
	Params map[string]string `yaml:"params"`
}

// Registry serves a fixed, never-changing instance table loaded from
// configuration. Register/Deregister are no-ops: the table's membership is
// whatever the config said at construction.
type Registry struct {
	mu       sync.RWMutex
	services map[string][]rpc.Resource
}

// New builds a static Registry from cfg.
func New(cfg Config) *Registry {
	r := &Registry{services: make(map[string][]rpc.Resource, len(cfg.Services))}
	for _, svc := range cfg.Services {
		identity := rpc.ServiceIdentity{Interface: svc.Interface, Group: svc.Group, Version: svc.Version}
		resources := make([]rpc.Resource, 0, len(svc.Instances))
		for _, inst := range svc.Instances {
			params := inst.Params
			if inst.Weight > 0 {
				if params == nil {
					params = make(map[string]string, 1)
				}
				params["weight"] = strconv.Itoa(inst.Weight)
			}
			resources = append(resources, rpc.Resource{
				ServerName: svc.Interface,
				Category:   rpc.CategoryServer,
				Group:      svc.Group,
				Version:    svc.Version,
				IP:         inst.IP,
				Port:       inst.Port,
				Params:     params,
			})
		}
		r.services[identity.Key()] = resources
	}
	return r
}

// Check reports whether identity has any statically-configured instance.
func (r *Registry) Check(ctx context.Context, identity rpc.ServiceIdentity) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resources, ok := r.services[identity.Key()]
	if !ok || len(resources) == 0 {
		return 0, false, nil
	}
	return resources[0].Port, true, nil
}

// Register adds resource to identity's table for the lifetime of the
// process; a static registry has no external backing store to persist it.
func (r *Registry) Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := identity.Key()
	r.services[key] = append(r.services[key], resource)
	return nil
}

// Deregister removes any resource matching resource.Key() from identity's
// table.
func (r *Registry) Deregister(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := identity.Key()
	out := r.services[key][:0]
	for _, existing := range r.services[key] {
		if existing.Key() != resource.Key() {
			out = append(out, existing)
		}
	}
	r.services[key] = out
	return nil
}

// Subscribe delivers the current table as a one-shot sequence of
// EventAdded, then closes the channel: a static registry never changes
// after construction beyond explicit Register/Deregister calls, which are
// not observed by already-open subscriptions.
func (r *Registry) Subscribe(ctx context.Context, identity rpc.ServiceIdentity) (<-chan rpc.RegistryEvent, error) {
	r.mu.RLock()
	resources := append([]rpc.Resource(nil), r.services[identity.Key()]...)
	r.mu.RUnlock()

	ch := make(chan rpc.RegistryEvent, len(resources))
	for _, res := range resources {
		ch <- rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res}
	}
	close(ch)
	return ch, nil
}
