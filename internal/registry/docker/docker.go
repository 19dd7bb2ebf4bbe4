// Package docker implements a Registry backed by the Docker daemon's
// container list: service instances are containers carrying a fixed set
// of discovery labels, polled on an interval.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"gateway/internal/registry"
	"gateway/internal/rpc"
)

var _ registry.Registry = (*Registry)(nil)

// Config configures the Docker daemon connection and the label
// conventions used to recognize RPC service instances.
type Config struct {
	Host            string `yaml:"host"`
	APIVersion      string `yaml:"apiVersion"`
	LabelPrefix     string `yaml:"labelPrefix"`
	Network         string `yaml:"network"`
	RefreshInterval int    `yaml:"refreshInterval"`
}

// DefaultConfig returns the package's conventional defaults.
func DefaultConfig() *Config {
	return &Config{LabelPrefix: "gateway.rpc", RefreshInterval: 10}
}

// Registry discovers service instances by polling the Docker daemon's
// container list through the Docker Engine API client.
type Registry struct {
	config *Config
	client dockerClient
	logger *slog.Logger

	mu       sync.RWMutex
	byKey    map[string][]rpc.Resource
	watchers map[string][]chan rpc.RegistryEvent
	watchMu  sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// dockerClient is the slice of *client.Client this registry depends on,
// narrowed so tests can substitute a fake daemon.
type dockerClient interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Ping(ctx context.Context) (types.Ping, error)
}

// New connects to the Docker daemon described by cfg and starts polling
// for containers carrying cfg.LabelPrefix discovery labels.
func New(cfg *Config, logger *slog.Logger) (*Registry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	r, err := newWithClient(cfg, cli, logger)
	if err != nil {
		cli.Close()
		return nil, err
	}
	return r, nil
}

func newWithClient(cfg *Config, cli dockerClient, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		config:   cfg,
		client:   cli,
		logger:   logger,
		byKey:    make(map[string][]rpc.Resource),
		watchers: make(map[string][]chan rpc.RegistryEvent),
		stopCh:   make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect to docker daemon: %w", err)
	}

	if err := r.refresh(context.Background()); err != nil {
		logger.Error("initial docker discovery failed", "error", err)
	}

	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 10
	}
	r.wg.Add(1)
	go r.refreshLoop(time.Duration(interval) * time.Second)

	return r, nil
}

// Close stops the background poll loop.
func (r *Registry) Close() error {
	close(r.stopCh)
	r.wg.Wait()
	return nil
}

// Check reports whether identity has any currently-discovered instance.
func (r *Registry) Check(ctx context.Context, identity rpc.ServiceIdentity) (int, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resources := r.byKey[identity.Key()]
	if len(resources) == 0 {
		return 0, false, nil
	}
	return resources[0].Port, true, nil
}

// Register is a no-op: Docker-sourced resources are discovered from
// container labels, not pushed by RPC clients.
func (r *Registry) Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return fmt.Errorf("docker registry is discovery-only, cannot register %s", identity.Key())
}

// Deregister is a no-op for the same reason Register is.
func (r *Registry) Deregister(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return fmt.Errorf("docker registry is discovery-only, cannot deregister %s", identity.Key())
}

// Subscribe delivers the current snapshot, then every diff the poll loop
// observes for identity, until ctx is canceled.
func (r *Registry) Subscribe(ctx context.Context, identity rpc.ServiceIdentity) (<-chan rpc.RegistryEvent, error) {
	key := identity.Key()
	out := make(chan rpc.RegistryEvent, 16)

	r.mu.RLock()
	snapshot := append([]rpc.Resource(nil), r.byKey[key]...)
	r.mu.RUnlock()

	r.watchMu.Lock()
	r.watchers[key] = append(r.watchers[key], out)
	r.watchMu.Unlock()

	go func() {
		for _, res := range snapshot {
			select {
			case out <- rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res}:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
		r.watchMu.Lock()
		chans := r.watchers[key]
		for i, c := range chans {
			if c == out {
				r.watchers[key] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		r.watchMu.Unlock()
		close(out)
	}()

	return out, nil
}

func (r *Registry) refreshLoop(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.refresh(context.Background()); err != nil {
				r.logger.Error("docker service refresh failed", "error", err)
			}
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filterArgs := filters.NewArgs(filters.Arg("label", r.config.LabelPrefix+".service"))
	containers, err := r.client.ContainerList(ctx, container.ListOptions{Filters: filterArgs})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	next := make(map[string][]rpc.Resource)
	for _, c := range containers {
		res, identity, ok := r.resourceFrom(c)
		if !ok {
			continue
		}
		next[identity.Key()] = append(next[identity.Key()], res)
	}

	r.mu.Lock()
	prev := r.byKey
	r.byKey = next
	r.mu.Unlock()

	r.emitDiff(prev, next)
	return nil
}

func (r *Registry) resourceFrom(c container.Summary) (rpc.Resource, rpc.ServiceIdentity, bool) {
	if c.State != "running" {
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}

	serviceName := c.Labels[r.config.LabelPrefix+".service"]
	if serviceName == "" {
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}

	portStr := c.Labels[r.config.LabelPrefix+".port"]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		r.logger.Warn("invalid port label", "container", c.ID, "port", portStr)
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}

	var ip string
	if c.NetworkSettings != nil {
		if r.config.Network != "" {
			if net, ok := c.NetworkSettings.Networks[r.config.Network]; ok {
				ip = net.IPAddress
			}
		} else {
			for _, net := range c.NetworkSettings.Networks {
				if net.IPAddress != "" {
					ip = net.IPAddress
					break
				}
			}
		}
	}
	if ip == "" {
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}

	identity := rpc.ServiceIdentity{
		Interface: serviceName,
		Version:   c.Labels[r.config.LabelPrefix+".version"],
		Group:     c.Labels[r.config.LabelPrefix+".group"],
	}

	params := make(map[string]string)
	for k, v := range c.Labels {
		if strings.HasPrefix(k, r.config.LabelPrefix+".meta.") {
			params[strings.TrimPrefix(k, r.config.LabelPrefix+".meta.")] = v
		}
	}

	return rpc.Resource{
		ServerName: serviceName,
		Category:   rpc.CategoryServer,
		Group:      identity.Group,
		Version:    identity.Version,
		IP:         ip,
		Port:       port,
		Params:     params,
	}, identity, true
}

func (r *Registry) emitDiff(prev, next map[string][]rpc.Resource) {
	for key, resources := range next {
		prevSet := indexByKey(prev[key])
		for _, res := range resources {
			if _, ok := prevSet[res.Key()]; !ok {
				r.notify(key, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res})
			}
		}
	}
	for key, resources := range prev {
		nextSet := indexByKey(next[key])
		for _, res := range resources {
			if _, ok := nextSet[res.Key()]; !ok {
				r.notify(key, rpc.RegistryEvent{Kind: rpc.EventRemoved, Resource: res})
			}
		}
	}
}

func (r *Registry) notify(key string, event rpc.RegistryEvent) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	for _, ch := range r.watchers[key] {
		select {
		case ch <- event:
		default:
		}
	}
}

func indexByKey(resources []rpc.Resource) map[string]struct{} {
	out := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		out[r.Key()] = struct{}{}
	}
	return out
}
