// Package watchfile implements a Registry backed by a YAML file on disk,
// re-read on every fsnotify write event so subscribers see updates without
// a restart.
package watchfile

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"gateway/internal/registry"
	"gateway/internal/registry/static"
	"gateway/internal/rpc"
)

var _ registry.Registry = (*Registry)(nil)

// Registry serves instance tables parsed from a YAML file, refreshing its
// in-memory snapshot whenever the file changes on disk.
type Registry struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot *static.Registry

	watcher     *fsnotify.Watcher
	subscribers map[string][]chan rpc.RegistryEvent
	subMu       sync.Mutex
}

// New opens path, loads its initial content, and starts a watch on it.
// Callers must call Close when done watching.
func New(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{path: path, logger: logger, subscribers: make(map[string][]chan rpc.RegistryEvent)}

	if err := r.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}
	r.watcher = watcher

	go r.watchLoop()
	return r, nil
}

// Close stops the filesystem watch.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var cfg static.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	r.mu.Lock()
	r.snapshot = static.New(cfg)
	r.mu.Unlock()
	return nil
}

func (r *Registry) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Error("reload registry file", "path", r.path, "error", err)
				continue
			}
			r.broadcast()
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("watch registry file", "path", r.path, "error", err)
		}
	}
}

// broadcast wakes every active Subscribe goroutine so it re-reads the
// fresh snapshot for its own identity.
func (r *Registry) broadcast() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, chans := range r.subscribers {
		for _, ch := range chans {
			select {
			case ch <- rpc.RegistryEvent{}:
			default:
			}
		}
	}
}

// Check delegates to the current snapshot.
func (r *Registry) Check(ctx context.Context, identity rpc.ServiceIdentity) (int, bool, error) {
	r.mu.RLock()
	snapshot := r.snapshot
	r.mu.RUnlock()
	return snapshot.Check(ctx, identity)
}

// Register delegates to the current snapshot; it does not persist the
// addition back to the watched file.
func (r *Registry) Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	r.mu.RLock()
	snapshot := r.snapshot
	r.mu.RUnlock()
	return snapshot.Register(ctx, identity, resource)
}

// Deregister delegates to the current snapshot; it does not persist the
// removal back to the watched file.
func (r *Registry) Deregister(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	r.mu.RLock()
	snapshot := r.snapshot
	r.mu.RUnlock()
	return snapshot.Deregister(ctx, identity, resource)
}

// Subscribe delivers the current snapshot, then a fresh snapshot every
// time the watched file changes, until ctx is canceled.
func (r *Registry) Subscribe(ctx context.Context, identity rpc.ServiceIdentity) (<-chan rpc.RegistryEvent, error) {
	out := make(chan rpc.RegistryEvent, 16)
	key := identity.Key()

	r.mu.RLock()
	snapshot := r.snapshot
	r.mu.RUnlock()

	initial, err := snapshot.Subscribe(ctx, identity)
	if err != nil {
		return nil, err
	}
	go func() {
		for ev := range initial {
			out <- ev
		}
	}()

	refresh := make(chan rpc.RegistryEvent, 1)
	r.subMu.Lock()
	r.subscribers[key] = append(r.subscribers[key], refresh)
	r.subMu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				r.removeSubscriber(key, refresh)
				return
			case <-refresh:
				r.mu.RLock()
				current := r.snapshot
				r.mu.RUnlock()
				events, err := current.Subscribe(ctx, identity)
				if err != nil {
					continue
				}
				for ev := range events {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

func (r *Registry) removeSubscriber(key string, ch chan rpc.RegistryEvent) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	chans := r.subscribers[key]
	for i, c := range chans {
		if c == ch {
			r.subscribers[key] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
}
