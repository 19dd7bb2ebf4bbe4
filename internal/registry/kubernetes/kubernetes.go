// Package kubernetes implements a Registry backed by the Kubernetes API
// server's Service objects: instances are ClusterIP services carrying a
// fixed set of discovery annotations, kept current by a watch.
package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"gateway/internal/registry"
	"gateway/internal/rpc"
)

var _ registry.Registry = (*Registry)(nil)

const annotationPrefix = "gateway.rpc/"

// Config configures the Kubernetes API connection and which services are
// eligible for discovery.
type Config struct {
	Kubeconfig      string        `yaml:"kubeconfig"`
	Namespace       string        `yaml:"namespace"`
	LabelSelector   string        `yaml:"labelSelector"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// Registry discovers service instances from annotated Kubernetes Service
// objects, watching the API server for membership changes.
type Registry struct {
	config Config
	client kubernetes.Interface
	logger *slog.Logger

	mu       sync.RWMutex
	byKey    map[string][]rpc.Resource
	watchers map[string][]chan rpc.RegistryEvent
	watchMu  sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a client from cfg.Kubeconfig, or the in-cluster config when
// unset, and begins watching Services annotated for RPC discovery.
func New(cfg Config, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}

	restCfg, err := loadRESTConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes config: %w", err)
	}

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		config:   cfg,
		client:   client,
		logger:   logger.With("component", "kubernetes_registry"),
		byKey:    make(map[string][]rpc.Resource),
		watchers: make(map[string][]chan rpc.RegistryEvent),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := r.sync(ctx); err != nil {
		logger.Error("initial kubernetes discovery failed", "error", err)
	}

	r.wg.Add(2)
	go r.watchLoop()
	go r.resyncLoop()

	return r, nil
}

func loadRESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	return rest.InClusterConfig()
}

// Close stops the watch and resync loops.
func (r *Registry) Close() error {
	r.cancel()
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

// Register is a no-op: Kubernetes-sourced resources are discovered from
// annotated Service objects, not pushed by RPC clients.
func (r *Registry) Register(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return fmt.Errorf("kubernetes registry is discovery-only, cannot register %s", identity.Key())
}

// Deregister is a no-op for the same reason Register is.
func (r *Registry) Deregister(ctx context.Context, identity rpc.ServiceIdentity, resource rpc.Resource) error {
	return fmt.Errorf("kubernetes registry is discovery-only, cannot deregister %s", identity.Key())
}

// Subscribe delivers the current snapshot, then every diff the watch loop
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

func (r *Registry) selector() (string, error) {
	if r.config.LabelSelector == "" {
		return labels.Everything().String(), nil
	}
	sel, err := labels.Parse(r.config.LabelSelector)
	if err != nil {
		return "", fmt.Errorf("invalid label selector: %w", err)
	}
	return sel.String(), nil
}

func (r *Registry) services() corev1client {
	if r.config.Namespace != "" {
		return r.client.CoreV1().Services(r.config.Namespace)
	}
	return r.client.CoreV1().Services("")
}

type corev1client interface {
	List(ctx context.Context, opts metav1.ListOptions) (*corev1.ServiceList, error)
	Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
}

func (r *Registry) sync(ctx context.Context) error {
	selector, err := r.selector()
	if err != nil {
		return err
	}

	list, err := r.services().List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}

	next := make(map[string][]rpc.Resource)
	for _, svc := range list.Items {
		res, identity, ok := resourceFrom(&svc)
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

func (r *Registry) watchLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		selector, err := r.selector()
		if err != nil {
			r.logger.Error("invalid label selector", "error", err)
			return
		}

		watcher, err := r.services().Watch(r.ctx, metav1.ListOptions{LabelSelector: selector, Watch: true})
		if err != nil {
			r.logger.Error("failed to start service watch", "error", err)
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-r.ctx.Done():
				return
			}
		}

		r.consume(watcher)
		watcher.Stop()
	}
}

func (r *Registry) consume(watcher watch.Interface) {
	for event := range watcher.ResultChan() {
		svc, ok := event.Object.(*corev1.Service)
		if !ok {
			continue
		}

		switch event.Type {
		case watch.Added, watch.Modified:
			res, _, ok := resourceFrom(svc)
			key := serviceKey(svc)
			r.mu.Lock()
			prev := r.byKey[key]
			if ok {
				r.byKey[key] = []rpc.Resource{res}
			} else {
				delete(r.byKey, key)
			}
			r.mu.Unlock()
			r.diffOne(key, prev, r.currentKey(key))

		case watch.Deleted:
			key := serviceKey(svc)
			r.mu.Lock()
			prev := r.byKey[key]
			delete(r.byKey, key)
			r.mu.Unlock()
			for _, res := range prev {
				r.notify(key, rpc.RegistryEvent{Kind: rpc.EventRemoved, Resource: res})
			}

		case watch.Error:
			r.logger.Error("kubernetes watch error")
			return
		}
	}
}

func (r *Registry) currentKey(key string) []rpc.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]rpc.Resource(nil), r.byKey[key]...)
}

func (r *Registry) diffOne(key string, prev, next []rpc.Resource) {
	prevSet := indexByKey(prev)
	nextSet := indexByKey(next)
	for _, res := range next {
		if _, ok := prevSet[res.Key()]; !ok {
			r.notify(key, rpc.RegistryEvent{Kind: rpc.EventAdded, Resource: res})
		}
	}
	for _, res := range prev {
		if _, ok := nextSet[res.Key()]; !ok {
			r.notify(key, rpc.RegistryEvent{Kind: rpc.EventRemoved, Resource: res})
		}
	}
}

func (r *Registry) resyncLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.sync(r.ctx); err != nil {
				r.logger.Error("kubernetes resync failed", "error", err)
			}
		case <-r.ctx.Done():
			return
		}
	}
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
	for _, res := range resources {
		out[res.Key()] = struct{}{}
	}
	return out
}

func serviceKey(svc *corev1.Service) string {
	identity := rpc.ServiceIdentity{
		Interface: svc.Annotations[annotationPrefix+"interface"],
		Group:     svc.Annotations[annotationPrefix+"group"],
		Version:   svc.Annotations[annotationPrefix+"version"],
	}
	return identity.Key()
}

// resourceFrom converts an annotated, ClusterIP-bearing Service into a
// discovered resource, or reports ok=false when it carries no discovery
// annotation or has no usable address.
func resourceFrom(svc *corev1.Service) (rpc.Resource, rpc.ServiceIdentity, bool) {
	iface := svc.Annotations[annotationPrefix+"interface"]
	if iface == "" {
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}
	if svc.Spec.ClusterIP == "" || svc.Spec.ClusterIP == corev1.ClusterIPNone {
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}
	if len(svc.Spec.Ports) == 0 {
		return rpc.Resource{}, rpc.ServiceIdentity{}, false
	}

	port := int(svc.Spec.Ports[0].Port)
	if portName := svc.Annotations[annotationPrefix+"port"]; portName != "" {
		if p, err := strconv.Atoi(portName); err == nil {
			port = p
		} else {
			for _, sp := range svc.Spec.Ports {
				if sp.Name == portName {
					port = int(sp.Port)
					break
				}
			}
		}
	}

	identity := rpc.ServiceIdentity{
		Interface: iface,
		Group:     svc.Annotations[annotationPrefix+"group"],
		Version:   svc.Annotations[annotationPrefix+"version"],
	}

	params := make(map[string]string)
	for key, value := range svc.Annotations {
		if len(key) > len(annotationPrefix)+5 && key[:len(annotationPrefix)+5] == annotationPrefix+"meta." {
			params[key[len(annotationPrefix)+5:]] = value
		}
	}

	return rpc.Resource{
		ServerName: iface,
		Category:   rpc.CategoryServer,
		Group:      identity.Group,
		Version:    identity.Version,
		IP:         svc.Spec.ClusterIP,
		Port:       port,
		Params:     params,
	}, identity, true
}
