package kubernetes

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"gateway/internal/rpc"
)

func annotatedService(name string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Annotations: map[string]string{
				annotationPrefix + "interface": "DemoService",
				annotationPrefix + "version":   "1.0.0",
			},
		},
		Spec: corev1.ServiceSpec{
			ClusterIP: "10.0.0.5",
			Ports:     []corev1.ServicePort{{Port: 8080}},
		},
	}
}

func TestResourceFromAnnotatedService(t *testing.T) {
	res, identity, ok := resourceFrom(annotatedService("demo"))
	if !ok {
		t.Fatal("expected resourceFrom to accept an annotated ClusterIP service")
	}
	if identity.Interface != "DemoService" || identity.Version != "1.0.0" {
		t.Errorf("identity = %+v, want Interface=DemoService Version=1.0.0", identity)
	}
	if res.IP != "10.0.0.5" || res.Port != 8080 {
		t.Errorf("resource = %+v, want IP=10.0.0.5 Port=8080", res)
	}
}

func TestResourceFromRejectsUnannotatedService(t *testing.T) {
	svc := annotatedService("demo")
	svc.Annotations = nil
	if _, _, ok := resourceFrom(svc); ok {
		t.Error("expected resourceFrom to reject a service with no discovery annotation")
	}
}

func TestResourceFromRejectsHeadlessService(t *testing.T) {
	svc := annotatedService("demo")
	svc.Spec.ClusterIP = corev1.ClusterIPNone
	if _, _, ok := resourceFrom(svc); ok {
		t.Error("expected resourceFrom to reject a headless service")
	}
}

func TestResourceFromRejectsServiceWithoutPorts(t *testing.T) {
	svc := annotatedService("demo")
	svc.Spec.Ports = nil
	if _, _, ok := resourceFrom(svc); ok {
		t.Error("expected resourceFrom to reject a service with no ports")
	}
}

func TestEmitDiffNotifiesAddedAndRemoved(t *testing.T) {
	r := &Registry{
		byKey:    make(map[string][]rpc.Resource),
		watchers: make(map[string][]chan rpc.RegistryEvent),
	}
	ch := make(chan rpc.RegistryEvent, 4)
	r.watchers["svc"] = []chan rpc.RegistryEvent{ch}

	prev := map[string][]rpc.Resource{"svc": {{IP: "10.0.0.1", Port: 80}}}
	next := map[string][]rpc.Resource{"svc": {{IP: "10.0.0.2", Port: 80}}}
	r.emitDiff(prev, next)
	close(ch)

	var kinds []rpc.RegistryEventKind
	for ev := range ch {
		kinds = append(kinds, ev.Kind)
	}
	if len(kinds) != 2 {
		t.Fatalf("got %d events, want 2 (one added, one removed)", len(kinds))
	}
}

func TestCheckReturnsDiscoveredPort(t *testing.T) {
	identity := rpc.ServiceIdentity{Interface: "DemoService", Version: "1.0.0"}
	r := &Registry{
		byKey: map[string][]rpc.Resource{
			identity.Key(): {{IP: "10.0.0.5", Port: 8080}},
		},
	}
	port, ok, err := r.Check(context.Background(), identity)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok || port != 8080 {
		t.Errorf("Check() = (%d, %v), want (8080, true)", port, ok)
	}
}

func TestRegisterAndDeregisterAreUnsupported(t *testing.T) {
	r := &Registry{byKey: make(map[string][]rpc.Resource)}
	identity := rpc.ServiceIdentity{Interface: "DemoService"}
	res := rpc.Resource{IP: "10.0.0.1", Port: 8080}

	if err := r.Register(context.Background(), identity, res); err == nil {
		t.Error("expected Register to be rejected")
	}
	if err := r.Deregister(context.Background(), identity, res); err == nil {
		t.Error("expected Deregister to be rejected")
	}
}
