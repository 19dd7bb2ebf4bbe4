package registry

import (
	"context"
	"log/slog"
	"testing"

	"gateway/internal/config"
	"gateway/internal/rpc"
)

func TestNewStaticRegistry(t *testing.T) {
	reg, err := New(config.Registry{
		Type: "static",
		Static: &config.StaticRegistry{
			Services: []config.StaticService{
				{
					Interface: "com.example.DemoService",
					Instances: []config.StaticInstance{
						{IP: "127.0.0.1", Port: 8080},
					},
				},
			},
		},
	}, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	identity := rpc.ServiceIdentity{Interface: "com.example.DemoService"}
	port, ok, err := reg.Check(context.Background(), identity)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok || port != 8080 {
		t.Fatalf("Check() = (%d, %v), want (8080, true)", port, ok)
	}
}

func TestNewDefaultsToStaticWhenTypeEmpty(t *testing.T) {
	reg, err := New(config.Registry{
		Static: &config.StaticRegistry{
			Services: []config.StaticService{
				{Interface: "com.example.DemoService", Instances: []config.StaticInstance{{IP: "10.0.0.1", Port: 9090}}},
			},
		},
	}, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, ok, err := reg.Check(context.Background(), rpc.ServiceIdentity{Interface: "com.example.DemoService"})
	if err != nil || !ok {
		t.Fatalf("Check() = (_, %v, %v), want (_, true, nil)", ok, err)
	}
}

func TestNewUnknownRegistryType(t *testing.T) {
	_, err := New(config.Registry{Type: "unknown"}, slog.Default())
	if err == nil {
		t.Fatal("expected error for unknown registry type")
	}
}

func TestNewRedisRegistryRequiresAddrs(t *testing.T) {
	_, err := New(config.Registry{Type: "redis"}, slog.Default())
	if err == nil {
		t.Fatal("expected error when redis registry has no addrs")
	}
}

func TestNewWatchFileRegistryRequiresPath(t *testing.T) {
	_, err := New(config.Registry{Type: "watchFile"}, slog.Default())
	if err == nil {
		t.Fatal("expected error when watchFile registry has no path")
	}
}
