package registry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gateway/internal/config"
	"gateway/internal/registry/docker"
	"gateway/internal/registry/kubernetes"
	"gateway/internal/registry/redisreg"
	"gateway/internal/registry/static"
	"gateway/internal/registry/watchfile"
)

// New builds the concrete Registry named by cfg.Type.
func New(cfg config.Registry, logger *slog.Logger) (Registry, error) {
	registryType := cfg.Type
	if registryType == "" {
		registryType = "static"
	}

	switch registryType {
	case "static":
		return static.New(toStaticConfig(cfg.Static)), nil

	case "watchFile":
		if cfg.WatchFile == nil || cfg.WatchFile.Path == "" {
			return nil, fmt.Errorf("watchFile registry requires runtime.registry.watchFile.path")
		}
		return watchfile.New(cfg.WatchFile.Path, logger)

	case "redis":
		if cfg.Redis == nil || len(cfg.Redis.Addrs) == 0 {
			return nil, fmt.Errorf("redis registry requires runtime.registry.redis.addrs")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisreg.New(client), nil

	case "docker":
		dockerCfg := docker.DefaultConfig()
		if cfg.Docker != nil {
			dockerCfg = &docker.Config{
				Host:            cfg.Docker.Host,
				APIVersion:      cfg.Docker.APIVersion,
				LabelPrefix:     cfg.Docker.LabelPrefix,
				Network:         cfg.Docker.Network,
				RefreshInterval: cfg.Docker.RefreshInterval,
			}
			if dockerCfg.LabelPrefix == "" {
				dockerCfg.LabelPrefix = "gateway.rpc"
			}
		}
		return docker.New(dockerCfg, logger)

	case "kubernetes":
		var k8sCfg kubernetes.Config
		if cfg.Kubernetes != nil {
			k8sCfg = kubernetes.Config{
				Kubeconfig:      cfg.Kubernetes.Kubeconfig,
				Namespace:       cfg.Kubernetes.Namespace,
				LabelSelector:   cfg.Kubernetes.LabelSelector,
				RefreshInterval: time.Duration(cfg.Kubernetes.RefreshIntervalSec) * time.Second,
			}
		}
		return kubernetes.New(k8sCfg, logger)

	default:
		return nil, fmt.Errorf("unknown registry type: %q", registryType)
	}
}

func toStaticConfig(cfg *config.StaticRegistry) static.Config {
	if cfg == nil {
		return static.Config{}
	}
	out := static.Config{Services: make([]static.ServiceConfig, 0, len(cfg.Services))}
	for _, svc := range cfg.Services {
		instances := make([]static.InstanceConfig, 0, len(svc.Instances))
		for _, inst := range svc.Instances {
			instances = append(instances, static.InstanceConfig{
				IP:     inst.IP,
				Port:   inst.Port,
				Weight: inst.Weight,
				Params: inst.Params,
			})
		}
		out.Services = append(out.Services, static.ServiceConfig{
			Interface: svc.Interface,
			Group:     svc.Group,
			Version:   svc.Version,
			Instances: instances,
		})
	}
	return out
}
