package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"gateway/internal/app"
	"gateway/internal/circuitbreaker"
	"gateway/internal/config"
	"gateway/internal/filter"
	"gateway/internal/registry"
	"gateway/internal/retry"
	"gateway/internal/route/balancer"
	"gateway/internal/server"
	"gateway/internal/telemetry"
)

var (
	configFile = flag.String("config", "configs/gateway.yaml", "config file path")
	logLevel   = flag.String("log-level", "info", "log level")
)

func main() {
	flag.Parse()

	setupLogging(*logLevel)
	logger := slog.Default()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg.Runtime.Registry, logger)
	if err != nil {
		logger.Error("failed to create registry", "error", err)
		os.Exit(1)
	}

	bal, ok := balancer.Lookup(cfg.Runtime.Client.LoadBalance)
	if !ok {
		bal, _ = balancer.Lookup("round_robin")
	}

	builder := app.NewBuilder(reg).
		WithLogger(logger).
		WithServerConfig(server.Config{
			Host:         cfg.Runtime.Server.Host,
			Port:         cfg.Runtime.Server.Port,
			ReadTimeout:  time.Duration(cfg.Runtime.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Runtime.Server.WriteTimeout) * time.Second,
		}).
		WithBalancer(bal).
		WithFilter(filter.Recovery(logger)).
		WithFilter(filter.Logging(logger))

	if cfg.Runtime.Auth.Enabled {
		builder = builder.WithFilter(filter.JWTAuth(filter.JWTAuthConfig{
			Secret:        cfg.Runtime.Auth.Secret,
			SigningMethod: cfg.Runtime.Auth.SigningMethod,
			Issuer:        cfg.Runtime.Auth.Issuer,
		}))
	}

	if cfg.Runtime.Client.CircuitBreaker.Enabled {
		cbCfg := cfg.Runtime.Client.CircuitBreaker
		builder = builder.WithFilter(filter.CircuitBreaker(circuitbreaker.Config{
			MaxFailures:      cbCfg.MaxFailures,
			FailureThreshold: cbCfg.FailureThreshold,
			Timeout:          time.Duration(cbCfg.TimeoutSec) * time.Second,
			MaxRequests:      cbCfg.MaxRequests,
			Interval:         time.Duration(cbCfg.IntervalSec) * time.Second,
		}))
	}

	if cfg.Runtime.Client.Retry.Enabled {
		retryCfg := cfg.Runtime.Client.Retry
		builder = builder.WithFilter(filter.Retry(retry.Config{
			MaxAttempts:  retryCfg.MaxAttempts,
			InitialDelay: time.Duration(retryCfg.InitialDelayMS) * time.Millisecond,
			MaxDelay:     time.Duration(retryCfg.MaxDelayMS) * time.Millisecond,
			Multiplier:   retryCfg.Multiplier,
			Jitter:       retryCfg.Jitter,
			RetryableFunc: retry.DefaultRetryableFunc,
		}))
	}

	var telemetryShutdown func(context.Context) error
	if cfg.Runtime.Telemetry.Enabled {
		tel, metrics, err := setupTelemetry(cfg.Runtime.Telemetry)
		if err != nil {
			logger.Error("failed to initialize telemetry", "error", err)
			os.Exit(1)
		}
		builder = builder.WithFilter(telemetry.NewMiddleware(tel, metrics).Filter())
		telemetryShutdown = tel.Shutdown
	}

	ctxApp := builder.Build()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := ctxApp.Server.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := ctxApp.Server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server", "error", err)
	}

	if telemetryShutdown != nil {
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down telemetry", "error", err)
		}
	}
}

func setupTelemetry(cfg config.Telemetry) (*telemetry.Telemetry, *telemetry.Metrics, error) {
	tel, err := telemetry.New(telemetry.Config{
		Enabled: cfg.Enabled,
		Service: cfg.Service,
		Version: cfg.Version,
		Tracing: telemetry.TracingConfig{
			Enabled:      cfg.Tracing.Enabled,
			Endpoint:     cfg.Tracing.Endpoint,
			Headers:      cfg.Tracing.Headers,
			SampleRate:   cfg.Tracing.SampleRate,
			MaxBatchSize: cfg.Tracing.MaxBatchSize,
			BatchTimeout: cfg.Tracing.BatchTimeout,
		},
		Metrics: telemetry.MetricsConfig{
			Enabled: cfg.Metrics.Enabled,
			Path:    cfg.Metrics.Path,
			Port:    cfg.Metrics.Port,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	metrics, err := tel.NewMetrics()
	if err != nil {
		return nil, nil, err
	}
	return tel, metrics, nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func setupLogging(level string) {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	if _, err := os.Stat(path); err != nil {
		return config.LoadDefault()
	}
	return config.NewLoader(path).Load()
}
