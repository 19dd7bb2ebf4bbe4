package config

// Config is the top level runtime configuration.
type Config struct {
	Runtime Runtime `yaml:"runtime"`
}

// Runtime configures the ambient concerns every deployment needs: where
// the server listens, how it discovers backend instances, how its
// outbound client behaves, and how it reports traces and metrics.
type Runtime struct {
	Server    Server    `yaml:"server"`
	Registry  Registry  `yaml:"registry"`
	Client    Client    `yaml:"client"`
	Telemetry Telemetry `yaml:"telemetry"`
	Auth      Auth      `yaml:"auth"`
}

// Auth configures bearer-token validation applied to every inbound
// invocation before it reaches a handler.
type Auth struct {
	Enabled       bool   `yaml:"enabled"`
	Secret        string `yaml:"secret"`
	SigningMethod string `yaml:"signingMethod"`
	Issuer        string `yaml:"issuer,omitempty"`
}

// Telemetry configures OpenTelemetry tracing and Prometheus metrics
// exposition for the invocation pipeline.
type Telemetry struct {
	Enabled bool             `yaml:"enabled"`
	Service string           `yaml:"service"`
	Version string           `yaml:"version"`
	Tracing TelemetryTracing `yaml:"tracing"`
	Metrics TelemetryMetrics `yaml:"metrics"`
}

// TelemetryTracing configures the OTLP/HTTP trace exporter.
type TelemetryTracing struct {
	Enabled      bool              `yaml:"enabled"`
	Endpoint     string            `yaml:"endpoint"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	SampleRate   float64           `yaml:"sampleRate"`
	MaxBatchSize int               `yaml:"maxBatchSize"`
	BatchTimeout int               `yaml:"batchTimeout"`
}

// TelemetryMetrics configures the Prometheus metrics exposition endpoint.
type TelemetryMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Port    int    `yaml:"port"`
}

// Server configures the combined HTTP/1.1-or-h2c listener that serves all
// three wire protocols.
type Server struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
}

// Registry selects and configures one service-discovery backend. Exactly
// one of the nested configs is read, chosen by Type.
type Registry struct {
	Type       string            `yaml:"type"`
	Static     *StaticRegistry   `yaml:"static,omitempty"`
	WatchFile  *WatchFileConfig  `yaml:"watchFile,omitempty"`
	Redis      *RedisConfig      `yaml:"redis,omitempty"`
	Docker     *DockerConfig     `yaml:"docker,omitempty"`
	Kubernetes *KubernetesConfig `yaml:"kubernetes,omitempty"`
}

// StaticRegistry is a fixed, config-supplied instance table.
type StaticRegistry struct {
	Services []StaticService `yaml:"services"`
}

// StaticService names one service identity and its fixed instance list.
type StaticService struct {
	Interface string           `yaml:"interface"`
	Group     string           `yaml:"group"`
	Version   string           `yaml:"version"`
	Instances []StaticInstance `yaml:"instances"`
}

// StaticInstance is one statically-configured backend instance.
type StaticInstance struct {
	IP     string            `yaml:"ip"`
	Port   int               `yaml:"port"`
	Weight int               `yaml:"weight"`
	Params map[string]string `yaml:"params,omitempty"`
}

// WatchFileConfig points at a YAML instance table reloaded on every write.
type WatchFileConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the Redis-backed distributed registry.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password,omitempty"`
	DB       int      `yaml:"db"`
}

// DockerConfig configures the Docker-daemon-polling registry.
type DockerConfig struct {
	Host            string `yaml:"host"`
	APIVersion      string `yaml:"apiVersion,omitempty"`
	LabelPrefix     string `yaml:"labelPrefix"`
	Network         string `yaml:"network,omitempty"`
	RefreshInterval int    `yaml:"refreshInterval"`
}

// KubernetesConfig configures the Kubernetes-Service-watching registry.
type KubernetesConfig struct {
	Kubeconfig         string `yaml:"kubeconfig,omitempty"`
	Namespace          string `yaml:"namespace,omitempty"`
	LabelSelector      string `yaml:"labelSelector,omitempty"`
	RefreshIntervalSec int    `yaml:"refreshIntervalSec"`
}

// Client configures the invocation pipeline's default balancing strategy
// and per-call timeout.
type Client struct {
	LoadBalance    string         `yaml:"loadBalance"`
	TimeoutMS      int            `yaml:"timeoutMs"`
	CircuitBreaker CircuitBreaker `yaml:"circuitBreaker"`
	Retry          Retry          `yaml:"retry"`
}

// CircuitBreaker configures the per-service circuit breaker filter.
type CircuitBreaker struct {
	Enabled          bool    `yaml:"enabled"`
	MaxFailures      int     `yaml:"maxFailures"`
	FailureThreshold float64 `yaml:"failureThreshold"`
	TimeoutSec       int     `yaml:"timeoutSec"`
	MaxRequests      int     `yaml:"maxRequests"`
	IntervalSec      int     `yaml:"intervalSec"`
}

// Retry configures the outbound retry filter.
type Retry struct {
	Enabled         bool    `yaml:"enabled"`
	MaxAttempts     int     `yaml:"maxAttempts"`
	InitialDelayMS  int     `yaml:"initialDelayMs"`
	MaxDelayMS      int     `yaml:"maxDelayMs"`
	Multiplier      float64 `yaml:"multiplier"`
	Jitter          bool    `yaml:"jitter"`
}
