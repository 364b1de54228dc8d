package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig sizes one route group's token bucket. Tokens maps
// "METHOD /path" to the tokens a single request spends; other requests
// spend DefaultTokens, or one when unset.
type RateLimitConfig struct {
	ID                string         `yaml:"id"`
	RequestsPerMinute float64        `yaml:"requestsPerMinute"`
	Burst             int            `yaml:"burst"`
	DefaultTokens     int            `yaml:"defaultTokens"`
	Tokens            map[string]int `yaml:"tokens"`
}

type ObservabilityConfig struct {
	ServiceName   string            `yaml:"serviceName"`
	Environment   string            `yaml:"environment"`
	Metrics       bool              `yaml:"metrics"`
	Tracing       bool              `yaml:"tracing"`
	LogRequests   bool              `yaml:"logRequests"`
	MetricsPrefix string            `yaml:"metricsPrefix"`
	OTLPEndpoint  string            `yaml:"otlpEndpoint"`
	OTLPInsecure  bool              `yaml:"otlpInsecure"`
	OTLPHeaders   map[string]string `yaml:"otlpHeaders"`
	SampleRatio   float64           `yaml:"sampleRatio"`
}

// StorageConfig selects the key-value backend holding ledger state.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// IndexerConfig selects the SQL database that archives committed events.
// An empty driver disables the indexer.
type IndexerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

// WebhookConfig forwards committed events to an external endpoint. An empty
// Events list forwards every event type.
type WebhookConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Secret    string   `yaml:"secret"`
	SecretEnv string   `yaml:"secretEnv"`
	Events    []string `yaml:"events"`
}

// ResolveSecret prefers the environment variable named by SecretEnv.
func (w WebhookConfig) ResolveSecret() string {
	if env := strings.TrimSpace(w.SecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(w.Secret)
}

// StreamConfig tunes the websocket event stream.
type StreamConfig struct {
	Buffer       int           `yaml:"buffer"`
	PingInterval time.Duration `yaml:"pingInterval"`
}

type Config struct {
	ListenAddress string              `yaml:"listen"`
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	LedgerConfig  string              `yaml:"ledgerConfig"`
	Storage       StorageConfig       `yaml:"storage"`
	Indexer       IndexerConfig       `yaml:"indexer"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	CORS          CORSConfig          `yaml:"cors"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
	Stream        StreamConfig        `yaml:"stream"`
	Webhooks      []WebhookConfig     `yaml:"webhooks"`
	Auth          AuthConfig          `yaml:"auth"`
	Security      SecurityConfig      `yaml:"security"`
}

type AuthConfig struct {
	Enabled           bool          `yaml:"enabled"`
	HMACSecret        string        `yaml:"hmacSecret"`
	HMACSecretEnv     string        `yaml:"hmacSecretEnv"`
	Issuer            string        `yaml:"issuer"`
	Audience          string        `yaml:"audience"`
	ScopeClaim        string        `yaml:"scopeClaim"`
	OptionalPaths     []string      `yaml:"optionalPaths"`
	AllowAnonymous    bool          `yaml:"allowAnonymous"`
	ClockSkew         time.Duration `yaml:"clockSkew"`
	allowAnonymousSet bool          `yaml:"-"`
	enabledSet        bool          `yaml:"-"`
}

func (a *AuthConfig) UnmarshalYAML(node *yaml.Node) error {
	type rawAuthConfig struct {
		Enabled        *bool         `yaml:"enabled"`
		HMACSecret     string        `yaml:"hmacSecret"`
		HMACSecretEnv  string        `yaml:"hmacSecretEnv"`
		Issuer         string        `yaml:"issuer"`
		Audience       string        `yaml:"audience"`
		ScopeClaim     string        `yaml:"scopeClaim"`
		OptionalPaths  []string      `yaml:"optionalPaths"`
		AllowAnonymous *bool         `yaml:"allowAnonymous"`
		ClockSkew      time.Duration `yaml:"clockSkew"`
	}
	var raw rawAuthConfig
	if err := node.Decode(&raw); err != nil {
		return err
	}
	a.enabledSet = raw.Enabled != nil
	a.Enabled = raw.Enabled != nil && *raw.Enabled
	a.HMACSecret = raw.HMACSecret
	a.HMACSecretEnv = raw.HMACSecretEnv
	a.Issuer = raw.Issuer
	a.Audience = raw.Audience
	a.ScopeClaim = raw.ScopeClaim
	a.OptionalPaths = raw.OptionalPaths
	a.allowAnonymousSet = raw.AllowAnonymous != nil
	a.AllowAnonymous = raw.AllowAnonymous != nil && *raw.AllowAnonymous
	a.ClockSkew = raw.ClockSkew
	return nil
}

// Secret resolves the signing secret, preferring the environment variable
// named by HMACSecretEnv.
func (a AuthConfig) Secret() string {
	if env := strings.TrimSpace(a.HMACSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

// SecretEnv is the default variable holding the JWT signing secret.
const SecretEnv = "KAIA_GATEWAY_JWT_SECRET"

type SecurityConfig struct {
	TLSCertFile string `yaml:"tlsCertFile"`
	TLSKeyFile  string `yaml:"tlsKeyFile"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		ListenAddress: ":8080",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   120 * time.Second,
		LedgerConfig:  "./kaia-data/ledger.toml",
		Storage:       StorageConfig{Backend: "leveldb", Path: "./kaia-data/state"},
		Observability: ObservabilityConfig{
			ServiceName:   "kaia-gatewayd",
			Metrics:       true,
			Tracing:       false,
			LogRequests:   true,
			MetricsPrefix: "gateway",
		},
		Logging: LoggingConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Stream:  StreamConfig{Buffer: 64, PingInterval: 30 * time.Second},
		Auth: AuthConfig{
			Enabled:        true,
			HMACSecretEnv:  SecretEnv,
			ScopeClaim:     "scope",
			AllowAnonymous: false,
			ClockSkew:      2 * time.Minute,
			enabledSet:     true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		cfg.normalize()
		if err := cfg.Validate(); err != nil {
			return Config{}, fmt.Errorf("validate config: %w", err)
		}
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	def := Default()
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	cfg.Indexer.Driver = strings.ToLower(strings.TrimSpace(cfg.Indexer.Driver))
	if cfg.Stream.Buffer <= 0 {
		cfg.Stream.Buffer = def.Stream.Buffer
	}
	if cfg.Stream.PingInterval <= 0 {
		cfg.Stream.PingInterval = def.Stream.PingInterval
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = def.Observability.ServiceName
	}
	if strings.TrimSpace(cfg.Observability.MetricsPrefix) == "" {
		cfg.Observability.MetricsPrefix = def.Observability.MetricsPrefix
	}
	if env := strings.TrimSpace(os.Getenv("KAIA_ENV")); env != "" {
		cfg.Observability.Environment = env
	}
	// TLS deployments must state auth.enabled themselves.
	if !cfg.Auth.enabledSet && !cfg.isSensitiveDeployment() {
		cfg.Auth.Enabled = true
		cfg.Auth.enabledSet = true
	}
	if cfg.Auth.HMACSecret == "" && cfg.Auth.HMACSecretEnv == "" {
		cfg.Auth.HMACSecretEnv = SecretEnv
	}
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = 2 * time.Minute
	}
	if cfg.Auth.ScopeClaim == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if !cfg.Auth.allowAnonymousSet {
		cfg.Auth.AllowAnonymous = false
	}
}

var ErrAuthEnabledNotConfigured = errors.New("auth.enabled must be explicitly set for sensitive deployments")

func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.isSensitiveDeployment() && !cfg.Auth.enabledSet {
		return ErrAuthEnabledNotConfigured
	}
	if cfg.Auth.AllowAnonymous && !cfg.Auth.allowAnonymousSet {
		return fmt.Errorf("auth.allowAnonymous must be explicitly set to true to enable anonymous access")
	}
	trimmed := make([]string, len(cfg.Auth.OptionalPaths))
	for i, path := range cfg.Auth.OptionalPaths {
		trimmedPath := strings.TrimSpace(path)
		if trimmedPath == "" {
			return fmt.Errorf("auth.optionalPaths[%d] cannot be empty", i)
		}
		if !strings.HasPrefix(trimmedPath, "/") {
			return fmt.Errorf("auth.optionalPaths[%d] must start with '/'", i)
		}
		trimmed[i] = trimmedPath
	}
	cfg.Auth.OptionalPaths = trimmed
	if cfg.Auth.Enabled && cfg.Auth.AllowAnonymous && len(cfg.Auth.OptionalPaths) == 0 {
		return fmt.Errorf("auth.optionalPaths must list at least one entry when auth.allowAnonymous is true")
	}
	if cfg.Auth.Enabled && cfg.Auth.Secret() == "" {
		return fmt.Errorf("auth.hmacSecret or auth.hmacSecretEnv required when auth is enabled")
	}
	switch cfg.Storage.Backend {
	case "memory":
	case "leveldb", "bolt":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path required for %s backend", cfg.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage.backend %q not supported", cfg.Storage.Backend)
	}
	switch cfg.Indexer.Driver {
	case "":
	case "postgres", "sqlite":
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer.dsn required for %s driver", cfg.Indexer.Driver)
		}
	default:
		return fmt.Errorf("indexer.driver %q not supported", cfg.Indexer.Driver)
	}
	seen := make(map[string]struct{}, len(cfg.RateLimits))
	for i, limit := range cfg.RateLimits {
		id := strings.TrimSpace(limit.ID)
		if id == "" {
			return fmt.Errorf("rateLimits[%d].id required", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("rateLimits[%d].id %q duplicated", i, id)
		}
		seen[id] = struct{}{}
		if limit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rateLimits[%d].requestsPerMinute must be positive", i)
		}
		burst := max(limit.Burst, 1)
		if limit.DefaultTokens < 0 || limit.DefaultTokens > burst {
			return fmt.Errorf("rateLimits[%d].defaultTokens must be within [0, %d]", i, burst)
		}
		for route, tokens := range limit.Tokens {
			method, path, ok := strings.Cut(route, " ")
			if !ok || method == "" || !strings.HasPrefix(path, "/") {
				return fmt.Errorf("rateLimits[%d].tokens key %q must look like \"METHOD /path\"", i, route)
			}
			if tokens <= 0 || tokens > burst {
				return fmt.Errorf("rateLimits[%d].tokens[%q] must be within [1, %d]", i, route, burst)
			}
		}
	}
	for i, hook := range cfg.Webhooks {
		if strings.TrimSpace(hook.Endpoint) == "" {
			return fmt.Errorf("webhooks[%d].endpoint required", i)
		}
		if hook.ResolveSecret() == "" {
			return fmt.Errorf("webhooks[%d] requires secret or secretEnv", i)
		}
	}
	if (cfg.Security.TLSCertFile == "") != (cfg.Security.TLSKeyFile == "") {
		return fmt.Errorf("security.tlsCertFile and security.tlsKeyFile must be set together")
	}
	if ratio := cfg.Observability.SampleRatio; ratio < 0 || ratio > 1 {
		return fmt.Errorf("observability.sampleRatio must be within [0, 1]")
	}
	return nil
}

func (cfg *Config) isSensitiveDeployment() bool {
	if cfg == nil {
		return false
	}
	if strings.TrimSpace(cfg.Security.TLSCertFile) != "" {
		return true
	}
	if strings.TrimSpace(cfg.Security.TLSKeyFile) != "" {
		return true
	}
	return false
}

// IsDev reports whether the deployment runs in the dev environment.
func (cfg Config) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(cfg.Observability.Environment), "dev")
}
