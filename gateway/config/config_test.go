package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gatewayd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsSecureByDefault(t *testing.T) {
	t.Setenv(SecretEnv, "dev-secret")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Auth.Enabled {
		t.Fatalf("expected auth.enabled to default to true")
	}
	if !cfg.Auth.enabledSet {
		t.Fatalf("expected auth.enabled default to mark enabledSet true")
	}
	if cfg.Auth.AllowAnonymous {
		t.Fatalf("expected auth.allowAnonymous to default to false")
	}
	if cfg.Auth.Secret() != "dev-secret" {
		t.Fatalf("expected secret from %s", SecretEnv)
	}
	if cfg.Storage.Backend != "leveldb" || cfg.Stream.Buffer != 64 {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Storage, cfg.Stream)
	}
}

func TestLoadRequiresSecretWhenAuthEnabled(t *testing.T) {
	t.Setenv(SecretEnv, "")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "hmacSecret") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadRequiresOptionalPathsWhenAllowAnonymousEnabled(t *testing.T) {
	path := writeConfig(t, "auth:\n  enabled: true\n  hmacSecret: s\n  allowAnonymous: true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected load to fail when auth.allowAnonymous is true without optional paths")
	}
}

func TestLoadRequiresExplicitAuthForTLS(t *testing.T) {
	yaml := "security:\n  tlsCertFile: /etc/gatewayd/cert.pem\n  tlsKeyFile: /etc/gatewayd/key.pem\n"
	cfg := Default()
	cfg.Auth.enabledSet = false
	cfg.Security.TLSCertFile = "/etc/gatewayd/cert.pem"
	cfg.Security.TLSKeyFile = "/etc/gatewayd/key.pem"
	if err := cfg.Validate(); !errors.Is(err, ErrAuthEnabledNotConfigured) {
		t.Fatalf("expected ErrAuthEnabledNotConfigured, got %v", err)
	}

	t.Setenv(SecretEnv, "s")
	loaded, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !loaded.Auth.Enabled {
		t.Fatalf("expected auth enabled for TLS deployment")
	}

	implicit := yaml + "auth:\n  hmacSecret: s\n"
	if _, err := Load(writeConfig(t, implicit)); !errors.Is(err, ErrAuthEnabledNotConfigured) {
		t.Fatalf("expected ErrAuthEnabledNotConfigured for auth section without enabled, got %v", err)
	}
	explicit := yaml + "auth:\n  enabled: true\n  hmacSecret: s\n"
	if _, err := Load(writeConfig(t, explicit)); err != nil {
		t.Fatalf("load explicit TLS config: %v", err)
	}
}

func TestLoadDefaultsAuthEnabledWithoutTLS(t *testing.T) {
	cfg, err := Load(writeConfig(t, "auth:\n  hmacSecret: s\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Auth.Enabled || !cfg.Auth.enabledSet {
		t.Fatalf("expected auth.enabled to default to true, got %+v", cfg.Auth)
	}
}

func TestLoadParsesRouteTokens(t *testing.T) {
	cfg, err := Load(writeConfig(t, `auth:
  enabled: false
rateLimits:
  - id: read
    requestsPerMinute: 600
    burst: 60
    defaultTokens: 1
    tokens:
      GET /v1/events/export: 20
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.RateLimits) != 1 {
		t.Fatalf("unexpected rate limits %+v", cfg.RateLimits)
	}
	limit := cfg.RateLimits[0]
	if limit.DefaultTokens != 1 || limit.Tokens["GET /v1/events/export"] != 20 {
		t.Fatalf("unexpected token costs %+v", limit)
	}
}

func TestLoadParsesDaemonFile(t *testing.T) {
	t.Setenv("KAIA_ENV", "staging")
	path := writeConfig(t, `listen: ":9090"
readTimeout: 5s
ledgerConfig: /etc/kaia/ledger.toml
storage:
  backend: BOLT
  path: /var/lib/kaia/state.db
indexer:
  driver: sqlite
  dsn: file:events.db
rateLimits:
  - id: write
    requestsPerMinute: 60
    burst: 5
cors:
  allowedOrigins: ["https://app.kaia.example"]
logging:
  file: /var/log/kaia/gatewayd.log
stream:
  buffer: 8
webhooks:
  - endpoint: https://hooks.kaia.example/ledger
    secret: hook-secret
    events: [lending.loanLiquidated]
auth:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":9090" || cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected server settings %+v", cfg)
	}
	if cfg.Storage.Backend != "bolt" || cfg.Indexer.Driver != "sqlite" {
		t.Fatalf("unexpected backends %+v %+v", cfg.Storage, cfg.Indexer)
	}
	if cfg.Auth.Enabled {
		t.Fatalf("expected auth disabled")
	}
	if cfg.Observability.Environment != "staging" {
		t.Fatalf("expected KAIA_ENV override, got %q", cfg.Observability.Environment)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].ResolveSecret() != "hook-secret" {
		t.Fatalf("unexpected webhooks %+v", cfg.Webhooks)
	}
	if cfg.Stream.Buffer != 8 || cfg.Stream.PingInterval != 30*time.Second {
		t.Fatalf("unexpected stream %+v", cfg.Stream)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]string{
		"backend":           "auth:\n  enabled: false\nstorage:\n  backend: redis\n",
		"storage path":      "auth:\n  enabled: false\nstorage:\n  backend: leveldb\n  path: ''\n",
		"indexer":           "auth:\n  enabled: false\nindexer:\n  driver: mysql\n  dsn: x\n",
		"indexer dsn":       "auth:\n  enabled: false\nindexer:\n  driver: postgres\n",
		"rate limit":        "auth:\n  enabled: false\nrateLimits:\n  - id: write\n",
		"tls pair":          "auth:\n  enabled: false\nsecurity:\n  tlsCertFile: cert.pem\n",
		"unknown field":     "auth:\n  enabled: false\nservices: []\n",
		"webhook":           "auth:\n  enabled: false\nwebhooks:\n  - endpoint: https://hooks.example\n",
		"token above burst": "auth:\n  enabled: false\nrateLimits:\n  - id: read\n    requestsPerMinute: 60\n    burst: 5\n    tokens:\n      GET /v1/events/export: 6\n",
		"token route":       "auth:\n  enabled: false\nrateLimits:\n  - id: read\n    requestsPerMinute: 60\n    burst: 5\n    tokens:\n      /v1/events/export: 2\n",
		"default tokens":    "auth:\n  enabled: false\nrateLimits:\n  - id: read\n    requestsPerMinute: 60\n    burst: 5\n    defaultTokens: 9\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected load failure")
			}
		})
	}
}
