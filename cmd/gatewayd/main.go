package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	ledgerconfig "kaiadefi/config"
	"kaiadefi/core"
	"kaiadefi/core/events"
	"kaiadefi/core/state"
	"kaiadefi/gateway/config"
	"kaiadefi/gateway/middleware"
	"kaiadefi/gateway/routes"
	"kaiadefi/integrations/indexer"
	"kaiadefi/integrations/webhooks"
	"kaiadefi/observability"
	"kaiadefi/observability/logging"
	"kaiadefi/observability/metrics"
	telemetry "kaiadefi/observability/otel"
	"kaiadefi/storage"
)

func main() {
	var cfgPath string
	var allowInsecureFlag bool
	flag.StringVar(&cfgPath, "config", "", "path to gateway configuration")
	flag.BoolVar(&allowInsecureFlag, "allow-insecure", false, "DEV ONLY: permit plaintext listeners outside loopback")
	flag.Parse()

	if err := run(cfgPath, allowInsecureFlag); err != nil {
		fmt.Fprintf(os.Stderr, "gatewayd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, allowInsecure bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Observability.Environment

	logger, logCloser := logging.SetupWithOptions(logging.Options{
		Service:    cfg.Observability.ServiceName,
		Env:        env,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()
	logger.Info("gateway configured", configAttrs(cfg)...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Tracing {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: cfg.Observability.ServiceName,
			Environment: env,
			Endpoint:    cfg.Observability.OTLPEndpoint,
			Insecure:    cfg.Observability.OTLPInsecure,
			Headers:     cfg.Observability.OTLPHeaders,
			Traces:      true,
			Metrics:     cfg.Observability.Metrics,
			SampleRatio: cfg.Observability.SampleRatio,
		}.ApplyEnv())
		if err != nil {
			return fmt.Errorf("initialise telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTelemetry(shutdownCtx)
		}()
	}

	ledgerCfg, err := ledgerconfig.Load(resolvePath(cfgPath, cfg.LedgerConfig))
	if err != nil {
		return fmt.Errorf("load ledger config: %w", err)
	}
	params, err := ledgerCfg.Params()
	if err != nil {
		return err
	}
	genesis, err := ledgerCfg.ToGenesis()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Storage.Backend, resolvePath(cfgPath, cfg.Storage.Path))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	bus := events.NewBus()
	bus.Attach(observability.Events())

	var store routes.EventStore
	if cfg.Indexer.Driver != "" {
		idx, err := indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN, logger)
		if err != nil {
			_ = db.Close()
			return err
		}
		defer idx.Close()
		bus.Attach(idx)
		store = idx
	}

	for _, hook := range cfg.Webhooks {
		dispatcher, err := webhooks.NewDispatcher(hook.Endpoint, []byte(hook.ResolveSecret()),
			webhooks.WithEventTypes(hook.Events...),
			webhooks.WithLogger(logger),
		)
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("webhook %s: %w", hook.Endpoint, err)
		}
		defer dispatcher.Close()
		bus.Attach(dispatcher)
	}

	ledger, err := core.NewLedger(state.NewManager(db), params, core.Options{
		Logger:  logger,
		Emitter: bus,
		Metrics: metrics.Ledger(),
	})
	if err != nil {
		_ = db.Close()
		return err
	}
	defer ledger.Close()

	applied, err := ledger.InitGenesis(ctx, genesis)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if applied {
		logger.Info("genesis applied", slog.String("operator", genesis.Operator.Hex()))
	}

	router, err := routes.New(routes.Config{
		Ledger:  ledger,
		Bus:     bus,
		Indexer: store,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:        cfg.Auth.Enabled,
			HMACSecret:     cfg.Auth.Secret(),
			Issuer:         cfg.Auth.Issuer,
			Audience:       cfg.Auth.Audience,
			ScopeClaim:     cfg.Auth.ScopeClaim,
			OptionalPaths:  cfg.Auth.OptionalPaths,
			AllowAnonymous: cfg.Auth.AllowAnonymous,
			ClockSkew:      cfg.Auth.ClockSkew,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(rateLimits(cfg.RateLimits), logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName:   cfg.Observability.ServiceName,
			MetricsPrefix: cfg.Observability.MetricsPrefix,
			LogRequests:   cfg.Observability.LogRequests,
			Enabled:       cfg.Observability.Metrics || cfg.Observability.Tracing,
		}, logger),
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.HeaderCaller},
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
		Stream: routes.StreamConfig{Buffer: cfg.Stream.Buffer, PingInterval: cfg.Stream.PingInterval},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("configure routes: %w", err)
	}

	tlsConfig, err := buildTLSConfig(cfgPath, cfg.Security)
	if err != nil {
		return fmt.Errorf("configure TLS: %w", err)
	}
	if tlsConfig == nil && !cfg.IsDev() && !allowInsecure && !isLoopbackAddress(cfg.ListenAddress) {
		return errors.New("plaintext gateway mode is restricted to loopback listeners or dev environment; configure security.tlsCertFile/tlsKeyFile")
	}

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    tlsConfig,
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		scheme := "http"
		if tlsConfig != nil {
			scheme = "https"
			listener = tls.NewListener(listener, tlsConfig)
		}
		logger.Info("gateway listening", slog.String("address", scheme+"://"+listener.Addr().String()))
		serveErr <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("gateway stopped", slog.Uint64("droppedStreamEvents", bus.Dropped()))
	return nil
}

// configAttrs summarises the resolved configuration with secrets masked.
func configAttrs(cfg config.Config) []any {
	hooks := make([]any, 0, len(cfg.Webhooks))
	for i, hook := range cfg.Webhooks {
		hooks = append(hooks, slog.Group(strconv.Itoa(i),
			logging.MaskField("endpoint", hook.Endpoint),
			logging.MaskField("secret", hook.ResolveSecret()),
		))
	}
	return []any{
		logging.MaskField("listen", cfg.ListenAddress),
		slog.Group("storage",
			logging.MaskField("backend", cfg.Storage.Backend),
			logging.MaskField("path", cfg.Storage.Path),
		),
		slog.Group("indexer",
			logging.MaskField("driver", cfg.Indexer.Driver),
			logging.MaskField("dsn", logging.RedactDSN(cfg.Indexer.DSN)),
		),
		slog.Group("auth",
			slog.Bool("enabled", cfg.Auth.Enabled),
			logging.MaskField("hmacSecret", cfg.Auth.Secret()),
		),
		slog.Group("webhooks", hooks...),
	}
}

// rateLimits converts the configured buckets, falling back to defaults for
// the read, write and admin route groups.
func rateLimits(entries []config.RateLimitConfig) map[string]middleware.RateLimit {
	limits := map[string]middleware.RateLimit{
		routes.LimitRead:  {RequestsPerMinute: 600, Burst: 60},
		routes.LimitWrite: {RequestsPerMinute: 120, Burst: 20},
		routes.LimitAdmin: {RequestsPerMinute: 30, Burst: 5},
	}
	for _, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			continue
		}
		limits[id] = middleware.RateLimit{
			RequestsPerMinute: entry.RequestsPerMinute,
			Burst:             entry.Burst,
			DefaultTokens:     entry.DefaultTokens,
			Tokens:            entry.Tokens,
		}
	}
	return limits
}

func buildTLSConfig(cfgPath string, sec config.SecurityConfig) (*tls.Config, error) {
	certPath := resolvePath(cfgPath, sec.TLSCertFile)
	keyPath := resolvePath(cfgPath, sec.TLSKeyFile)
	if certPath == "" && keyPath == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

// resolvePath interprets relative paths against the gateway config's
// directory.
func resolvePath(cfgPath, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) || strings.TrimSpace(cfgPath) == "" {
		return trimmed
	}
	return filepath.Join(filepath.Dir(cfgPath), trimmed)
}

func isLoopbackAddress(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	host = strings.TrimSpace(host)
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
