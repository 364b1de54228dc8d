package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"kaiadefi/core"
	"kaiadefi/core/events"
	"kaiadefi/gateway/middleware"
	"kaiadefi/integrations/indexer"
)

// Rate limit buckets applied by the router.
const (
	LimitRead  = "read"
	LimitWrite = "write"
	LimitAdmin = "admin"
)

const defaultTimeout = 10 * time.Second

// EventStore serves archived ledger events.
type EventStore interface {
	Query(ctx context.Context, filter indexer.Filter) ([]indexer.EventRecord, error)
}

// StreamConfig tunes the websocket event stream.
type StreamConfig struct {
	Buffer       int
	PingInterval time.Duration
}

// Config wires the gateway router to the ledger and its middleware.
type Config struct {
	Ledger        *core.Ledger
	Bus           *events.Bus
	Indexer       EventStore
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Stream        StreamConfig
	Logger        *slog.Logger
	Timeout       time.Duration
}

type handlers struct {
	ledger  *core.Ledger
	store   EventStore
	bus     *events.Bus
	stream  StreamConfig
	logger  *slog.Logger
	timeout time.Duration
}

// New builds the gateway's HTTP handler.
func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("routes: ledger required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	authenticator := cfg.Authenticator
	if authenticator == nil {
		authenticator = middleware.NewAuthenticator(middleware.AuthConfig{}, logger)
	}
	obs := cfg.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, logger)
	}
	h := &handlers{
		ledger:  cfg.Ledger,
		store:   cfg.Indexer,
		bus:     cfg.Bus,
		stream:  cfg.Stream,
		logger:  logger,
		timeout: timeout,
	}

	limit := func(key string) func(http.Handler) http.Handler {
		if cfg.RateLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return cfg.RateLimiter.Middleware(key)
	}
	auth := authenticator.Middleware()
	operator := authenticator.Middleware(middleware.ScopeOperator)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(obs.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", obs.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit(LimitRead))
			r.Get("/status", h.status)
			r.Get("/params", h.params)
			r.Get("/events", h.listEvents)
			r.Get("/events/export", h.exportEvents)
			r.Get("/stream", h.streamEvents)
		})
		r.Route("/staking", func(r chi.Router) {
			r.Use(limit(LimitWrite))
			h.mountStaking(r, auth, operator)
		})
		r.Route("/lending", func(r chi.Router) {
			r.Use(limit(LimitWrite))
			h.mountLending(r, auth, operator)
		})
		r.Route("/bank", func(r chi.Router) {
			r.Use(limit(LimitWrite))
			h.mountBank(r, auth)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(limit(LimitAdmin))
			r.Use(operator)
			h.mountAdmin(r)
		})
	})
	return r, nil
}

func (h *handlers) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}
