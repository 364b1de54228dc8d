package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kaiadefi/crypto"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"lending": {RequestsPerMinute: 1, Burst: 1},
	}, nil)

	handler := limiter.Middleware("lending")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/lending/loans", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on throttled response")
	}
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"lending": {RequestsPerMinute: 1, Burst: 1},
		"staking": {RequestsPerMinute: 1, Burst: 1},
	}, nil)

	lendingHandler := limiter.Middleware("lending")(okHandler())
	stakingHandler := limiter.Middleware("staking")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/lending/loans", nil)
	res := httptest.NewRecorder()
	lendingHandler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected lending request to succeed, got %d", res.Code)
	}

	stakeReq := httptest.NewRequest(http.MethodGet, "/v1/staking/nodes", nil)
	stakeRes := httptest.NewRecorder()
	stakingHandler.ServeHTTP(stakeRes, stakeReq)
	if stakeRes.Code != http.StatusOK {
		t.Fatalf("expected first staking request to succeed, got %d", stakeRes.Code)
	}

	stakeRes = httptest.NewRecorder()
	stakingHandler.ServeHTTP(stakeRes, stakeReq)
	if stakeRes.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second staking request to hit limit, got %d", stakeRes.Code)
	}
}

func TestRateLimiterAppliesRouteTokens(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"lending": {
			RequestsPerMinute: 5,
			Burst:             5,
			DefaultTokens:     1,
			Tokens: map[string]int{
				"POST /v1/lending/borrow": 3,
			},
		},
	}, nil)

	handler := limiter.Middleware("lending")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/lending/borrow", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first borrow request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second borrow request to exceed burst, got %d", res.Code)
	}

	// Remaining budget still covers a default-cost route.
	statusReq := httptest.NewRequest(http.MethodGet, "/v1/lending/pool", nil)
	statusRes := httptest.NewRecorder()
	handler.ServeHTTP(statusRes, statusReq)
	if statusRes.Code != http.StatusOK {
		t.Fatalf("expected pool route to succeed with default token cost, got %d", statusRes.Code)
	}
}

func TestRateLimiterKeysByCaller(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"lending": {RequestsPerMinute: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("lending")(okHandler())

	for _, hex := range []string{
		"0x00000000000000000000000000000000000000a1",
		"0x00000000000000000000000000000000000000b2",
	} {
		ctx := context.WithValue(context.Background(), ContextKeyCaller, crypto.MustParseAddress(hex))
		req := httptest.NewRequest(http.MethodGet, "/v1/lending/loans", nil).WithContext(ctx)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected %s to have its own budget, got %d", hex, res.Code)
		}
	}
}

func TestRateLimiterPrunesIdleVisitors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter(map[string]RateLimit{
		"lending": {RequestsPerMinute: 1, Burst: 1},
	}, nil)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("lending")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/lending/loans", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(limiter.visitors) != 1 {
		t.Fatalf("expected one visitor, got %d", len(limiter.visitors))
	}

	now = now.Add(2 * visitorTTL)
	other := httptest.NewRequest(http.MethodGet, "/v1/lending/loans", nil)
	other.Header.Set("X-Real-IP", "10.0.0.9")
	handler.ServeHTTP(httptest.NewRecorder(), other)
	if len(limiter.visitors) != 1 {
		t.Fatalf("expected idle visitor pruned, got %d entries", len(limiter.visitors))
	}
}

func TestClientIDPrefersForwardedAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.7" {
		t.Fatalf("unexpected client id %q", got)
	}
}
