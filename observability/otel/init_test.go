package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" api-key = abc ,bad, =x,tenant=kaia")
	require.Equal(t, map[string]string{"api-key": "abc", "tenant": "kaia"}, headers)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-token=1")
	cfg := Config{ServiceName: "gatewayd"}.ApplyEnv()
	require.Equal(t, "collector:4318", cfg.Endpoint)
	require.True(t, cfg.Insecure)
	require.Equal(t, "1", cfg.Headers["x-token"])

	explicit := Config{Endpoint: "otel:4318"}.ApplyEnv()
	require.Equal(t, "otel:4318", explicit.Endpoint)
}

func TestInitWithoutExporters(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)

	shutdown, err := Init(context.Background(), Config{ServiceName: "gatewayd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	require.Contains(t, Sampler(0).Description(), "AlwaysOn")
	require.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}
