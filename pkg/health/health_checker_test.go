package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/kv"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/observability"
)

func newTestChecker() *HealthChecker {
	return NewHealthChecker(observability.NewNoopLogger(), observability.NewNoOpMetricsClient())
}

func TestHealthChecker_RunChecksAllHealthy(t *testing.T) {
	h := newTestChecker()
	h.RegisterCheck("ok-a", NewServiceHealthCheck("ok-a", func(ctx context.Context) error { return nil }))
	h.RegisterCheck("ok-b", NewServiceHealthCheck("ok-b", func(ctx context.Context) error { return nil }))

	results := h.RunChecks(context.Background())

	require.Len(t, results, 2)
	for _, check := range results {
		assert.Equal(t, StatusHealthy, check.Status)
	}
	assert.True(t, h.IsHealthy())
}

func TestHealthChecker_RunChecksOneUnhealthy(t *testing.T) {
	h := newTestChecker()
	h.RegisterCheck("ok", NewServiceHealthCheck("ok", func(ctx context.Context) error { return nil }))
	h.RegisterCheck("bad", NewServiceHealthCheck("bad", func(ctx context.Context) error {
		return errors.New("dependency unreachable")
	}))

	results := h.RunChecks(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, StatusHealthy, results["ok"].Status)
	assert.Equal(t, StatusUnhealthy, results["bad"].Status)
	assert.Equal(t, "dependency unreachable", results["bad"].Message)
	assert.False(t, h.IsHealthy())
}

func TestHealthChecker_CheckTimeoutMarksUnhealthy(t *testing.T) {
	h := newTestChecker()
	h.timeout = 20 * time.Millisecond
	h.RegisterCheck("slow", NewServiceHealthCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	results := h.RunChecks(context.Background())

	assert.Equal(t, StatusUnhealthy, results["slow"].Status)
}

func TestHealthChecker_GetAggregatedHealth(t *testing.T) {
	h := newTestChecker()
	h.RegisterCheck("bad", NewServiceHealthCheck("bad", func(ctx context.Context) error {
		return errors.New("boom")
	}))
	h.RunChecks(context.Background())

	aggregated := h.GetAggregatedHealth()

	assert.Equal(t, StatusUnhealthy, aggregated.Status)
	assert.Contains(t, aggregated.Message, "1 components unhealthy")
	assert.Len(t, aggregated.Checks, 1)
}

func TestKVHealthCheck_RoundTripsCanaryKey(t *testing.T) {
	store := kv.NewMemoryStore()
	defer store.Close()

	check := NewKVHealthCheck("kv", store)
	assert.NoError(t, check.Check(context.Background()))
}
