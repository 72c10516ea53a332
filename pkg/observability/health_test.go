package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("healthy when every dependency answers", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("postgres", DependencyChecker("postgres", HealthStatusUnhealthy, ok))
		r.Register("redis", DependencyChecker("redis", HealthStatusDegraded, ok))

		health := r.GetOverallHealth(context.Background())

		assert.Equal(t, HealthStatusHealthy, health.Status)
		assert.Len(t, health.Checks, 2)
	})

	t.Run("degraded for a non critical dependency", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("postgres", DependencyChecker("postgres", HealthStatusUnhealthy, ok))
		r.Register("opensearch", DependencyChecker("opensearch", HealthStatusDegraded, down))

		health := r.GetOverallHealth(context.Background())

		assert.Equal(t, HealthStatusDegraded, health.Status)
		assert.Contains(t, health.Checks["opensearch"].Message, "connection refused")
	})

	t.Run("unhealthy wins", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("postgres", DependencyChecker("postgres", HealthStatusUnhealthy, down))
		r.Register("nats", DependencyChecker("nats", HealthStatusDegraded, down))

		r.Check(context.Background())

		assert.Equal(t, HealthStatusUnhealthy, r.OverallStatus())
	})

	t.Run("check one", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("rabbitmq", DependencyChecker("rabbitmq", HealthStatusDegraded, ok))

		result, found := r.CheckOne(context.Background(), "rabbitmq")
		require.True(t, found)
		assert.Equal(t, HealthStatusHealthy, result.Status)

		_, found = r.CheckOne(context.Background(), "missing")
		assert.False(t, found)
	})
}
