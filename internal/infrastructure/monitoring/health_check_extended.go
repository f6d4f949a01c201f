package monitoring

import (
	"context"
	"fmt"
	"time"

	"boardchat/internal/core/ports"
	"boardchat/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
)

// AddRedisCheck adds a Redis health check
func (h *HealthChecker) AddRedisCheck(client *redis.Client, interval, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) (bool, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddRepositoryCheck probes the channel repository with a cheap read.
func (h *HealthChecker) AddRepositoryCheck(repo ports.ChannelRepository, interval, timeout time.Duration) {
	h.AddCheck("repository", func(ctx context.Context) (bool, error) {
		if _, err := repo.ListByBoard(ctx, "__health__"); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// AddCircuitBreakerCheck reports unhealthy while the store breaker is open.
func (h *HealthChecker) AddCircuitBreakerCheck(state func() circuitbreaker.State, interval, timeout time.Duration) {
	h.AddCheck("store_circuit_breaker", func(ctx context.Context) (bool, error) {
		if s := state(); s == circuitbreaker.StateOpen {
			return false, fmt.Errorf("circuit breaker is %s", s)
		}
		return true, nil
	}, interval, timeout)
}

// IsReady checks if the service is ready to accept traffic
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == "healthy"
}
