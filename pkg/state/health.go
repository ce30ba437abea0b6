// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// HealthChecker pings the Redis and SQLite backends.
type HealthChecker struct {
	client redis.UniversalClient
	store  *Store
}

// NewHealthChecker creates a new health checker. Either backend may be nil.
func NewHealthChecker(client redis.UniversalClient, store *Store) *HealthChecker {
	return &HealthChecker{client: client, store: store}
}

// Check pings every configured backend.
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if h.client != nil {
		if _, err := h.client.Ping(ctx).Result(); err != nil {
			logrus.Errorf("Redis health check failed: %v", err)
			return fmt.Errorf("redis: %w", err)
		}
	}
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			logrus.Errorf("SQLite health check failed: %v", err)
			return fmt.Errorf("sqlite: %w", err)
		}
	}

	logrus.Debugf("health check passed")
	return nil
}

// IsHealthy reports whether every backend answered.
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}
