// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v (this is normal in production)", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid GRPC_PORT: %d (must be 1-65535)", c.GRPCPort)
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT: %d (must be 1-65535)", c.MetricsPort)
	}

	switch c.StoreBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q (must be redis or memory)", c.StoreBackend)
	}

	if c.SimActors < 1 {
		return fmt.Errorf("SIM_ACTORS must be positive, got %d", c.SimActors)
	}
	if c.SimTick <= 0 {
		return fmt.Errorf("SIM_TICK must be positive, got %s", c.SimTick)
	}
	if c.SimTickInterval < 0 || c.SimDuration < 0 {
		return fmt.Errorf("SIM_TICK_INTERVAL and SIM_DURATION must not be negative")
	}
	if c.SimWorkers < 1 {
		return fmt.Errorf("SIM_WORKERS must be positive, got %d", c.SimWorkers)
	}
	if c.SimExcludedShare < 0 || c.SimExcludedShare > 1 {
		return fmt.Errorf("SIM_EXCLUDED_SHARE must be in [0,1], got %v", c.SimExcludedShare)
	}
	if c.SimOptOutShare < 0 || c.SimOptOutShare > 1 {
		return fmt.Errorf("SIM_OPT_OUT_SHARE must be in [0,1], got %v", c.SimOptOutShare)
	}
	if c.SimStart != "" {
		if _, err := time.Parse(time.RFC3339, c.SimStart); err != nil {
			return fmt.Errorf("invalid SIM_START %q: %w", c.SimStart, err)
		}
	}
	if c.WarmupActors < 0 {
		return fmt.Errorf("WARMUP_ACTORS must not be negative, got %d", c.WarmupActors)
	}
	if c.WarmupActors > 0 && c.WarmupHorizon <= 0 {
		return fmt.Errorf("WARMUP_HORIZON must be positive when warm-up is enabled")
	}

	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive, got %s", c.OracleTimeout)
	}
	if c.OracleRPS <= 0 {
		return fmt.Errorf("ORACLE_RPS must be positive, got %v", c.OracleRPS)
	}
	if c.DeliveryFailureRate < 0 || c.DeliveryFailureRate > 1 {
		return fmt.Errorf("DELIVERY_FAILURE_RATE must be in [0,1], got %v", c.DeliveryFailureRate)
	}
	if c.ObserverBuffer < 1 {
		return fmt.Errorf("OBSERVER_BUFFER must be positive, got %d", c.ObserverBuffer)
	}

	return nil
}
