// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
//
// Use struct tags to define:
// - `env:"VAR_NAME"` - the environment variable name
// - `envDefault:"value"` - set a default value
//
// After adding fields here, update loader.go Validate() if custom
// validation is needed.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"CasinoRetention"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost         string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisMaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"1000"`

	// ============================================================
	// Storage configuration
	// ============================================================
	// StoreBackend selects where compliance state, bet windows and the
	// similarity corpus live: "redis" or "memory".
	StoreBackend string `env:"STORE_BACKEND" envDefault:"redis"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"retention.db"`

	// ============================================================
	// Pipeline configuration
	// ============================================================
	ConfigPath string `env:"CONFIG_PATH" envDefault:"config/pipeline.yaml"`

	// ============================================================
	// Simulation configuration
	// ============================================================
	SimActors       int           `env:"SIM_ACTORS" envDefault:"1000"`
	SimSeed         int64         `env:"SIM_SEED" envDefault:"42"`
	SimTick         time.Duration `env:"SIM_TICK" envDefault:"1m"`
	SimTickInterval time.Duration `env:"SIM_TICK_INTERVAL" envDefault:"100ms"`
	SimDuration     time.Duration `env:"SIM_DURATION" envDefault:"720h"`
	SimWorkers      int           `env:"SIM_WORKERS" envDefault:"8"`
	// SimStart is the simulated start instant, RFC 3339. Empty means now.
	SimStart         string  `env:"SIM_START"`
	SimExcludedShare float64 `env:"SIM_EXCLUDED_SHARE" envDefault:"0.02"`
	// SimOptOutShare of players opted out of marketing messages.
	SimOptOutShare float64       `env:"SIM_OPT_OUT_SHARE" envDefault:"0.03"`
	WarmupActors   int           `env:"WARMUP_ACTORS" envDefault:"200"`
	WarmupHorizon  time.Duration `env:"WARMUP_HORIZON" envDefault:"168h"`

	// ============================================================
	// Oracle configuration
	// ============================================================
	// OracleURL points at the reasoning service. Empty uses the built-in
	// rule-based oracle.
	OracleURL     string        `env:"ORACLE_URL"`
	OracleTimeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"2s"`
	OracleRPS     float64       `env:"ORACLE_RPS" envDefault:"5"`

	// DeliveryFailureRate is the share of simulated deliveries that fail.
	DeliveryFailureRate float64 `env:"DELIVERY_FAILURE_RATE" envDefault:"0.05"`

	SimilarityTimeout time.Duration `env:"SIMILARITY_TIMEOUT" envDefault:"500ms"`
	ObserverBuffer    int           `env:"OBSERVER_BUFFER" envDefault:"1024"`

	// ============================================================
	// Telemetry configuration
	// ============================================================
	OtelEnabled    bool   `env:"OTEL_ENABLED" envDefault:"true"`
	ZipkinEndpoint string `env:"ZIPKIN_ENDPOINT"`
}

// Start returns the simulated start instant.
func (c *Config) Start(now time.Time) (time.Time, error) {
	if c.SimStart == "" {
		return now.UTC().Truncate(time.Second), nil
	}
	return time.Parse(time.RFC3339, c.SimStart)
}
