// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TelemetryOptions describes where chain spans go and how they are tagged.
type TelemetryOptions struct {
	ServiceName string
	Environment string
	// ZipkinEndpoint may be empty; spans then stay in process and only
	// their trace ids reach the logs.
	ZipkinEndpoint string
	// Seed tags every span so traces from different runs can be told apart.
	Seed int64
}

// SetupTelemetry installs the global tracer provider and propagators used by
// the pipeline chain spans and the gRPC/HTTP interceptors. The returned
// function flushes pending spans.
//
// B3 comes first so a zipkin collector can stitch operator calls to the
// chains they trigger; W3C trace context and baggage are accepted as well.
func SetupTelemetry(ctx context.Context, opts TelemetryOptions) (func(context.Context) error, error) {
	tracerProvider, err := common.NewTracerProvider(opts.ServiceName, opts.Environment, opts.ZipkinEndpoint, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			b3.New(),
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log := logrus.WithFields(logrus.Fields{
		"service":     opts.ServiceName,
		"environment": opts.Environment,
		"seed":        opts.Seed,
		"exporting":   opts.ZipkinEndpoint != "",
	})
	log.Info("telemetry enabled")

	return func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to flush spans: %w", err)
		}
		log.Info("telemetry stopped")
		return nil
	}, nil
}
