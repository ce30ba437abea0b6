// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/observer"
	"github.com/sirupsen/logrus"
)

const healthInterval = 10 * time.Second

// Run starts the servers and the simulation, then blocks until a shutdown
// signal is received. The health service reports SERVING only while the
// simulation runs and its backends answer.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsServer.Start(ctx); err != nil {
		return err
	}

	sub := a.stream.Subscribe()
	go observer.LogSink(ctx, sub, logrus.WithField("component", "observer"))

	simCtx, cancelSim := context.WithCancel(ctx)
	defer cancelSim()
	done := make(chan error, 1)
	go func() {
		done <- a.scheduler.Run(simCtx)
	}()
	running := true
	a.grpcServer.SetServing(true)

	logrus.Info("application started successfully")

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	var simErr error
	for {
		select {
		case <-ctx.Done():
			logrus.Info("shutdown signal received")
			cancelSim()
			if running {
				simErr = <-done
			}
			a.logSummary(context.Background())
			if err := a.Shutdown(context.Background()); err != nil {
				return err
			}
			return simErr

		case err := <-done:
			running = false
			simErr = err
			a.grpcServer.SetServing(false)
			if err != nil {
				logrus.WithError(err).Error("simulation stopped on error")
			} else {
				logrus.Info("simulation completed, waiting for shutdown signal")
			}
			a.logSummary(ctx)

		case <-ticker.C:
			if !running {
				continue
			}
			a.grpcServer.SetServing(a.health.IsHealthy(ctx))
		}
	}
}

func (a *App) logSummary(ctx context.Context) {
	stats := a.arena.Stats()
	fields := logrus.Fields{
		"ticks":         a.scheduler.Ticks(),
		"active":        stats.Active,
		"churned":       stats.Churned,
		"flagged":       stats.Flagged,
		"interventions": a.book.Counts(),
	}
	if counts, err := a.store.ChurnCounts(ctx); err == nil {
		fields["churn_reasons"] = counts
	}
	if res, err := a.store.FlagResolutions(ctx); err == nil {
		fields["flag_resolutions"] = res
	}
	logrus.WithFields(fields).Info("simulation summary")
}

// Shutdown gracefully shuts down all application components.
//
// ============================================================
// DEVELOPER: Shutdown order is critical
// ============================================================
// Components are shut down in reverse dependency order:
// 1. Stop accepting new requests (gRPC + metrics servers)
// 2. Close the store and external connections
// 3. Flush telemetry data (OpenTelemetry)
//
// IMPORTANT: Shutdown errors are logged but don't stop the
// shutdown sequence. Each component gets a chance to clean up.
// ============================================================
func (a *App) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.grpcServer.Shutdown(ctx); err != nil {
		logrus.Errorf("gRPC server shutdown error: %v", err)
	}
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		logrus.Errorf("metrics server shutdown error: %v", err)
	}

	if err := a.store.Close(); err != nil {
		logrus.Errorf("store close error: %v", err)
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logrus.Errorf("Redis close error: %v", err)
		}
	}

	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("telemetry shutdown error: %v", err)
		}
	}

	logrus.Info("application shutdown complete")
	return nil
}
