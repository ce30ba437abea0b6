// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/oracle"
	"github.com/AccelByte/extend-casino-retention/pkg/pipeline"
	"github.com/AccelByte/extend-casino-retention/pkg/predictor"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
	"github.com/sirupsen/logrus"
)

// StageDeps carries the collaborators of the scoring and gating stages.
type StageDeps struct {
	Oracle     oracle.Client
	Corpus     similarity.Store
	Compliance intervention.ComplianceStore
	Stats      *intervention.OutcomeStats
	Metrics    *metrics.Metrics
}

// Stages are the chain stages between the monitor and the executor.
type Stages struct {
	Predictor *predictor.Predictor
	Designer  *intervention.Designer
	Validator *intervention.Validator
}

// InitStages builds the predictor, designer and validator from pipeline config.
func InitStages(pipelineConfig *pipeline.Config, deps StageDeps) Stages {
	s := Stages{
		Predictor: predictor.New(pipelineConfig.Predictor, deps.Corpus, deps.Metrics),
		Designer:  intervention.NewDesigner(pipelineConfig.Designer, deps.Stats, deps.Oracle, deps.Metrics),
		Validator: intervention.NewValidator(pipelineConfig.JurisdictionMap(), deps.Compliance, deps.Metrics),
	}
	logrus.Infof("initialized predictor (k=%d, threshold=%.2f), designer and validator (%d jurisdictions)",
		pipelineConfig.Predictor.K, pipelineConfig.Predictor.Threshold, len(pipelineConfig.Jurisdictions))
	return s
}

// InitPipeline creates the pipeline manager with the intervention routes.
//
// ============================================================
// DEVELOPER: Configure delivery routes
// ============================================================
// The pipeline orchestrates the flow:
// Bets → Signals → Monitor → Predictor → Designer → Validator
// → Executor → Analyzer
//
// Routes are configured in config/pipeline.yaml:
//
//	deliveries:
//	  cashback: cashback-channel   # ← action ID
//
// To modify routes, edit config/pipeline.yaml, not this file.
// ============================================================
func InitPipeline(components pipeline.Components, pipelineConfig *pipeline.Config) (*pipeline.Manager, error) {
	routes, err := pipeline.RoutesFromConfig(pipelineConfig.Deliveries)
	if err != nil {
		return nil, fmt.Errorf("failed to build delivery routes: %w", err)
	}
	if missing := routes.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("no delivery route for %v", missing)
	}

	logrus.Infof("configured %d delivery routes", len(pipelineConfig.Deliveries))

	manager := pipeline.NewManager(components, routes, nil)
	logrus.Infof("initialized pipeline manager")

	return manager, nil
}
