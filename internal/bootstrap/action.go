// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/action"
	actionBuiltin "github.com/AccelByte/extend-casino-retention/pkg/action/builtin"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/pipeline"
	"github.com/AccelByte/extend-casino-retention/pkg/service"
	"github.com/sirupsen/logrus"
)

// InitActionExecutor creates the delivery executor with the channels from pipeline config.
//
// ============================================================
// DEVELOPER: Register custom delivery channels here.
// ============================================================
// Each action delivers one kind of intervention through the
// delivery collaborator in deps.
//
// Steps to add a new channel:
//  1. Create your action in pkg/action/builtin/
//  2. Register the action type in pkg/action/builtin/init.go
//  3. Add the action to config/pipeline.yaml and route an
//     intervention type to it under deliveries
//
// ============================================================
func InitActionExecutor(
	pipelineConfig *pipeline.Config,
	deps *service.Dependencies,
	m *metrics.Metrics,
) (*action.Executor, *action.Registry, error) {
	actionBuiltin.RegisterActions(deps)

	actionConfigs := convertActionConfigs(pipelineConfig.Actions)

	registry := action.NewRegistry()
	if err := action.RegisterActions(registry, actionConfigs); err != nil {
		return nil, nil, fmt.Errorf("failed to register actions: %w", err)
	}

	logrus.Infof("registered %d actions", len(actionConfigs))

	executor := action.NewExecutor(registry, m)
	logrus.Infof("initialized action executor")

	return executor, registry, nil
}

func convertActionConfigs(configs []pipeline.ActionConfig) []action.ActionConfig {
	result := make([]action.ActionConfig, len(configs))
	for i, ac := range configs {
		result[i] = action.ActionConfig{
			ID:         ac.ID,
			Type:       ac.Type,
			Enabled:    ac.Enabled,
			Retry:      ac.Retry,
			Parameters: ac.Parameters,
		}
	}
	return result
}
