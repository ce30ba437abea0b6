package builtin

import (
	"github.com/AccelByte/extend-casino-retention/pkg/action"
	"github.com/AccelByte/extend-casino-retention/pkg/service"
)

// RegisterActions registers built-in action factories with dependencies.
// Built-in actions need the delivery collaborator, so they cannot be
// registered from init().
func RegisterActions(deps *service.Dependencies) {
	if deps == nil {
		deps = service.NewDependencies()
	}

	action.RegisterActionType(CreditCashbackActionID, func(config action.ActionConfig) (action.Action, error) {
		return NewCreditCashbackAction(config, deps.Deliverer), nil
	})

	action.RegisterActionType(GrantFreeSpinsActionID, func(config action.ActionConfig) (action.Action, error) {
		return NewGrantFreeSpinsAction(config, deps.Deliverer), nil
	})

	action.RegisterActionType(SendMessageActionID, func(config action.ActionConfig) (action.Action, error) {
		return NewSendMessageAction(config, deps.Deliverer), nil
	})
}
