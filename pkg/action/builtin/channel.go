package builtin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/action"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	// CreditCashbackActionID credits bonus cash to the player's wallet.
	CreditCashbackActionID = "credit_cashback"
	// GrantFreeSpinsActionID grants free spins worth the intervention amount.
	GrantFreeSpinsActionID = "grant_free_spins"
	// SendMessageActionID sends the player-facing message only.
	SendMessageActionID = "send_message"
)

// channelAction hands an intervention of one type to the delivery collaborator.
type channelAction struct {
	config    action.ActionConfig
	name      string
	accepts   intervention.Type
	deliverer service.Deliverer
	maxAmount float64
}

// NewCreditCashbackAction creates the cashback channel. The optional
// max_amount parameter refuses larger credits.
func NewCreditCashbackAction(config action.ActionConfig, deliverer service.Deliverer) action.Action {
	return newChannelAction(config, "Credit Cashback", intervention.Cashback, deliverer)
}

// NewGrantFreeSpinsAction creates the free spins channel.
func NewGrantFreeSpinsAction(config action.ActionConfig, deliverer service.Deliverer) action.Action {
	return newChannelAction(config, "Grant Free Spins", intervention.FreeSpins, deliverer)
}

// NewSendMessageAction creates the message channel.
func NewSendMessageAction(config action.ActionConfig, deliverer service.Deliverer) action.Action {
	return newChannelAction(config, "Send Message", intervention.MessageOnly, deliverer)
}

func newChannelAction(config action.ActionConfig, name string, accepts intervention.Type, deliverer service.Deliverer) *channelAction {
	maxAmount := config.GetParameterFloat("max_amount", 0)
	logrus.Infof("creating %s action: id=%s, max_amount=%.2f", accepts, config.ID, maxAmount)
	return &channelAction{
		config:    config,
		name:      name,
		accepts:   accepts,
		deliverer: deliverer,
		maxAmount: maxAmount,
	}
}

// ID returns the action identifier.
func (a *channelAction) ID() string {
	return a.config.ID
}

// Name returns the action name.
func (a *channelAction) Name() string {
	return a.name
}

// Carries returns the intervention type of the channel.
func (a *channelAction) Carries() intervention.Type {
	return a.accepts
}

// Config returns the action configuration.
func (a *channelAction) Config() action.ActionConfig {
	return a.config
}

// Execute makes one delivery attempt. Misrouted or oversized interventions
// and unreachable players fail permanently; other channel errors are left
// to the retry policy.
func (a *channelAction) Execute(ctx context.Context, iv intervention.Intervention, attempt int) error {
	if iv.Type != a.accepts {
		return backoff.Permanent(fmt.Errorf("%w: %s cannot deliver %s", action.ErrInvalidConfig, a.config.ID, iv.Type))
	}
	if a.accepts.Monetary() && iv.Amount <= 0 {
		return backoff.Permanent(fmt.Errorf("%s intervention %s has no amount", iv.Type, iv.ID))
	}
	if a.maxAmount > 0 && iv.Amount > a.maxAmount {
		return backoff.Permanent(fmt.Errorf("amount %.2f exceeds channel limit %.2f", iv.Amount, a.maxAmount))
	}
	if a.deliverer == nil {
		return backoff.Permanent(fmt.Errorf("%s: %w", a.config.ID, action.ErrMissingDeliverer))
	}

	err := a.deliverer.Deliver(ctx, service.Delivery{
		InterventionID: iv.ID,
		ActorID:        iv.ActorID,
		Channel:        a.config.Type,
		Type:           string(iv.Type),
		Amount:         iv.Amount,
		Message:        iv.Message,
		Attempt:        attempt,
		At:             time.Now(),
	})
	if errors.Is(err, service.ErrNotContactable) {
		return backoff.Permanent(err)
	}
	return err
}
