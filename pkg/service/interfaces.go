package service

import (
	"context"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

// Service interfaces for external collaborators that actions can use.
//
// You may not need to have interface and go with direct struct usage,
// but having interfaces allows easier mocking for unit tests.

// Deliverer hands an intervention to the player-facing channel.
type Deliverer interface {
	// Deliver returns nil once the channel has accepted the delivery.
	Deliver(ctx context.Context, d Delivery) error
}

var (
	_ intervention.ComplianceStore = (*RedisComplianceStore)(nil)
	_ intervention.ComplianceStore = (*MemoryComplianceStore)(nil)
	_ signal.WindowStore           = (*RedisWindowStore)(nil)
)
