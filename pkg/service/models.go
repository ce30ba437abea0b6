// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"errors"
	"time"
)

var (
	// ErrUnknownActor is returned for actors that were never enrolled.
	ErrUnknownActor = errors.New("actor not enrolled")

	// ErrDeliveryRejected is returned by a channel that refused a delivery.
	ErrDeliveryRejected = errors.New("delivery rejected by channel")

	// ErrNotContactable is returned when the player's contact preferences
	// rule the delivery out. Retrying cannot change the outcome.
	ErrNotContactable = errors.New("player cannot be contacted")
)

// Delivery is one attempt to hand an intervention to a player.
type Delivery struct {
	InterventionID string    `json:"interventionId"`
	ActorID        int       `json:"actorId"`
	Channel        string    `json:"channel"` // e.g. "credit_cashback", "send_message"
	Type           string    `json:"type"`
	Amount         float64   `json:"amount"`
	Message        string    `json:"message"`
	Attempt        int       `json:"attempt"`
	At             time.Time `json:"at"`
}
