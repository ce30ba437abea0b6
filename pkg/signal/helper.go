package signal

import (
	"github.com/AccelByte/extend-casino-retention/pkg/actor"
)

// BuildPlayerContext creates a PlayerContext from a snapshot and window.
// The window is copied so later appends do not leak into the context.
func BuildPlayerContext(snap actor.Snapshot, window []actor.BetEvent) *PlayerContext {
	return &PlayerContext{
		ActorID:  snap.ID,
		Snapshot: snap,
		Window:   append([]actor.BetEvent(nil), window...),
	}
}
