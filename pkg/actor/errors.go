package actor

import "errors"

var (
	// ErrChurned is returned when something tries to act on a churned actor.
	ErrChurned = errors.New("actor has churned")

	// ErrActorBusy means another worker holds the actor.
	ErrActorBusy = errors.New("actor is held by another worker")

	// ErrUnknownActor is returned for ids outside the arena.
	ErrUnknownActor = errors.New("unknown actor")
)
