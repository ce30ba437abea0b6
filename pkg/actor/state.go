package actor

// EmotionalState is a node of the actor state machine.
type EmotionalState string

const (
	Neutral    EmotionalState = "neutral"
	Winning    EmotionalState = "winning"
	Tilting    EmotionalState = "tilting"
	Bored      EmotionalState = "bored"
	Recovering EmotionalState = "recovering"
)

// EmotionalStates lists every state in canonical order.
func EmotionalStates() []EmotionalState {
	return []EmotionalState{Neutral, Winning, Tilting, Bored, Recovering}
}

// ChurnReason explains why an actor left.
type ChurnReason string

const (
	ChurnBankrupt  ChurnReason = "bankrupt"
	ChurnAbandoned ChurnReason = "abandoned"
	ChurnCorrupted ChurnReason = "state_corrupted"
)
