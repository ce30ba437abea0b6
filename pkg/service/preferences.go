package service

import (
	"math/rand"
)

// ContactPreferences is how a player agreed to be contacted.
type ContactPreferences struct {
	ActorID           int    `json:"actorId"`
	EmailOK           bool   `json:"emailOk"`
	SMSOK             bool   `json:"smsOk"`
	PushOK            bool   `json:"pushOk"`
	Language          string `json:"language"`
	DoNotDisturb      bool   `json:"doNotDisturb"`
	OptedOutMarketing bool   `json:"optedOutMarketing"`
}

// Reachable reports whether a retention message may be sent at all.
func (p ContactPreferences) Reachable() bool {
	if p.OptedOutMarketing || p.DoNotDisturb {
		return false
	}
	return p.EmailOK || p.SMSOK || p.PushOK
}

var languages = []string{"en", "en", "en", "sl", "de"}

// GeneratePreferences draws one player's preferences. Email is allowed 3 in
// 4 times, SMS 2 in 3 and push 4 in 5; optOutShare of players have opted out
// of marketing altogether.
func GeneratePreferences(actorID int, r *rand.Rand, optOutShare float64) ContactPreferences {
	return ContactPreferences{
		ActorID:           actorID,
		EmailOK:           r.Intn(4) != 0,
		SMSOK:             r.Intn(3) != 0,
		PushOK:            r.Intn(5) != 0,
		Language:          languages[r.Intn(len(languages))],
		OptedOutMarketing: r.Float64() < optOutShare,
	}
}
