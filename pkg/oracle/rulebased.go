package oracle

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
)

// RuleBasedClient answers without a remote service. It is used when no
// oracle URL is configured.
type RuleBasedClient struct {
	// LossRate is the window loss share above which an ambiguous case is flagged.
	LossRate float64
	// BankrollRatio is the share of starting bankroll below which it is flagged.
	BankrollRatio float64
}

// NewRuleBasedClient creates a client with the stock thresholds.
func NewRuleBasedClient() *RuleBasedClient {
	return &RuleBasedClient{LossRate: 0.65, BankrollRatio: 0.5}
}

// Judge flags a case when the recent window is mostly losses and the actor
// has already lost a large part of its bankroll.
func (c *RuleBasedClient) Judge(ctx context.Context, req FlagRequest) (FlagVerdict, error) {
	if err := ctx.Err(); err != nil {
		return FlagVerdict{}, err
	}
	if len(req.Window) == 0 {
		return FlagVerdict{Reason: "no recent bets"}, nil
	}

	losses := 0
	for _, ev := range req.Window {
		if !ev.Won {
			losses++
		}
	}
	rate := float64(losses) / float64(len(req.Window))

	if rate >= c.LossRate && req.BankrollRatio < c.BankrollRatio {
		return FlagVerdict{
			Flag:   true,
			Reason: fmt.Sprintf("lost %.0f%% of last %d bets with %.0f%% of bankroll left", rate*100, len(req.Window), req.BankrollRatio*100),
		}, nil
	}
	return FlagVerdict{
		Reason: fmt.Sprintf("loss rate %.2f and bankroll ratio %.2f within tolerance", rate, req.BankrollRatio),
	}, nil
}

// Compose fills a fixed template.
func (c *RuleBasedClient) Compose(ctx context.Context, req ProposalRequest) (ProposalDraft, error) {
	if err := ctx.Err(); err != nil {
		return ProposalDraft{}, err
	}
	return TemplateDraft(req), nil
}

// TemplateDraft is the deterministic rationale used by the rule-based client
// and as the fallback when the remote oracle fails.
func TemplateDraft(req ProposalRequest) ProposalDraft {
	rationale := fmt.Sprintf(
		"risk %.2f from %d/%d churned neighbors; %s player in %s state; %s chosen with success rate %.2f",
		req.RiskScore, req.NeighborsChurned, req.Neighbors, req.Archetype, req.State, req.Type, req.SuccessRate,
	)
	if req.PrefersFreeSpins {
		rationale += "; prefers free spins"
	} else {
		rationale += "; prefers bonus cash"
	}

	var message string
	switch req.Type {
	case "cashback":
		message = fmt.Sprintf("We've added %.2f cashback to your account.", req.Amount)
	case "free_spins":
		message = fmt.Sprintf("Enjoy %.2f worth of free spins on us.", req.Amount)
	default:
		message = "Take a moment. Your limits and break tools are always one tap away."
	}
	if req.State == actor.Tilting {
		message += " Remember to play within your limits."
	}
	return ProposalDraft{Rationale: rationale, Message: message}
}
