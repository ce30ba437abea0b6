package rule

import (
	"context"
	"testing"

	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

type stubRule struct {
	id       string
	types    []string
	priority int
	enabled  bool
}

func (s *stubRule) ID() string            { return s.id }
func (s *stubRule) Name() string          { return "stub " + s.id }
func (s *stubRule) SignalTypes() []string { return s.types }
func (s *stubRule) Config() RuleConfig {
	return RuleConfig{ID: s.id, Enabled: s.enabled, Priority: s.priority}
}
func (s *stubRule) Evaluate(context.Context, signal.Signal) (bool, *Trigger, error) {
	return false, nil, nil
}

func ids(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.ID()
	}
	return out
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	streak := &stubRule{id: "loss_streak", enabled: true}

	if err := registry.Register(streak); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(&stubRule{id: "loss_streak", enabled: true}); err == nil {
		t.Error("Expected duplicate ID to be refused")
	}
	if err := registry.Register(nil); err == nil {
		t.Error("Expected nil rule to be refused")
	}
	if registry.Count() != 1 {
		t.Errorf("Count = %d, want 1", registry.Count())
	}
	if registry.Get("loss_streak") != streak {
		t.Error("Get returned a different rule")
	}
	if registry.Get("missing") != nil {
		t.Error("Expected nil for an unknown ID")
	}
}

func TestRegistry_ForSignal(t *testing.T) {
	registry := NewRegistry()
	for _, r := range []*stubRule{
		{id: "oracle_escalation", types: []string{signal.TypeBet}, priority: 10, enabled: true},
		{id: "loss_streak", types: []string{signal.TypeBet}, priority: 40, enabled: true},
		{id: "stake_spike", types: []string{signal.TypeBet}, priority: 20, enabled: true},
		{id: "tilt_compound", types: []string{signal.TypeBet, signal.TypeSessionEnd}, priority: 30, enabled: true},
		{id: "any_signal", priority: 20, enabled: true},
		{id: "switched_off", types: []string{signal.TypeBet}, priority: 99, enabled: false},
	} {
		if err := registry.Register(r); err != nil {
			t.Fatalf("Register %s: %v", r.id, err)
		}
	}

	tests := []struct {
		signalType string
		want       []string
	}{
		{signal.TypeBet, []string{"loss_streak", "tilt_compound", "any_signal", "stake_spike", "oracle_escalation"}},
		{signal.TypeSessionEnd, []string{"tilt_compound", "any_signal"}},
		{"unknown", []string{"any_signal"}},
	}
	for _, tt := range tests {
		t.Run(tt.signalType, func(t *testing.T) {
			got := ids(registry.ForSignal(tt.signalType))
			if len(got) != len(tt.want) {
				t.Fatalf("ForSignal(%s) = %v, want %v", tt.signalType, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("ForSignal(%s) = %v, want %v", tt.signalType, got, tt.want)
				}
			}
		})
	}
}

func TestRegistry_ForSignalSeesLateRegistration(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(&stubRule{id: "stake_spike", types: []string{signal.TypeBet}, priority: 20, enabled: true})
	if got := ids(registry.ForSignal(signal.TypeBet)); len(got) != 1 {
		t.Fatalf("ForSignal = %v", got)
	}

	_ = registry.Register(&stubRule{id: "loss_streak", types: []string{signal.TypeBet}, priority: 40, enabled: true})
	got := ids(registry.ForSignal(signal.TypeBet))
	if len(got) != 2 || got[0] != "loss_streak" {
		t.Errorf("ForSignal after Register = %v, want loss_streak first", got)
	}
}

func TestRuleConfig_ParameterHelpers(t *testing.T) {
	config := RuleConfig{
		Parameters: map[string]interface{}{
			"threshold":  5,
			"multiple":   3.0,
			"whole":      3,
			"mode":       "strict",
			"escalating": true,
		},
	}

	if v := config.GetInt("threshold", 0); v != 5 {
		t.Errorf("GetInt = %d, want 5", v)
	}
	if v := config.GetInt("missing", 7); v != 7 {
		t.Errorf("GetInt default = %d, want 7", v)
	}
	if v := config.GetFloat("multiple", 0); v != 3.0 {
		t.Errorf("GetFloat = %v, want 3", v)
	}
	if v := config.GetFloat("whole", 0); v != 3.0 {
		t.Errorf("GetFloat(int) = %v, want 3", v)
	}
	if v := config.GetString("mode", ""); v != "strict" {
		t.Errorf("GetString = %q", v)
	}
	if !config.GetBool("escalating", false) {
		t.Error("GetBool = false, want true")
	}
	if config.GetBool("missing", false) {
		t.Error("GetBool default = true, want false")
	}
}
