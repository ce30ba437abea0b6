package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()

	if err := m.Register(reg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	m.BetsTotal.Inc()
	m.FlagsTotal.WithLabelValues("loss_streak", "rule").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Unexpected gather error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"casino_retention_bets_total", "casino_retention_flags_total"} {
		if !names[want] {
			t.Errorf("Expected metric %s to be gathered", want)
		}
	}

	if err := m.Register(reg); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}
