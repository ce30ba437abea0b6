package rule

import (
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/oracle"
)

// RuleDependencies holds the external collaborators rules can use.
// Rules receive this struct and can access only the services they need.
type RuleDependencies struct {
	Oracle  oracle.Client
	Metrics *metrics.Metrics
}

// NewRuleDependencies creates a new dependencies container.
// Services can be nil if not needed - rules should handle nil gracefully.
func NewRuleDependencies() *RuleDependencies {
	return &RuleDependencies{}
}

// WithOracle sets the reasoning oracle.
func (d *RuleDependencies) WithOracle(client oracle.Client) *RuleDependencies {
	d.Oracle = client
	return d
}

// WithMetrics sets the metrics collectors.
func (d *RuleDependencies) WithMetrics(m *metrics.Metrics) *RuleDependencies {
	d.Metrics = m
	return d
}
