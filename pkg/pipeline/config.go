package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/AccelByte/extend-casino-retention/pkg/action"
	"github.com/AccelByte/extend-casino-retention/pkg/feedback"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/predictor"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Rules         []RuleConfig                `yaml:"rules"`
	Actions       []ActionConfig              `yaml:"actions"`
	Deliveries    map[string]string           `yaml:"deliveries"` // intervention type -> action ID
	Predictor     predictor.Config            `yaml:"predictor"`
	Designer      intervention.DesignerConfig `yaml:"designer"`
	Jurisdictions []intervention.Jurisdiction `yaml:"jurisdictions"`
	Analyzer      feedback.Config             `yaml:"analyzer"`
}

// RuleConfig represents a monitor rule entry.
type RuleConfig struct {
	ID         string                 `yaml:"id"`
	Type       string                 `yaml:"type"`
	Enabled    bool                   `yaml:"enabled"`
	Priority   int                    `yaml:"priority,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty"`
}

// ActionConfig represents a delivery channel entry.
type ActionConfig struct {
	ID         string                 `yaml:"id"`
	Type       string                 `yaml:"type"`
	Enabled    bool                   `yaml:"enabled"`
	Retry      *action.RetryConfig    `yaml:"retry,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty"`
}

// DefaultConfig returns a configuration with every tuning section at its
// default and no rules, actions or jurisdictions.
func DefaultConfig() Config {
	return Config{
		Deliveries: make(map[string]string),
		Predictor:  predictor.DefaultConfig(),
		Designer:   intervention.DefaultDesignerConfig(),
		Analyzer:   feedback.DefaultConfig(),
	}
}

// LoadConfig loads pipeline configuration from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	ruleIDs := make(map[string]bool)
	for _, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("rule with empty ID found")
		}
		if ruleIDs[rule.ID] {
			return fmt.Errorf("duplicate rule ID: %s", rule.ID)
		}
		ruleIDs[rule.ID] = true

		if rule.Type == "" {
			return fmt.Errorf("rule %s has empty type", rule.ID)
		}
	}

	actionIDs := make(map[string]bool)
	for _, a := range c.Actions {
		if a.ID == "" {
			return fmt.Errorf("action with empty ID found")
		}
		if actionIDs[a.ID] {
			return fmt.Errorf("duplicate action ID: %s", a.ID)
		}
		actionIDs[a.ID] = a.Enabled

		if a.Type == "" {
			return fmt.Errorf("action %s has empty type", a.ID)
		}
		if a.Retry != nil {
			if err := a.Retry.Validate(); err != nil {
				return fmt.Errorf("action %s: %w", a.ID, err)
			}
		}
	}

	// Every intervention type the designer may pick needs an enabled channel.
	for _, t := range intervention.Types() {
		actionID, ok := c.Deliveries[string(t)]
		if !ok {
			return fmt.Errorf("no delivery action configured for intervention type %s", t)
		}
		if !actionIDs[actionID] {
			return fmt.Errorf("delivery for %s references unknown or disabled action: %s", t, actionID)
		}
	}
	for typ := range c.Deliveries {
		if !intervention.Type(typ).Valid() {
			return fmt.Errorf("unknown intervention type in deliveries: %s", typ)
		}
	}

	if len(c.Jurisdictions) == 0 {
		return fmt.Errorf("at least one jurisdiction is required")
	}
	names := make(map[string]bool)
	for _, j := range c.Jurisdictions {
		if j.Name == "" {
			return fmt.Errorf("jurisdiction with empty name found")
		}
		if names[j.Name] {
			return fmt.Errorf("duplicate jurisdiction: %s", j.Name)
		}
		names[j.Name] = true
		if j.MonthlyCap < 0 || j.DailyCap < 0 || j.MinGap < 0 {
			return fmt.Errorf("jurisdiction %s has a negative limit", j.Name)
		}
		for _, t := range j.AllowedTypes {
			if !t.Valid() {
				return fmt.Errorf("jurisdiction %s allows unknown type %s", j.Name, t)
			}
		}
	}

	if err := c.Predictor.Validate(); err != nil {
		return fmt.Errorf("predictor: %w", err)
	}
	if err := c.Designer.Validate(); err != nil {
		return err
	}
	if err := c.Analyzer.Validate(); err != nil {
		return err
	}

	return nil
}

// JurisdictionMap indexes jurisdictions by name.
func (c *Config) JurisdictionMap() map[string]intervention.Jurisdiction {
	out := make(map[string]intervention.Jurisdiction, len(c.Jurisdictions))
	for _, j := range c.Jurisdictions {
		out[j.Name] = j
	}
	return out
}

// JurisdictionNames lists jurisdictions in configuration order.
func (c *Config) JurisdictionNames() []string {
	out := make([]string, len(c.Jurisdictions))
	for i, j := range c.Jurisdictions {
		out[i] = j.Name
	}
	return out
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		// Support ${VAR:default} syntax
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
