package action

import (
	"fmt"
	"time"
)

// ActionConfig is the base configuration for all actions.
// This is typically loaded from YAML configuration files.
type ActionConfig struct {
	ID         string                 `yaml:"id" json:"id"`
	Name       string                 `yaml:"name" json:"name"`
	Type       string                 `yaml:"type" json:"type"` // e.g., "credit_cashback"
	Enabled    bool                   `yaml:"enabled" json:"enabled"`
	Retry      *RetryConfig           `yaml:"retry,omitempty" json:"retry,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters" json:"parameters"`
}

// RetryConfig defines retry behavior for failed deliveries.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval"`
	Backoff         string        `yaml:"backoff" json:"backoff"` // "constant", "exponential"
}

// DefaultRetryConfig returns four exponential attempts starting at 50ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		Backoff:         "exponential",
	}
}

// Validate checks the retry policy.
func (r RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1, got %d", ErrInvalidConfig, r.MaxAttempts)
	}
	if r.InitialInterval < 0 || r.MaxInterval < 0 {
		return fmt.Errorf("%w: retry intervals must not be negative", ErrInvalidConfig)
	}
	switch r.Backoff {
	case "", "constant", "exponential":
	default:
		return fmt.Errorf("%w: unknown backoff %q", ErrInvalidConfig, r.Backoff)
	}
	return nil
}

// RetryPolicy returns the configured policy, or the default when unset.
func (c *ActionConfig) RetryPolicy() RetryConfig {
	if c.Retry == nil {
		return DefaultRetryConfig()
	}
	return *c.Retry
}

// GetParameterInt retrieves an integer parameter with a default.
func (c *ActionConfig) GetParameterInt(key string, defaultValue int) int {
	if val, ok := c.Parameters[key]; ok {
		if intVal, ok := val.(int); ok {
			return intVal
		}
	}
	return defaultValue
}

// GetParameterFloat retrieves a float parameter with a default.
func (c *ActionConfig) GetParameterFloat(key string, defaultValue float64) float64 {
	if val, ok := c.Parameters[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return defaultValue
}

// GetParameterString retrieves a string parameter with a default.
func (c *ActionConfig) GetParameterString(key string, defaultValue string) string {
	if val, ok := c.Parameters[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// GetParameterBool retrieves a boolean parameter with a default.
func (c *ActionConfig) GetParameterBool(key string, defaultValue bool) bool {
	if val, ok := c.Parameters[key]; ok {
		if boolVal, ok := val.(bool); ok {
			return boolVal
		}
	}
	return defaultValue
}

// GetParameterStringSlice retrieves a string slice parameter with a default.
func (c *ActionConfig) GetParameterStringSlice(key string, defaultValue []string) []string {
	if val, ok := c.Parameters[key]; ok {
		if sliceVal, ok := val.([]string); ok {
			return sliceVal
		}
		// Try to convert from []interface{}
		if interfaceSlice, ok := val.([]interface{}); ok {
			result := make([]string, 0, len(interfaceSlice))
			for _, item := range interfaceSlice {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			return result
		}
	}
	return defaultValue
}
