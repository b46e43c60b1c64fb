package dispatch

import "fmt"

// Config defines solver-related settings.
type Config struct {
	// MaxNodes bounds the branch and bound search per solve. Zero means
	// the solver default.
	MaxNodes int `json:"max_nodes"`
	// PromoteThresholdMW is the minimum first-pass energy target at which
	// a cold fast-start trader is committed for the second pass.
	PromoteThresholdMW float64 `json:"promote_threshold_mw"`
	// Pricing enables the marginal price computation after each solve.
	Pricing bool `json:"pricing"`
}

// SetDefaults fills unset fields with defaults.
func (c *Config) SetDefaults() {
	if c.PromoteThresholdMW == 0 {
		c.PromoteThresholdMW = 0.005
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must be >= 0")
	}
	if c.PromoteThresholdMW < 0 {
		return fmt.Errorf("promote_threshold_mw must be >= 0")
	}
	return nil
}
