package designer

import (
	"fmt"

	"github.com/copyleftdev/bayesopt/internal/optimization/acquisition"
	"github.com/copyleftdev/bayesopt/internal/optimization/numeric"
)

// Config parameterizes the experiment designer.
type Config struct {
	// FractionRandomSuggestions is the probability that a guided suggestion
	// is replaced by a uniformly random one.
	FractionRandomSuggestions float64 `json:"fraction_random_suggestions" yaml:"fraction_random_suggestions" msgpack:"fraction_random_suggestions"`
	// MinSamplesRequiredForGuidedDesign is the observation count below which
	// every suggestion is random.
	MinSamplesRequiredForGuidedDesign int            `json:"min_samples_required_for_guided_design_of_experiments" yaml:"min_samples_required_for_guided_design_of_experiments" msgpack:"min_samples_required_for_guided_design_of_experiments"`
	UtilityFunction                   UtilityConfig  `json:"utility_function" yaml:"utility_function" msgpack:"utility_function"`
	NumericOptimizer                  numeric.Config `json:"numeric_optimizer" yaml:"numeric_optimizer" msgpack:"numeric_optimizer"`
	// NumIncumbents is how many of the best observed configurations seed the
	// numeric optimizer.
	NumIncumbents int `json:"num_incumbents" yaml:"num_incumbents" msgpack:"num_incumbents"`
}

// UtilityConfig selects and parameterizes the utility function.
type UtilityConfig struct {
	Implementation       string  `json:"implementation" yaml:"implementation" msgpack:"implementation"`
	Xi                   float64 `json:"xi" yaml:"xi" msgpack:"xi"`
	Alpha                float64 `json:"alpha" yaml:"alpha" msgpack:"alpha"`
	NumMonteCarloSamples int     `json:"num_monte_carlo_samples" yaml:"num_monte_carlo_samples" msgpack:"num_monte_carlo_samples"`
}

// DefaultConfig returns the single-objective designer defaults.
func DefaultConfig() Config {
	return Config{
		FractionRandomSuggestions:         0.5,
		MinSamplesRequiredForGuidedDesign: 10,
		UtilityFunction: UtilityConfig{
			Implementation:       acquisition.ConfidenceBoundName,
			Xi:                   0.01,
			Alpha:                0.01,
			NumMonteCarloSamples: 100,
		},
		NumericOptimizer: numeric.DefaultConfig(),
		NumIncumbents:    5,
	}
}

// Validate checks the designer configuration and its nested strategies.
func (c Config) Validate() error {
	if c.FractionRandomSuggestions < 0 || c.FractionRandomSuggestions > 1 {
		return fmt.Errorf("fraction_random_suggestions must be in [0,1], got %v", c.FractionRandomSuggestions)
	}
	if c.MinSamplesRequiredForGuidedDesign < 0 {
		return fmt.Errorf("min_samples_required_for_guided_design_of_experiments must be non-negative, got %d", c.MinSamplesRequiredForGuidedDesign)
	}
	if c.NumIncumbents < 0 {
		return fmt.Errorf("num_incumbents must be non-negative, got %d", c.NumIncumbents)
	}
	if err := c.UtilityFunction.Validate(); err != nil {
		return fmt.Errorf("utility_function: %w", err)
	}
	if err := c.NumericOptimizer.Validate(); err != nil {
		return fmt.Errorf("numeric_optimizer: %w", err)
	}
	return nil
}

// Validate checks the utility configuration.
func (u UtilityConfig) Validate() error {
	known := false
	for _, n := range acquisition.Names() {
		if n == u.Implementation {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown utility function %q, expected one of %v", u.Implementation, acquisition.Names())
	}
	switch u.Implementation {
	case acquisition.ConfidenceBoundName:
		if u.Alpha <= 0 || u.Alpha >= 1 {
			return fmt.Errorf("alpha must be in (0,1), got %v", u.Alpha)
		}
	case acquisition.MultiObjectiveProbabilityOfImprovementName:
		if u.NumMonteCarloSamples < 1 {
			return fmt.Errorf("num_monte_carlo_samples must be positive, got %d", u.NumMonteCarloSamples)
		}
	default:
		if u.Xi < 0 {
			return fmt.Errorf("xi must be non-negative, got %v", u.Xi)
		}
	}
	return nil
}
