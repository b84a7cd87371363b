package config

import (
	"fmt"

	"github.com/copyleftdev/bayesopt/internal/optimization/designer"
	"github.com/copyleftdev/bayesopt/internal/optimization/numeric"
	"github.com/copyleftdev/bayesopt/internal/optimization/regression"
)

// Aliases for the per-component configs that make up an OptimizerConfig.
type (
	SurrogateModelConfig     = regression.Config
	ExperimentDesignerConfig = designer.Config
	UtilityFunctionConfig    = designer.UtilityConfig
	NumericOptimizerConfig   = numeric.Config
)

// OptimizerConfig configures a Bayesian optimizer.
type OptimizerConfig struct {
	SurrogateModel     SurrogateModelConfig     `json:"surrogate_model" yaml:"surrogate_model" msgpack:"surrogate_model"`
	ExperimentDesigner ExperimentDesignerConfig `json:"experiment_designer" yaml:"experiment_designer" msgpack:"experiment_designer"`
}

// DefaultOptimizerConfig returns the single-objective defaults: a Gaussian
// process surrogate, a confidence-bound utility and random search.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		SurrogateModel:     regression.DefaultConfig(),
		ExperimentDesigner: designer.DefaultConfig(),
	}
}

// Validate checks every nested component config.
func (c OptimizerConfig) Validate() error {
	if err := c.SurrogateModel.Validate(); err != nil {
		return fmt.Errorf("surrogate_model: %w", err)
	}
	if err := c.ExperimentDesigner.Validate(); err != nil {
		return fmt.Errorf("experiment_designer: %w", err)
	}
	return nil
}

// Clone returns an independent copy of c.
func (c OptimizerConfig) Clone() OptimizerConfig {
	// Every nested config is a value type, so the copy shares nothing.
	return c
}
