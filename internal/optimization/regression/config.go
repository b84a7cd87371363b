package regression

import (
	"fmt"

	"github.com/copyleftdev/bayesopt/internal/optimization/kernels"
)

// Registry tags of the surrogate model implementations.
const (
	GaussianProcessName      = "gaussian_process"
	PolynomialRegressionName = "polynomial_regression"
)

// Config selects and parameterizes the surrogate model.
type Config struct {
	Implementation string `json:"implementation" yaml:"implementation" msgpack:"implementation"`
	// MinSamplesToFit is the number of observations of an objective needed
	// before its model is fit at all.
	MinSamplesToFit int `json:"min_samples_to_fit" yaml:"min_samples_to_fit" msgpack:"min_samples_to_fit"`
	// NewSamplesBeforeRefit is the number of observations that must
	// accumulate after a fit before the next one.
	NewSamplesBeforeRefit int `json:"n_new_samples_before_refit" yaml:"n_new_samples_before_refit" msgpack:"n_new_samples_before_refit"`
	// MaxTrainingSamples caps the training set; the most recent rows are kept.
	MaxTrainingSamples int `json:"max_training_samples" yaml:"max_training_samples" msgpack:"max_training_samples"`

	GaussianProcess      GPConfig         `json:"gaussian_process" yaml:"gaussian_process" msgpack:"gaussian_process"`
	PolynomialRegression PolynomialConfig `json:"polynomial_regression" yaml:"polynomial_regression" msgpack:"polynomial_regression"`
}

// GPConfig parameterizes the Gaussian process model.
type GPConfig struct {
	Kernel        string  `json:"kernel" yaml:"kernel" msgpack:"kernel"`
	LengthScale   float64 `json:"length_scale" yaml:"length_scale" msgpack:"length_scale"`
	SignalVar     float64 `json:"signal_variance" yaml:"signal_variance" msgpack:"signal_variance"`
	NoiseVariance float64 `json:"noise_variance" yaml:"noise_variance" msgpack:"noise_variance"`
	// FitHyperparameters enables type-II maximum likelihood estimation of
	// the kernel and noise hyperparameters at each refit.
	FitHyperparameters bool `json:"fit_hyperparameters" yaml:"fit_hyperparameters" msgpack:"fit_hyperparameters"`
	// HyperparameterSamples caps the rows used for the likelihood search.
	HyperparameterSamples int `json:"hyperparameter_samples" yaml:"hyperparameter_samples" msgpack:"hyperparameter_samples"`
	// HyperparameterEvaluations bounds the likelihood evaluations per refit.
	HyperparameterEvaluations int `json:"hyperparameter_evaluations" yaml:"hyperparameter_evaluations" msgpack:"hyperparameter_evaluations"`
}

// PolynomialConfig parameterizes ridge-regularized polynomial regression.
type PolynomialConfig struct {
	Degree int     `json:"degree" yaml:"degree" msgpack:"degree"`
	Ridge  float64 `json:"ridge" yaml:"ridge" msgpack:"ridge"`
}

// DefaultConfig returns the default Gaussian process configuration.
func DefaultConfig() Config {
	return Config{
		Implementation:        GaussianProcessName,
		MinSamplesToFit:       10,
		NewSamplesBeforeRefit: 10,
		MaxTrainingSamples:    500,
		GaussianProcess: GPConfig{
			Kernel:                    "matern52",
			LengthScale:               0.3,
			SignalVar:                 1.0,
			NoiseVariance:             1e-4,
			FitHyperparameters:        true,
			HyperparameterSamples:     150,
			HyperparameterEvaluations: 120,
		},
		PolynomialRegression: PolynomialConfig{
			Degree: 2,
			Ridge:  1e-8,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, ok := registry[c.Implementation]; !ok {
		return fmt.Errorf("unknown surrogate model %q, expected one of %v", c.Implementation, Names())
	}
	if c.MinSamplesToFit < 1 {
		return fmt.Errorf("min_samples_to_fit must be at least 1, got %d", c.MinSamplesToFit)
	}
	if c.NewSamplesBeforeRefit < 1 {
		return fmt.Errorf("n_new_samples_before_refit must be at least 1, got %d", c.NewSamplesBeforeRefit)
	}
	if c.MaxTrainingSamples < c.MinSamplesToFit {
		return fmt.Errorf("max_training_samples (%d) must be at least min_samples_to_fit (%d)", c.MaxTrainingSamples, c.MinSamplesToFit)
	}
	switch c.Implementation {
	case GaussianProcessName:
		gp := c.GaussianProcess
		if _, err := kernels.New(gp.Kernel, gp.LengthScale, gp.SignalVar); err != nil {
			return fmt.Errorf("gaussian_process: %w", err)
		}
		if gp.NoiseVariance <= 0 {
			return fmt.Errorf("gaussian_process: noise_variance must be positive, got %v", gp.NoiseVariance)
		}
		if gp.FitHyperparameters && (gp.HyperparameterSamples < 2 || gp.HyperparameterEvaluations < 1) {
			return fmt.Errorf("gaussian_process: hyperparameter search needs samples >= 2 and evaluations >= 1")
		}
	case PolynomialRegressionName:
		p := c.PolynomialRegression
		if p.Degree != 1 && p.Degree != 2 {
			return fmt.Errorf("polynomial_regression: degree must be 1 or 2, got %d", p.Degree)
		}
		if p.Ridge < 0 {
			return fmt.Errorf("polynomial_regression: ridge must be non-negative, got %v", p.Ridge)
		}
	}
	return nil
}
