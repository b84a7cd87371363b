package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bayesopt/internal/optimization/acquisition"
	"github.com/copyleftdev/bayesopt/internal/optimization/numeric"
	"github.com/copyleftdev/bayesopt/internal/optimization/regression"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE_TYPE", "fs")
	t.Setenv("STORAGE_DIR", filepath.Join(t.TempDir(), "snapshots"))
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, DefaultConfigName, cfg.Optimization.DefaultConfig)
	assert.DirExists(t, cfg.Storage.Dir)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORAGE_TYPE", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Contains(t, cfg.Storage.DSN, "postgres://")
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("BAYESOPT_TEST_INT", "42")
	t.Setenv("BAYESOPT_TEST_DURATION", "3s")
	t.Setenv("BAYESOPT_TEST_BAD", "x")

	assert.Equal(t, "fallback", GetEnv("BAYESOPT_TEST_MISSING", "fallback"))
	assert.Equal(t, 42, GetEnvAsInt("BAYESOPT_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvAsInt("BAYESOPT_TEST_BAD", 1))
	assert.Equal(t, 3*time.Second, GetEnvAsDuration("BAYESOPT_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvAsDuration("BAYESOPT_TEST_BAD", time.Second))
}

func TestBuiltinConfigsAreValid(t *testing.T) {
	s := NewStore()
	names := s.Names()
	require.Len(t, names, 6)
	for _, name := range names {
		cfg, err := s.Get(name)
		require.NoError(t, err)
		assert.NoError(t, cfg.Validate(), name)
	}

	poly, _ := s.Get(PolynomialRegressionConfigName)
	assert.Equal(t, regression.PolynomialRegressionName, poly.SurrogateModel.Implementation)
	multi, _ := s.Get(MultiObjectiveConfigName)
	assert.Equal(t, acquisition.MultiObjectiveProbabilityOfImprovementName, multi.ExperimentDesigner.UtilityFunction.Implementation)

	def, _ := s.Get(DefaultConfigName)
	assert.Equal(t, 10, def.ExperimentDesigner.MinSamplesRequiredForGuidedDesign)
	assert.Equal(t, 0.5, def.ExperimentDesigner.FractionRandomSuggestions)
	assert.Equal(t, 10, def.SurrogateModel.MinSamplesToFit)
	assert.Equal(t, 10, def.SurrogateModel.NewSamplesBeforeRefit)
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	s := NewStore()
	a, err := s.Get(DefaultConfigName)
	require.NoError(t, err)
	a.ExperimentDesigner.FractionRandomSuggestions = 0
	a.SurrogateModel.GaussianProcess.Kernel = "rbf"

	b, err := s.Get(DefaultConfigName)
	require.NoError(t, err)
	assert.Equal(t, 0.5, b.ExperimentDesigner.FractionRandomSuggestions)
	assert.Equal(t, DefaultOptimizerConfig(), b)

	_, err = s.Get("missing")
	assert.Error(t, err)
}

func TestPut(t *testing.T) {
	s := NewStore()
	cfg := DefaultOptimizerConfig()
	cfg.ExperimentDesigner.FractionRandomSuggestions = 0.1
	require.NoError(t, s.Put("tuned", cfg))

	got, err := s.Get("tuned")
	require.NoError(t, err)
	assert.Equal(t, 0.1, got.ExperimentDesigner.FractionRandomSuggestions)

	cfg.SurrogateModel.Implementation = "random_forest"
	assert.Error(t, s.Put("broken", cfg))
	assert.Error(t, s.Put("", DefaultOptimizerConfig()))
}

func TestLoadYAML(t *testing.T) {
	s := NewStore()
	err := s.LoadYAML([]byte(`
configs:
  fast:
    base: default_with_nelder_mead_config
    experiment_designer:
      fraction_random_suggestions: 0.2
      numeric_optimizer:
        nelder_mead:
          num_starts: 2
  poly_linear:
    surrogate_model:
      implementation: polynomial_regression
      polynomial_regression:
        degree: 1
`))
	require.NoError(t, err)

	fast, err := s.Get("fast")
	require.NoError(t, err)
	assert.Equal(t, numeric.NelderMeadName, fast.ExperimentDesigner.NumericOptimizer.Implementation)
	assert.Equal(t, 2, fast.ExperimentDesigner.NumericOptimizer.NelderMead.NumStarts)
	assert.Equal(t, 200, fast.ExperimentDesigner.NumericOptimizer.NelderMead.MaxEvaluations)
	assert.Equal(t, 0.2, fast.ExperimentDesigner.FractionRandomSuggestions)

	poly, err := s.Get("poly_linear")
	require.NoError(t, err)
	assert.Equal(t, 1, poly.SurrogateModel.PolynomialRegression.Degree)
	assert.Equal(t, 10, poly.SurrogateModel.MinSamplesToFit)
}

func TestLoadYAMLIsAllOrNothing(t *testing.T) {
	s := NewStore()
	err := s.LoadYAML([]byte(`
configs:
  good:
    experiment_designer:
      fraction_random_suggestions: 0.3
  bad:
    experiment_designer:
      fraction_random_suggestions: 3
`))
	require.Error(t, err)
	_, err = s.Get("good")
	assert.Error(t, err)

	assert.Error(t, s.LoadYAML([]byte("configs: [")))
	assert.Error(t, s.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
