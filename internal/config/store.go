package config

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/bayesopt/internal/optimization/acquisition"
	"github.com/copyleftdev/bayesopt/internal/optimization/numeric"
	"github.com/copyleftdev/bayesopt/internal/optimization/regression"
)

// Names of the built-in optimizer configurations.
const (
	DefaultConfigName              = "default"
	MultiObjectiveConfigName       = "default_multi_objective_optimizer_config"
	RandomNearIncumbentConfigName  = "default_with_random_near_incumbent_config"
	NelderMeadConfigName           = "default_with_nelder_mead_config"
	SwarmConfigName                = "default_with_swarm_config"
	PolynomialRegressionConfigName = "default_polynomial_regression_config"
)

func builtinConfigs() map[string]OptimizerConfig {
	def := DefaultOptimizerConfig()

	multi := DefaultOptimizerConfig()
	multi.ExperimentDesigner.UtilityFunction.Implementation = acquisition.MultiObjectiveProbabilityOfImprovementName
	multi.ExperimentDesigner.UtilityFunction.NumMonteCarloSamples = 100
	multi.ExperimentDesigner.NumericOptimizer.Implementation = numeric.RandomSearchName

	rni := DefaultOptimizerConfig()
	rni.ExperimentDesigner.NumericOptimizer.Implementation = numeric.RandomNearIncumbentName

	nm := DefaultOptimizerConfig()
	nm.ExperimentDesigner.NumericOptimizer.Implementation = numeric.NelderMeadName

	swarm := DefaultOptimizerConfig()
	swarm.ExperimentDesigner.NumericOptimizer.Implementation = numeric.SwarmName

	poly := DefaultOptimizerConfig()
	poly.SurrogateModel.Implementation = regression.PolynomialRegressionName

	return map[string]OptimizerConfig{
		DefaultConfigName:              def,
		MultiObjectiveConfigName:       multi,
		RandomNearIncumbentConfigName:  rni,
		NelderMeadConfigName:           nm,
		SwarmConfigName:                swarm,
		PolynomialRegressionConfigName: poly,
	}
}

// Store holds named optimizer configurations. Get always returns a fresh
// copy, so callers may mutate what they receive.
type Store struct {
	mu      sync.RWMutex
	configs map[string]OptimizerConfig
}

// NewStore returns a store with the built-in configurations.
func NewStore() *Store {
	return &Store{configs: builtinConfigs()}
}

// Get returns a copy of the named configuration.
func (s *Store) Get(name string) (OptimizerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[name]
	if !ok {
		return OptimizerConfig{}, fmt.Errorf("unknown optimizer config %q", name)
	}
	return c.Clone(), nil
}

// Put validates cfg and stores it under name, replacing any previous entry.
func (s *Store) Put(name string, cfg OptimizerConfig) error {
	if name == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[name] = cfg.Clone()
	return nil
}

// Names lists the stored configuration names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.configs))
	for n := range s.configs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// configFile is the YAML layout accepted by LoadYAML:
//
//	configs:
//	  my_config:
//	    base: default_with_nelder_mead_config
//	    experiment_designer:
//	      fraction_random_suggestions: 0.2
//
// Each entry starts from its base (default when omitted) and overrides the
// fields it sets.
type configFile struct {
	Configs map[string]yaml.Node `yaml:"configs"`
}

// LoadYAML parses data and adds or replaces the configurations it defines.
// Nothing is stored unless every entry is valid.
func (s *Store) LoadYAML(data []byte) error {
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config yaml: %w", err)
	}

	parsed := make(map[string]OptimizerConfig, len(file.Configs))
	for name, node := range file.Configs {
		var header struct {
			Base string `yaml:"base"`
		}
		if err := node.Decode(&header); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		if header.Base == "" {
			header.Base = DefaultConfigName
		}
		cfg, err := s.Get(header.Base)
		if err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		if err := node.Decode(&cfg); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", name, err)
		}
		parsed[name] = cfg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, cfg := range parsed {
		s.configs[name] = cfg
	}
	return nil
}

// LoadFile reads a YAML config file into the store.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := s.LoadYAML(data); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}
