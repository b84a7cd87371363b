package numeric

import "fmt"

// Config selects and parameterizes the numeric optimizer.
type Config struct {
	Implementation      string                    `json:"implementation" yaml:"implementation" msgpack:"implementation"`
	RandomSearch        RandomSearchConfig        `json:"random_search" yaml:"random_search" msgpack:"random_search"`
	RandomNearIncumbent RandomNearIncumbentConfig `json:"random_near_incumbent" yaml:"random_near_incumbent" msgpack:"random_near_incumbent"`
	NelderMead          NelderMeadConfig          `json:"nelder_mead" yaml:"nelder_mead" msgpack:"nelder_mead"`
	Swarm               SwarmConfig               `json:"swarm" yaml:"swarm" msgpack:"swarm"`
}

// RandomSearchConfig parameterizes RandomSearch.
type RandomSearchConfig struct {
	NumSamples int `json:"num_samples" yaml:"num_samples" msgpack:"num_samples"`
	// UseLatinHypercube stratifies samples per dimension instead of drawing
	// them independently.
	UseLatinHypercube bool `json:"use_latin_hypercube" yaml:"use_latin_hypercube" msgpack:"use_latin_hypercube"`
}

// RandomNearIncumbentConfig parameterizes RandomNearIncumbent.
type RandomNearIncumbentConfig struct {
	NumStartingPoints   int     `json:"num_starting_points" yaml:"num_starting_points" msgpack:"num_starting_points"`
	NumNeighbors        int     `json:"num_neighbors" yaml:"num_neighbors" msgpack:"num_neighbors"`
	NumIterations       int     `json:"num_iterations" yaml:"num_iterations" msgpack:"num_iterations"`
	InitialStdev        float64 `json:"initial_stdev" yaml:"initial_stdev" msgpack:"initial_stdev"`
	StdevDecay          float64 `json:"stdev_decay" yaml:"stdev_decay" msgpack:"stdev_decay"`
	NumRandomCandidates int     `json:"num_random_candidates" yaml:"num_random_candidates" msgpack:"num_random_candidates"`
}

// NelderMeadConfig parameterizes NelderMead.
type NelderMeadConfig struct {
	NumStarts      int     `json:"num_starts" yaml:"num_starts" msgpack:"num_starts"`
	SimplexSize    float64 `json:"simplex_size" yaml:"simplex_size" msgpack:"simplex_size"`
	MaxEvaluations int     `json:"max_evaluations" yaml:"max_evaluations" msgpack:"max_evaluations"`
}

// SwarmConfig parameterizes Swarm.
type SwarmConfig struct {
	Population int `json:"population" yaml:"population" msgpack:"population"`
	Iterations int `json:"iterations" yaml:"iterations" msgpack:"iterations"`
}

// DefaultConfig returns the default random search configuration with every
// implementation's parameters filled in.
func DefaultConfig() Config {
	return Config{
		Implementation: RandomSearchName,
		RandomSearch: RandomSearchConfig{
			NumSamples:        1000,
			UseLatinHypercube: true,
		},
		RandomNearIncumbent: RandomNearIncumbentConfig{
			NumStartingPoints:   5,
			NumNeighbors:        20,
			NumIterations:       10,
			InitialStdev:        0.1,
			StdevDecay:          0.7,
			NumRandomCandidates: 200,
		},
		NelderMead: NelderMeadConfig{
			NumStarts:      5,
			SimplexSize:    0.2,
			MaxEvaluations: 200,
		},
		Swarm: SwarmConfig{
			Population: 20,
			Iterations: 30,
		},
	}
}

// Validate checks the configuration of the selected implementation.
func (c Config) Validate() error {
	if _, ok := registry[c.Implementation]; !ok {
		return fmt.Errorf("unknown numeric optimizer %q, expected one of %v", c.Implementation, Names())
	}
	switch c.Implementation {
	case RandomSearchName:
		if c.RandomSearch.NumSamples < 1 {
			return fmt.Errorf("random_search: num_samples must be positive, got %d", c.RandomSearch.NumSamples)
		}
	case RandomNearIncumbentName:
		r := c.RandomNearIncumbent
		if r.NumStartingPoints < 1 || r.NumNeighbors < 1 || r.NumIterations < 1 {
			return fmt.Errorf("random_near_incumbent: starting points, neighbors and iterations must be positive")
		}
		if r.InitialStdev <= 0 || r.StdevDecay <= 0 || r.StdevDecay > 1 {
			return fmt.Errorf("random_near_incumbent: initial_stdev must be positive and stdev_decay in (0,1]")
		}
		if r.NumRandomCandidates < 0 {
			return fmt.Errorf("random_near_incumbent: num_random_candidates must be non-negative")
		}
	case NelderMeadName:
		n := c.NelderMead
		if n.NumStarts < 1 || n.MaxEvaluations < 1 || n.SimplexSize <= 0 {
			return fmt.Errorf("nelder_mead: num_starts, max_evaluations and simplex_size must be positive")
		}
	case SwarmName:
		if c.Swarm.Population < 2 || c.Swarm.Iterations < 1 {
			return fmt.Errorf("swarm: population must be at least 2 and iterations positive")
		}
	}
	return nil
}
