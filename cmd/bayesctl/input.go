package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// readFile reads path, or stdin when path is "-".
func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeDocument decodes a YAML or JSON document into v through its JSON
// field names.
func decodeDocument(data []byte, v interface{}) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// loadProblem reads a problem definition.
func loadProblem(path string, stdin io.Reader) (*optimization.OptimizationProblem, error) {
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem: %w", err)
	}
	var spec optimization.ProblemSpec
	if err := decodeDocument(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse problem %s: %w", path, err)
	}
	return spec.Build()
}

// loadOptimizerConfig reads an optimizer config. Fields it leaves out keep
// their defaults.
func loadOptimizerConfig(path string, stdin io.Reader) (*config.OptimizerConfig, error) {
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer config: %w", err)
	}
	cfg := config.DefaultOptimizerConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer config %s: %w", path, err)
	}
	return &cfg, nil
}

// observationFile is the layout read by the register command:
//
//	observations:
//	  - parameters: {x_1: 0.5, x_2: -1}
//	    targets: {y: 1.25}
type observationFile struct {
	Observations []struct {
		Parameters space.Point `json:"parameters"`
		Targets    space.Point `json:"targets"`
	} `json:"observations"`
}

// loadObservations reads observations into aligned parameter and target
// tables.
func loadObservations(path string, stdin io.Reader) (*space.Table, *space.Table, error) {
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read observations: %w", err)
	}
	var file observationFile
	if err := decodeDocument(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse observations %s: %w", path, err)
	}
	if len(file.Observations) == 0 {
		return nil, nil, fmt.Errorf("no observations in %s", path)
	}
	params := make([]space.Point, len(file.Observations))
	targets := make([]space.Point, len(file.Observations))
	for i, o := range file.Observations {
		params[i] = o.Parameters
		targets[i] = o.Targets
	}
	return space.TableFromPoints(params...), space.TableFromPoints(targets...), nil
}
