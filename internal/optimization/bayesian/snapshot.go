package bayesian

import (
	"fmt"
	"math/rand"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

// SnapshotVersion is the current snapshot format.
const SnapshotVersion = 1

// Snapshot is the serialized state of an optimizer. Models are not stored;
// Restore refits them on the same observation prefixes, which reproduces
// them exactly.
type Snapshot struct {
	Version      int                      `msgpack:"version"`
	ID           string                   `msgpack:"id"`
	Problem      optimization.ProblemSpec `msgpack:"problem"`
	Config       config.OptimizerConfig   `msgpack:"config"`
	Observations []SnapshotRow            `msgpack:"observations"`
	Seed         int64                    `msgpack:"seed"`
	Draws        uint64                   `msgpack:"draws"`
	// LastRefit holds, per objective, the observation count of its last refit.
	LastRefit []int `msgpack:"last_refit"`
}

// SnapshotRow is one observation.
type SnapshotRow struct {
	Parameters map[string]any     `msgpack:"parameters"`
	Targets    map[string]float64 `msgpack:"targets"`
	Context    map[string]any     `msgpack:"context,omitempty"`
}

// Snapshot captures the optimizer state.
func (o *Optimizer) Snapshot() *Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	rows := o.store.Rows(-1)
	s := &Snapshot{
		Version:      SnapshotVersion,
		ID:           o.id,
		Problem:      o.problem.Spec(),
		Config:       o.cfg.Clone(),
		Observations: make([]SnapshotRow, len(rows)),
		Seed:         o.src.seed,
		Draws:        o.src.draws,
		LastRefit:    o.model.LastRefitIterations(),
	}
	for i, r := range rows {
		s.Observations[i] = SnapshotRow{Parameters: r.Parameters, Targets: r.Targets, Context: r.Context}
	}
	return s
}

// MarshalSnapshot encodes the optimizer state as msgpack.
func (o *Optimizer) MarshalSnapshot() ([]byte, error) {
	data, err := msgpack.Marshal(o.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot decodes msgpack snapshot bytes.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	return &s, nil
}

// Restore rebuilds an optimizer from msgpack snapshot bytes. The restored
// optimizer has the same observations, models and random state, so it
// continues the original's suggestion sequence.
func Restore(data []byte, opts ...Option) (*Optimizer, error) {
	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrInvalidArgument, err.Error()).WithOperation("bayesian.Restore")
	}
	return FromSnapshot(s, opts...)
}

// FromSnapshot rebuilds an optimizer from a decoded snapshot.
func FromSnapshot(s *Snapshot, opts ...Option) (*Optimizer, error) {
	const op = "bayesian.FromSnapshot"
	problem, err := s.Problem.Build()
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithID(s.ID)}, opts...)
	opts = append(opts, WithSeed(s.Seed))
	o, err := New(problem, s.Config, opts...)
	if err != nil {
		return nil, err
	}

	if len(s.Observations) > 0 {
		params := make([]space.Point, len(s.Observations))
		targets := make([]space.Point, len(s.Observations))
		var contexts []space.Point
		for i, r := range s.Observations {
			params[i] = r.Parameters
			targets[i] = make(space.Point, len(r.Targets))
			for k, v := range r.Targets {
				targets[i][k] = v
			}
			if problem.HasContext() {
				contexts = append(contexts, r.Context)
			}
		}
		var contextTable *space.Table
		if problem.HasContext() {
			contextTable = space.TableFromPoints(contexts...)
		}
		if _, err := o.store.Register(space.TableFromPoints(params...), space.TableFromPoints(targets...), contextTable); err != nil {
			return nil, optimization.WrapError(err, "replaying snapshot observations").WithOperation(op).WithComponent(component)
		}
	}
	if err := o.model.RefitAt(o.store, s.LastRefit); err != nil {
		return nil, optimization.WrapError(err, "refitting snapshot models").WithOperation(op).WithComponent(component)
	}

	o.src = restoreCountingSource(s.Seed, s.Draws)
	o.rng = rand.New(o.src)
	return o, nil
}
