// Package remote implements optimization.Optimizer against an optimizer
// service reached over JSON-RPC or gRPC. A remote optimizer reports the same
// errors as a local one; only ErrTransport is specific to it.
package remote

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/bayesopt/internal/api"
	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

const component = "remote"

// DefaultProbeTimeout bounds the availability probe of Create and Attach.
const DefaultProbeTimeout = 5 * time.Second

var _ optimization.Optimizer = (*Optimizer)(nil)

// Optimizer proxies every call to an optimizer that lives in a server. It
// does not support optimization contexts.
type Optimizer struct {
	id        string
	problem   *optimization.OptimizationProblem
	transport Transport
	logger    *zap.Logger
}

type options struct {
	logger       *zap.Logger
	probeTimeout time.Duration
	seed         *int64
	configName   string
}

// Option configures Create and Attach.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProbeTimeout bounds the availability probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) { o.probeTimeout = d }
}

// WithSeed seeds the server-side optimizer created by Create.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithConfigName selects a named server configuration when Create is given
// no explicit config.
func WithConfigName(name string) Option {
	return func(o *options) { o.configName = name }
}

func buildOptions(opts []Option) options {
	o := options{probeTimeout: DefaultProbeTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.probeTimeout <= 0 {
		o.probeTimeout = DefaultProbeTimeout
	}
	return o
}

func probe(ctx context.Context, t Transport, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := t.Ping(ctx); err != nil {
		return optimization.WrapError(optimization.ErrTransport, "optimizer service is not available: "+err.Error()).
			WithOperation("remote.probe").WithComponent(component)
	}
	return nil
}

// Create creates an optimizer on the server behind t. A nil cfg selects the
// configuration named by WithConfigName, or the server default.
func Create(ctx context.Context, t Transport, problem *optimization.OptimizationProblem, cfg *config.OptimizerConfig, opts ...Option) (*Optimizer, error) {
	o := buildOptions(opts)
	if problem == nil {
		return nil, optimization.WrapError(optimization.ErrInvalidArgument, "optimization problem is required").WithOperation("remote.Create")
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := probe(ctx, t, o.probeTimeout); err != nil {
		return nil, err
	}

	var info api.OptimizerInfo
	err := t.Call(ctx, api.MethodCreate, api.CreateParams{
		Problem:    problem.Spec(),
		ConfigName: o.configName,
		Config:     cfg,
		Seed:       o.seed,
	}, &info)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Created remote optimizer", zap.String("optimizer_id", info.ID))
	return &Optimizer{
		id:        info.ID,
		problem:   problem,
		transport: t,
		logger:    o.logger.With(zap.String("optimizer_id", info.ID)),
	}, nil
}

// Attach connects to an existing optimizer on the server behind t.
func Attach(ctx context.Context, t Transport, id string, opts ...Option) (*Optimizer, error) {
	o := buildOptions(opts)
	if err := probe(ctx, t, o.probeTimeout); err != nil {
		return nil, err
	}

	var info api.OptimizerInfo
	if err := t.Call(ctx, api.MethodDescribe, api.IDParams{ID: id}, &info); err != nil {
		return nil, err
	}
	problem, err := info.Problem.Build()
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrTransport, "server returned an invalid problem: "+err.Error()).
			WithOperation("remote.Attach").WithComponent(component)
	}
	return &Optimizer{
		id:        info.ID,
		problem:   problem,
		transport: t,
		logger:    o.logger.With(zap.String("optimizer_id", info.ID)),
	}, nil
}

// ID returns the server-side optimizer ID.
func (o *Optimizer) ID() string { return o.id }

// Problem returns the problem being optimized.
func (o *Optimizer) Problem() *optimization.OptimizationProblem { return o.problem }

func contextNotSupported(op string) error {
	return optimization.WrapError(optimization.ErrContextNotSupported, "context not currently supported").
		WithOperation(op).WithComponent(component)
}

func hasContext(t *space.Table) bool {
	return t != nil && !(t.Len() == 0 && len(t.Columns) == 0)
}

// Register sends observations to the server.
func (o *Optimizer) Register(ctx context.Context, parameters, targets, contextValues *space.Table) error {
	if hasContext(contextValues) {
		return contextNotSupported("remote.Register")
	}
	var res api.RegisterResult
	if err := o.transport.Call(ctx, api.MethodRegister, api.RegisterParams{
		ID:         o.id,
		Parameters: parameters,
		Targets:    targets,
	}, &res); err != nil {
		return err
	}
	o.logger.Debug("Registered observations", zap.Int("rows", parameters.Len()), zap.Int("observations", res.Observations))
	return nil
}

// Suggest asks the server for the next configuration.
func (o *Optimizer) Suggest(ctx context.Context, contextValue space.Point) (space.Point, error) {
	if contextValue != nil {
		return nil, contextNotSupported("remote.Suggest")
	}
	var res api.SuggestResult
	if err := o.transport.Call(ctx, api.MethodSuggest, api.SuggestParams{ID: o.id}, &res); err != nil {
		return nil, err
	}
	return o.canonical(res.Suggestion, "remote.Suggest")
}

// Predict queries the server-side surrogate models.
func (o *Optimizer) Predict(ctx context.Context, parameters, contextValues *space.Table) (optimization.MultiObjectivePrediction, error) {
	if hasContext(contextValues) {
		return nil, contextNotSupported("remote.Predict")
	}
	var res api.PredictResult
	if err := o.transport.Call(ctx, api.MethodPredict, api.PredictParams{ID: o.id, Parameters: parameters}, &res); err != nil {
		return nil, err
	}
	return res.Predictions, nil
}

// Optimum answers a best-configuration query on the server.
func (o *Optimizer) Optimum(ctx context.Context, q optimization.OptimumQuery) (*optimization.Optimum, error) {
	if q.ContextValue != nil {
		return nil, contextNotSupported("remote.Optimum")
	}
	var res api.OptimumResult
	if err := o.transport.Call(ctx, api.MethodOptimum, api.OptimumParams{ID: o.id, Query: q}, &res); err != nil {
		return nil, err
	}
	if res.Optimum == nil {
		return nil, optimization.WrapError(optimization.ErrTransport, "server returned no optimum").
			WithOperation("remote.Optimum").WithComponent(component)
	}
	cfg, err := o.canonical(res.Optimum.Config, "remote.Optimum")
	if err != nil {
		return nil, err
	}
	res.Optimum.Config = cfg
	return res.Optimum, nil
}

// AllObservations returns the server's observation history.
func (o *Optimizer) AllObservations(ctx context.Context) (*optimization.Observations, error) {
	var res api.ObservationsResult
	if err := o.transport.Call(ctx, api.MethodObservations, api.IDParams{ID: o.id}, &res); err != nil {
		return nil, err
	}
	obs := res.Observations
	if obs == nil {
		return nil, optimization.WrapError(optimization.ErrTransport, "server returned no observations").
			WithOperation("remote.AllObservations").WithComponent(component)
	}
	if obs.Parameters != nil {
		for i, row := range obs.Parameters.Rows {
			p, err := o.canonical(row, "remote.AllObservations")
			if err != nil {
				return nil, err
			}
			obs.Parameters.Rows[i] = p
		}
	}
	return obs, nil
}

// GoodnessOfFit returns the server-side model metrics.
func (o *Optimizer) GoodnessOfFit(ctx context.Context) ([]optimization.GoodnessOfFitMetrics, error) {
	var res api.GoodnessOfFitResult
	if err := o.transport.Call(ctx, api.MethodGoodnessOfFit, api.IDParams{ID: o.id}, &res); err != nil {
		return nil, err
	}
	return res.Metrics, nil
}

// Trained reports whether every server-side model has been fit.
func (o *Optimizer) Trained(ctx context.Context) (bool, error) {
	var res api.TrainedResult
	if err := o.transport.Call(ctx, api.MethodTrained, api.IDParams{ID: o.id}, &res); err != nil {
		return false, err
	}
	return res.Trained, nil
}

// Describe returns the server's view of the optimizer.
func (o *Optimizer) Describe(ctx context.Context) (*api.OptimizerInfo, error) {
	var info api.OptimizerInfo
	if err := o.transport.Call(ctx, api.MethodDescribe, api.IDParams{ID: o.id}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ParetoVolume estimates the dominated hypervolume on the server.
func (o *Optimizer) ParetoVolume(ctx context.Context, numSamples int, alpha float64) (*api.ParetoVolumeResult, error) {
	var res api.ParetoVolumeResult
	if err := o.transport.Call(ctx, api.MethodParetoVolume, api.ParetoVolumeParams{
		ID:         o.id,
		NumSamples: numSamples,
		Alpha:      alpha,
	}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Snapshot returns the encoded optimizer state, or stores it on the server
// and returns the snapshot ID when store is set.
func (o *Optimizer) Snapshot(ctx context.Context, store bool) (*api.SnapshotResult, error) {
	var res api.SnapshotResult
	if err := o.transport.Call(ctx, api.MethodSnapshot, api.SnapshotParams{ID: o.id, Store: store}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete removes the optimizer from the server.
func (o *Optimizer) Delete(ctx context.Context) error {
	return o.transport.Call(ctx, api.MethodDelete, api.IDParams{ID: o.id}, nil)
}

// canonical maps a point decoded from JSON back onto the parameter space.
func (o *Optimizer) canonical(p space.Point, op string) (space.Point, error) {
	c, err := o.problem.ParameterSpace.Canonicalize(p)
	if err != nil {
		return nil, optimization.WrapError(optimization.ErrTransport, "server returned an invalid configuration: "+err.Error()).
			WithOperation(op).WithComponent(component)
	}
	return c, nil
}
