// Package bayesian implements the in-process Bayesian optimizer: an
// observation store, one surrogate model per objective and an experiment
// designer behind the optimization.Optimizer façade.
package bayesian

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/ids"
	"github.com/copyleftdev/bayesopt/internal/metrics"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/designer"
	"github.com/copyleftdev/bayesopt/internal/optimization/observations"
	"github.com/copyleftdev/bayesopt/internal/optimization/regression"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
)

const component = "bayesian"

var _ optimization.Optimizer = (*Optimizer)(nil)

// Optimizer is the local Bayesian optimizer. It is safe for concurrent use:
// mutations are serialized and readers see a consistent snapshot.
type Optimizer struct {
	id      string
	problem *optimization.OptimizationProblem
	cfg     config.OptimizerConfig

	mu       sync.RWMutex
	store    *observations.Store
	model    *regression.MultiObjectiveModel
	designer *designer.Designer
	src      *countingSource
	rng      *rand.Rand

	logger *zap.Logger
	tracer trace.Tracer
}

type options struct {
	id     string
	logger *zap.Logger
	tracer trace.Tracer
	seed   *int64
}

// Option configures an Optimizer.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer sets the tracer. The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithSeed seeds the optimizer's random source. Without it a seed is drawn
// from the clock.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithID sets the optimizer ID instead of generating one.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// New creates an optimizer for problem.
func New(problem *optimization.OptimizationProblem, cfg config.OptimizerConfig, opts ...Option) (*Optimizer, error) {
	const op = "bayesian.New"
	if problem == nil {
		return nil, optimization.WrapError(optimization.ErrInvalidArgument, "optimization problem is required").WithOperation(op)
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, optimization.WrapError(optimization.ErrInvalidArgument, err.Error()).WithOperation(op).WithComponent(component)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer(component)
	}
	if o.id == "" {
		o.id = ids.NewOptimizer()
	}
	seed := time.Now().UnixNano()
	if o.seed != nil {
		seed = *o.seed
	}
	logger := o.logger.With(zap.String("optimizer_id", o.id))

	model, err := regression.NewMultiObjectiveModel(problem, cfg.SurrogateModel, logger)
	if err != nil {
		return nil, err
	}
	d, err := designer.New(problem, cfg.ExperimentDesigner, logger)
	if err != nil {
		return nil, err
	}

	src := newCountingSource(seed)
	return &Optimizer{
		id:       o.id,
		problem:  problem,
		cfg:      cfg.Clone(),
		store:    observations.NewStore(problem),
		model:    model,
		designer: d,
		src:      src,
		rng:      rand.New(src),
		logger:   logger,
		tracer:   o.tracer,
	}, nil
}

// ID returns the optimizer's identifier.
func (o *Optimizer) ID() string { return o.id }

// Problem returns the problem being optimized.
func (o *Optimizer) Problem() *optimization.OptimizationProblem { return o.problem }

// Config returns a copy of the optimizer configuration.
func (o *Optimizer) Config() config.OptimizerConfig { return o.cfg.Clone() }

// Len returns the number of registered observations.
func (o *Optimizer) Len() int { return o.store.Len() }

func (o *Optimizer) start(ctx context.Context, name string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("optimizer.id", o.id)))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Register appends observations and refits the models whose refit policy
// fires. A refit failure is logged and leaves the previous model in place;
// it does not fail the registration.
func (o *Optimizer) Register(ctx context.Context, parameters, targets, contextValues *space.Table) (err error) {
	_, span := o.start(ctx, "Optimizer.Register")
	defer func() { finish(span, err) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	n, err := o.store.Register(parameters, targets, contextValues)
	if err != nil {
		return err
	}
	metrics.ObservationsRegistered.Add(float64(parameters.Len()))
	span.SetAttributes(attribute.Int("observations", n))

	refit, refitErr := o.model.Refit(o.store, n)
	if len(refit) > 0 {
		metrics.ModelRefits.WithLabelValues(metrics.OutcomeOK).Add(float64(len(refit)))
		o.logger.Debug("Refit surrogate models", zap.Strings("objectives", refit), zap.Int("observations", n))
	}
	if refitErr != nil {
		metrics.ModelRefits.WithLabelValues(metrics.OutcomeError).Inc()
		o.logger.Warn("Surrogate model refit failed", zap.Int("observations", n), zap.Error(refitErr))
	}
	return nil
}

// Suggest returns the next configuration to evaluate.
func (o *Optimizer) Suggest(ctx context.Context, contextValue space.Point) (point space.Point, err error) {
	ctx, span := o.start(ctx, "Optimizer.Suggest")
	defer func() { finish(span, err) }()

	o.mu.Lock()
	defer o.mu.Unlock()

	began := time.Now()
	s, err := o.designer.Suggest(ctx, o.model, o.store, contextValue, o.rng)
	if err != nil {
		return nil, err
	}
	kind := "guided"
	if s.Random {
		kind = "random"
	}
	metrics.SuggestionDuration.WithLabelValues(kind).Observe(time.Since(began).Seconds())
	span.SetAttributes(attribute.String("suggestion.kind", kind))
	return s.Point, nil
}

// Predict evaluates the surrogate models at every row of parameters.
func (o *Optimizer) Predict(ctx context.Context, parameters, contextValues *space.Table) (preds optimization.MultiObjectivePrediction, err error) {
	_, span := o.start(ctx, "Optimizer.Predict")
	defer func() { finish(span, err) }()

	o.mu.RLock()
	defer o.mu.RUnlock()

	features, err := o.features(parameters, contextValues)
	if err != nil {
		return nil, err
	}
	if !o.model.Trained() {
		return nil, optimization.WrapError(optimization.ErrModelNotFitted, "surrogate model has not been fit").
			WithOperation("Optimizer.Predict").WithComponent(component)
	}
	return o.model.Predict(features)
}

// features validates query tables and encodes them as model input rows.
func (o *Optimizer) features(parameters, contextValues *space.Table) ([][]float64, error) {
	fail := func(sentinel error, format string, args ...any) error {
		return optimization.WrapErrorf(sentinel, format, args...).WithOperation("Optimizer.Predict").WithComponent(component)
	}
	if contextValues != nil && contextValues.Len() == 0 && len(contextValues.Columns) == 0 {
		contextValues = nil
	}
	switch {
	case o.problem.HasContext() && contextValues == nil:
		return nil, fail(optimization.ErrContextRequired, "context required")
	case !o.problem.HasContext() && contextValues != nil:
		return nil, fail(optimization.ErrContextNotSupported, "context supplied but the problem has no context space")
	case contextValues != nil && contextValues.Len() != parameters.Len():
		return nil, fail(optimization.ErrIncompatibleShape, "incompatible shape of parameters (%d rows) and context (%d rows)", parameters.Len(), contextValues.Len())
	}

	out := make([][]float64, parameters.Len())
	for i := range out {
		params, err := o.problem.ParameterSpace.Canonicalize(parameters.Rows[i])
		if err != nil || !o.problem.ParameterSpace.Contains(params) {
			return nil, fail(optimization.ErrInvalidArgument, "parameter row %d is not in the parameter space", i)
		}
		var ctxRow space.Point
		if contextValues != nil {
			ctxRow, err = designer.CheckContext(o.problem, contextValues.Rows[i])
			if err != nil {
				return nil, fail(err, "context row %d", i)
			}
		}
		out[i] = o.problem.Features(params, ctxRow)
	}
	return out, nil
}

// AllObservations returns the registration history.
func (o *Optimizer) AllObservations(ctx context.Context) (*optimization.Observations, error) {
	_, span := o.start(ctx, "Optimizer.AllObservations")
	defer span.End()

	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.store.All(), nil
}

// GoodnessOfFit returns the metrics of every fitted objective model.
func (o *Optimizer) GoodnessOfFit(ctx context.Context) ([]optimization.GoodnessOfFitMetrics, error) {
	_, span := o.start(ctx, "Optimizer.GoodnessOfFit")
	defer span.End()

	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model.GoodnessOfFit(), nil
}

// Trained reports whether every objective model has been fit.
func (o *Optimizer) Trained(ctx context.Context) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model.Trained(), nil
}
