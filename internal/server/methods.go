package server

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/copyleftdev/bayesopt/internal/api"
	"github.com/copyleftdev/bayesopt/internal/config"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/ids"
	"github.com/copyleftdev/bayesopt/internal/optimization/bayesian"
	"github.com/copyleftdev/bayesopt/internal/persistence"
)

const defaultVolumeAlpha = 0.05

type handlerFunc func(ctx context.Context, params []byte) (interface{}, error)

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		api.MethodCreate:        s.create,
		api.MethodDescribe:      s.describe,
		api.MethodRegister:      s.register,
		api.MethodSuggest:       s.suggest,
		api.MethodPredict:       s.predict,
		api.MethodOptimum:       s.optimum,
		api.MethodObservations:  s.observations,
		api.MethodGoodnessOfFit: s.goodnessOfFit,
		api.MethodTrained:       s.trained,
		api.MethodParetoVolume:  s.paretoVolume,
		api.MethodSnapshot:      s.snapshot,
		api.MethodRestore:       s.restore,
		api.MethodDelete:        s.delete,
		api.MethodList:          s.listOptimizers,
		api.MethodSnapshots:     s.listSnapshots,
		api.MethodConfigGet:     s.getConfig,
	}
}

// decodeParams unmarshals params into v. Empty params leave v unchanged.
func decodeParams(params []byte, v interface{}) error {
	params = bytes.TrimSpace(params)
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return apperrors.Errorf(apperrors.CodeInvalidParams, "invalid params: %v", err)
	}
	return nil
}

func (s *Server) optimizerOptions() []bayesian.Option {
	return []bayesian.Option{
		bayesian.WithLogger(s.logger.Zap()),
		bayesian.WithTracer(s.tracer),
	}
}

func (s *Server) defaultConfigName() string {
	if s.cfg != nil && s.cfg.Optimization.DefaultConfig != "" {
		return s.cfg.Optimization.DefaultConfig
	}
	return config.DefaultConfigName
}

func (s *Server) info(ctx context.Context, opt *bayesian.Optimizer) (*api.OptimizerInfo, error) {
	trained, err := opt.Trained(ctx)
	if err != nil {
		return nil, err
	}
	return &api.OptimizerInfo{
		ID:           opt.ID(),
		Problem:      opt.Problem().Spec(),
		Config:       opt.Config(),
		Observations: opt.Len(),
		Trained:      trained,
	}, nil
}

func (s *Server) create(ctx context.Context, params []byte) (interface{}, error) {
	var p api.CreateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	problem, err := p.Problem.Build()
	if err != nil {
		return nil, err
	}

	var cfg config.OptimizerConfig
	if p.Config != nil {
		cfg = p.Config.Clone()
	} else {
		name := p.ConfigName
		if name == "" {
			name = s.defaultConfigName()
		}
		if cfg, err = s.configs.Get(name); err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidParams, err.Error())
		}
	}

	opts := s.optimizerOptions()
	switch {
	case p.Seed != nil:
		opts = append(opts, bayesian.WithSeed(*p.Seed))
	case s.cfg != nil && s.cfg.Optimization.Seed != 0:
		opts = append(opts, bayesian.WithSeed(s.cfg.Optimization.Seed))
	}

	opt, err := bayesian.New(problem, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.add(opt); err != nil {
		return nil, err
	}

	s.logger.Info("Optimizer created", map[string]interface{}{
		"optimizer_id": opt.ID(),
		"objectives":   len(problem.Objectives),
		"context":      problem.HasContext(),
	})
	return s.info(ctx, opt)
}

func (s *Server) describe(ctx context.Context, params []byte) (interface{}, error) {
	var p api.IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	return s.info(ctx, opt)
}

func (s *Server) register(ctx context.Context, params []byte) (interface{}, error) {
	var p api.RegisterParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	if err := opt.Register(ctx, p.Parameters, p.Targets, p.Context); err != nil {
		return nil, err
	}
	return &api.RegisterResult{Observations: opt.Len()}, nil
}

func (s *Server) suggest(ctx context.Context, params []byte) (interface{}, error) {
	var p api.SuggestParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	point, err := opt.Suggest(ctx, p.Context)
	if err != nil {
		return nil, err
	}
	return &api.SuggestResult{Suggestion: point}, nil
}

func (s *Server) predict(ctx context.Context, params []byte) (interface{}, error) {
	var p api.PredictParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	preds, err := opt.Predict(ctx, p.Parameters, p.Context)
	if err != nil {
		return nil, err
	}
	return &api.PredictResult{Predictions: preds}, nil
}

func (s *Server) optimum(ctx context.Context, params []byte) (interface{}, error) {
	var p api.OptimumParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	best, err := opt.Optimum(ctx, p.Query)
	if err != nil {
		return nil, err
	}
	return &api.OptimumResult{Optimum: best}, nil
}

func (s *Server) observations(ctx context.Context, params []byte) (interface{}, error) {
	var p api.IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	obs, err := opt.AllObservations(ctx)
	if err != nil {
		return nil, err
	}
	return &api.ObservationsResult{Observations: obs}, nil
}

func (s *Server) goodnessOfFit(ctx context.Context, params []byte) (interface{}, error) {
	var p api.IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	gof, err := opt.GoodnessOfFit(ctx)
	if err != nil {
		return nil, err
	}
	return &api.GoodnessOfFitResult{Metrics: gof}, nil
}

func (s *Server) trained(ctx context.Context, params []byte) (interface{}, error) {
	var p api.IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	ok, err := opt.Trained(ctx)
	if err != nil {
		return nil, err
	}
	return &api.TrainedResult{Trained: ok}, nil
}

func (s *Server) paretoVolume(ctx context.Context, params []byte) (interface{}, error) {
	var p api.ParetoVolumeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	alpha := p.Alpha
	if alpha == 0 {
		alpha = defaultVolumeAlpha
	}

	v, err := opt.ParetoVolume(ctx, p.NumSamples)
	if err != nil {
		return nil, err
	}
	ci, err := v.TwoSidedConfidenceInterval(alpha)
	if err != nil {
		return nil, err
	}
	frontier, err := opt.ParetoFrontier(ctx)
	if err != nil {
		return nil, err
	}
	return &api.ParetoVolumeResult{
		NumSamples:   v.NumSamples,
		NumDominated: v.NumDominated,
		BoxVolume:    v.BoxVolume,
		Estimate:     v.Estimate(),
		Interval:     ci,
		FrontierSize: frontier.Len(),
	}, nil
}

func (s *Server) snapshot(ctx context.Context, params []byte) (interface{}, error) {
	var p api.SnapshotParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	opt, err := s.lookup(p.ID)
	if err != nil {
		return nil, err
	}
	data, err := opt.MarshalSnapshot()
	if err != nil {
		return nil, err
	}
	if !p.Store {
		return &api.SnapshotResult{Data: data}, nil
	}

	if s.snapshots == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "snapshot storage is not configured")
	}
	snap := &persistence.Snapshot{
		ID:          ids.NewSnapshot(),
		OptimizerID: opt.ID(),
		CreatedAt:   time.Now().UTC(),
		Data:        data,
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return nil, apperrors.Wrap(err, "saving snapshot").WithOperation(api.MethodSnapshot)
	}
	s.logger.Info("Snapshot saved", map[string]interface{}{
		"optimizer_id": opt.ID(),
		"snapshot_id":  snap.ID,
		"bytes":        len(data),
	})
	return &api.SnapshotResult{SnapshotID: snap.ID}, nil
}

func (s *Server) restore(ctx context.Context, params []byte) (interface{}, error) {
	var p api.RestoreParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	data := p.Data
	switch {
	case p.SnapshotID != "" && len(data) > 0:
		return nil, apperrors.New(apperrors.CodeInvalidParams, "pass either snapshot_id or data, not both")
	case p.SnapshotID != "":
		if s.snapshots == nil {
			return nil, apperrors.New(apperrors.CodeInvalidParams, "snapshot storage is not configured")
		}
		snap, err := s.snapshots.Load(ctx, p.SnapshotID)
		if err != nil {
			return nil, err
		}
		data = snap.Data
	case len(data) == 0:
		return nil, apperrors.New(apperrors.CodeInvalidParams, "snapshot_id or data is required")
	}

	opts := s.optimizerOptions()
	if p.NewID {
		opts = append(opts, bayesian.WithID(ids.NewOptimizer()))
	}
	opt, err := bayesian.Restore(data, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.add(opt); err != nil {
		return nil, err
	}

	s.logger.Info("Optimizer restored", map[string]interface{}{
		"optimizer_id": opt.ID(),
		"observations": opt.Len(),
	})
	return s.info(ctx, opt)
}

func (s *Server) delete(ctx context.Context, params []byte) (interface{}, error) {
	var p api.IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if _, err := s.lookup(p.ID); err != nil {
		return nil, err
	}
	deleted := s.remove(p.ID)
	if deleted {
		s.logger.Info("Optimizer deleted", map[string]interface{}{"optimizer_id": p.ID})
	}
	return &api.DeleteResult{Deleted: deleted}, nil
}

func (s *Server) listOptimizers(ctx context.Context, _ []byte) (interface{}, error) {
	result := &api.ListResult{Optimizers: []api.OptimizerInfo{}}
	for _, opt := range s.list() {
		info, err := s.info(ctx, opt)
		if err != nil {
			return nil, err
		}
		result.Optimizers = append(result.Optimizers, *info)
	}
	return result, nil
}

func (s *Server) listSnapshots(ctx context.Context, _ []byte) (interface{}, error) {
	if s.snapshots == nil {
		return &api.SnapshotsResult{Snapshots: []persistence.SnapshotInfo{}}, nil
	}
	infos, err := s.snapshots.List(ctx)
	if err != nil {
		return nil, err
	}
	return &api.SnapshotsResult{Snapshots: infos}, nil
}

func (s *Server) getConfig(_ context.Context, params []byte) (interface{}, error) {
	var p api.ConfigGetParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	result := &api.ConfigGetResult{Names: s.configs.Names()}
	if p.Name == "" {
		return result, nil
	}
	cfg, err := s.configs.Get(p.Name)
	if err != nil {
		return nil, apperrors.New(apperrors.CodeNotFound, err.Error())
	}
	result.Config = &cfg
	return result, nil
}
