// Package server exposes live Bayesian optimizers over JSON-RPC 2.0, REST
// and gRPC. Every transport dispatches into the same method table, so a
// method behaves identically whichever way it is called.
package server

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/copyleftdev/bayesopt/internal/api"
	"github.com/copyleftdev/bayesopt/internal/config"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/logging"
	"github.com/copyleftdev/bayesopt/internal/metrics"
	"github.com/copyleftdev/bayesopt/internal/optimization/bayesian"
	"github.com/copyleftdev/bayesopt/internal/persistence"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
	Zap() *zap.Logger
}

// Server owns the registry of live optimizers and serves them over every
// transport.
type Server struct {
	cfg       *config.Config
	logger    Logger
	configs   *config.Store
	snapshots persistence.SnapshotStore
	tracer    trace.Tracer
	handlers  map[string]handlerFunc

	// Optimizer registry
	optimizers   map[string]*bayesian.Optimizer
	optimizersMu sync.RWMutex // Protects the optimizers map
}

// Option configures a Server.
type Option func(*Server)

// WithConfigStore sets the named optimizer configurations. The default is
// config.NewStore().
func WithConfigStore(store *config.Store) Option {
	return func(s *Server) { s.configs = store }
}

// WithSnapshotStore enables stored snapshots.
func WithSnapshotStore(store persistence.SnapshotStore) Option {
	return func(s *Server) { s.snapshots = store }
}

// WithTracer sets the tracer handed to every optimizer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// NewServer creates a new server instance with the given config and logger
// The logger parameter accepts any type that implements the Logger interface
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		optimizers: make(map[string]*bayesian.Optimizer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.configs == nil {
		s.configs = config.NewStore()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("server")
	}
	s.handlers = s.methods()
	return s
}

// RegisterRoutes mounts the JSON-RPC endpoint, the REST API and the health
// check on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/optimizers", s.handleListOptimizers)
		r.Get("/optimizers/{id}", s.handleDescribeOptimizer)
		r.Delete("/optimizers/{id}", s.handleDeleteOptimizer)
		r.Get("/configs", s.handleListConfigs)
		r.Get("/configs/{name}", s.handleGetConfig)

		// JSON-RPC 2.0 endpoint
		r.Post("/rpc", s.handleJSONRPC)
	})

	r.Get(api.HealthEndpoint, s.handleHealth)
}

// Call dispatches an RPC method. params is the JSON encoding of the
// method's parameter object and may be empty.
func (s *Server) Call(ctx context.Context, method string, params []byte) (interface{}, error) {
	h, ok := s.handlers[method]
	if !ok {
		return nil, apperrors.Errorf(apperrors.CodeMethodNotFound, "method %q not found", method)
	}
	return h(ctx, params)
}

// Len returns the number of live optimizers.
func (s *Server) Len() int {
	s.optimizersMu.RLock()
	defer s.optimizersMu.RUnlock()
	return len(s.optimizers)
}

// Close drops every optimizer and closes the snapshot store.
func (s *Server) Close() error {
	s.optimizersMu.Lock()
	metrics.OptimizersActive.Sub(float64(len(s.optimizers)))
	s.optimizers = make(map[string]*bayesian.Optimizer)
	s.optimizersMu.Unlock()

	if s.snapshots != nil {
		return s.snapshots.Close()
	}
	return nil
}

func (s *Server) add(opt *bayesian.Optimizer) error {
	s.optimizersMu.Lock()
	defer s.optimizersMu.Unlock()
	if _, exists := s.optimizers[opt.ID()]; exists {
		return apperrors.Errorf(apperrors.CodeInvalidParams, "optimizer %s already exists", opt.ID())
	}
	s.optimizers[opt.ID()] = opt
	metrics.OptimizersActive.Inc()
	return nil
}

func (s *Server) lookup(id string) (*bayesian.Optimizer, error) {
	if id == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "optimizer id is required")
	}
	s.optimizersMu.RLock()
	defer s.optimizersMu.RUnlock()
	opt, ok := s.optimizers[id]
	if !ok {
		return nil, apperrors.Errorf(apperrors.CodeNotFound, "optimizer %s not found", id)
	}
	return opt, nil
}

func (s *Server) remove(id string) bool {
	s.optimizersMu.Lock()
	defer s.optimizersMu.Unlock()
	if _, ok := s.optimizers[id]; !ok {
		return false
	}
	delete(s.optimizers, id)
	metrics.OptimizersActive.Dec()
	return true
}

// list returns the live optimizers ordered by ID.
func (s *Server) list() []*bayesian.Optimizer {
	s.optimizersMu.RLock()
	out := make([]*bayesian.Optimizer, 0, len(s.optimizers))
	for _, opt := range s.optimizers {
		out = append(out, opt)
	}
	s.optimizersMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"optimizers": s.Len(),
	})
}
