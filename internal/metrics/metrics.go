// Package metrics declares the Prometheus collectors of the optimizer
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bayesopt_rpc_requests_total",
		Help: "Total number of RPC requests",
	}, []string{"transport", "method", "outcome"})

	RPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bayesopt_rpc_request_duration_seconds",
		Help:    "RPC request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport", "method"})

	OptimizersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bayesopt_optimizers_active",
		Help: "Number of live optimizers",
	})

	ObservationsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bayesopt_observations_registered_total",
		Help: "Total observations registered",
	})

	ModelRefits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bayesopt_model_refits_total",
		Help: "Total surrogate model refits",
	}, []string{"outcome"})

	SuggestionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bayesopt_suggestion_duration_seconds",
		Help:    "Time to produce a suggestion",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"kind"})
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
