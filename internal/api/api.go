// Package api defines the RPC methods of the optimizer service and their
// parameter and result types. The server and the remote client share it, so
// both sides of every transport agree on the wire format.
package api

import (
	"github.com/copyleftdev/bayesopt/internal/config"
	"github.com/copyleftdev/bayesopt/internal/optimization"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
	"github.com/copyleftdev/bayesopt/internal/persistence"
)

// JSON-RPC method names. The gRPC method of each is the PascalCase form
// returned by GRPCMethod.
const (
	MethodCreate        = "optimizer.create"
	MethodDescribe      = "optimizer.describe"
	MethodRegister      = "optimizer.register"
	MethodSuggest       = "optimizer.suggest"
	MethodPredict       = "optimizer.predict"
	MethodOptimum       = "optimizer.optimum"
	MethodObservations  = "optimizer.observations"
	MethodGoodnessOfFit = "optimizer.goodness_of_fit"
	MethodTrained       = "optimizer.trained"
	MethodParetoVolume  = "optimizer.pareto_volume"
	MethodSnapshot      = "optimizer.snapshot"
	MethodRestore       = "optimizer.restore"
	MethodDelete        = "optimizer.delete"
	MethodList          = "optimizer.list"
	MethodSnapshots     = "optimizer.snapshots"
	MethodConfigGet     = "config.get"
)

// Methods lists every method in a stable order.
var Methods = []string{
	MethodCreate, MethodDescribe, MethodRegister, MethodSuggest, MethodPredict,
	MethodOptimum, MethodObservations, MethodGoodnessOfFit, MethodTrained,
	MethodParetoVolume, MethodSnapshot, MethodRestore, MethodDelete, MethodList,
	MethodSnapshots, MethodConfigGet,
}

// Service identifiers and HTTP endpoints.
const (
	ServiceName    = "bayesopt.v1.OptimizerService"
	ErrorCodeKey   = "bayesopt-error-code"
	HealthEndpoint = "/healthz"
	RPCEndpoint    = "/api/v1/rpc"
)

var grpcNames = map[string]string{
	MethodCreate:        "Create",
	MethodDescribe:      "Describe",
	MethodRegister:      "Register",
	MethodSuggest:       "Suggest",
	MethodPredict:       "Predict",
	MethodOptimum:       "Optimum",
	MethodObservations:  "Observations",
	MethodGoodnessOfFit: "GoodnessOfFit",
	MethodTrained:       "Trained",
	MethodParetoVolume:  "ParetoVolume",
	MethodSnapshot:      "Snapshot",
	MethodRestore:       "Restore",
	MethodDelete:        "Delete",
	MethodList:          "List",
	MethodSnapshots:     "Snapshots",
	MethodConfigGet:     "GetConfig",
}

// GRPCMethod returns the short gRPC method name of an RPC method.
func GRPCMethod(method string) (string, bool) {
	name, ok := grpcNames[method]
	return name, ok
}

// GRPCFullMethod returns the full gRPC method path of an RPC method.
func GRPCFullMethod(method string) (string, bool) {
	name, ok := grpcNames[method]
	if !ok {
		return "", false
	}
	return "/" + ServiceName + "/" + name, true
}

// CreateParams creates an optimizer. Config, when set, takes precedence
// over ConfigName; with neither the server default is used.
type CreateParams struct {
	Problem    optimization.ProblemSpec `json:"problem"`
	ConfigName string                   `json:"config_name,omitempty"`
	Config     *config.OptimizerConfig  `json:"config,omitempty"`
	Seed       *int64                   `json:"seed,omitempty"`
}

// OptimizerInfo describes a live optimizer.
type OptimizerInfo struct {
	ID           string                   `json:"id"`
	Problem      optimization.ProblemSpec `json:"problem"`
	Config       config.OptimizerConfig   `json:"config"`
	Observations int                      `json:"observations"`
	Trained      bool                     `json:"trained"`
}

// IDParams addresses a single optimizer.
type IDParams struct {
	ID string `json:"id"`
}

type RegisterParams struct {
	ID         string       `json:"id"`
	Parameters *space.Table `json:"parameters"`
	Targets    *space.Table `json:"targets"`
	Context    *space.Table `json:"context,omitempty"`
}

type RegisterResult struct {
	Observations int `json:"observations"`
}

type SuggestParams struct {
	ID      string      `json:"id"`
	Context space.Point `json:"context,omitempty"`
}

type SuggestResult struct {
	Suggestion space.Point `json:"suggestion"`
}

type PredictParams struct {
	ID         string       `json:"id"`
	Parameters *space.Table `json:"parameters"`
	Context    *space.Table `json:"context,omitempty"`
}

type PredictResult struct {
	Predictions optimization.MultiObjectivePrediction `json:"predictions"`
}

type OptimumParams struct {
	ID    string                    `json:"id"`
	Query optimization.OptimumQuery `json:"query"`
}

type OptimumResult struct {
	Optimum *optimization.Optimum `json:"optimum"`
}

type ObservationsResult struct {
	Observations *optimization.Observations `json:"observations"`
}

type GoodnessOfFitResult struct {
	Metrics []optimization.GoodnessOfFitMetrics `json:"metrics"`
}

type TrainedResult struct {
	Trained bool `json:"trained"`
}

// ParetoVolumeParams estimates the dominated hypervolume. Alpha sets the
// significance of the returned interval; zero means 0.05.
type ParetoVolumeParams struct {
	ID         string  `json:"id"`
	NumSamples int     `json:"num_samples"`
	Alpha      float64 `json:"alpha,omitempty"`
}

type ParetoVolumeResult struct {
	NumSamples   int                   `json:"num_samples"`
	NumDominated int                   `json:"num_dominated"`
	BoxVolume    float64               `json:"box_volume"`
	Estimate     float64               `json:"estimate"`
	Interval     optimization.Interval `json:"interval"`
	FrontierSize int                   `json:"frontier_size"`
}

// SnapshotParams snapshots an optimizer. With Store the snapshot is saved
// in the server's snapshot store and only its ID is returned; otherwise the
// encoded state is returned inline.
type SnapshotParams struct {
	ID    string `json:"id"`
	Store bool   `json:"store,omitempty"`
}

type SnapshotResult struct {
	SnapshotID string `json:"snapshot_id,omitempty"`
	Data       []byte `json:"data,omitempty"`
}

// RestoreParams rebuilds an optimizer from inline Data or from a stored
// snapshot. NewID gives the restored optimizer a fresh ID instead of the
// one recorded in the snapshot.
type RestoreParams struct {
	SnapshotID string `json:"snapshot_id,omitempty"`
	Data       []byte `json:"data,omitempty"`
	NewID      bool   `json:"new_id,omitempty"`
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

type ListResult struct {
	Optimizers []OptimizerInfo `json:"optimizers"`
}

type SnapshotsResult struct {
	Snapshots []persistence.SnapshotInfo `json:"snapshots"`
}

// ConfigGetParams fetches a named configuration. An empty Name lists the
// available names only.
type ConfigGetParams struct {
	Name string `json:"name,omitempty"`
}

type ConfigGetResult struct {
	Names  []string                `json:"names"`
	Config *config.OptimizerConfig `json:"config,omitempty"`
}
