package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/copyleftdev/bayesopt/internal/api"
	"github.com/copyleftdev/bayesopt/internal/config"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/logging"
	"github.com/copyleftdev/bayesopt/internal/optimization/objectives"
	"github.com/copyleftdev/bayesopt/internal/optimization/space"
	"github.com/copyleftdev/bayesopt/internal/persistence"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	// Set up HTTP config
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	// Set up logging
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stdout"

	// Set up storage
	cfg.Storage.Type = "none"

	// Set up optimization
	cfg.Optimization.DefaultConfig = config.DefaultConfigName
	cfg.Optimization.Seed = 7

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	return logging.FromZap(zaptest.NewLogger(t))
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(testConfig(t), testLogger(t), opts...)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

// rpc posts a JSON-RPC request and decodes the result into out. It returns
// the error object of the response, if any.
func rpc(t *testing.T, ts *httptest.Server, method string, params interface{}, out interface{}) *rpcError {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+api.RPCEndpoint, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if envelope.Error != nil {
		return envelope.Error
	}
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Result, out))
	}
	return nil
}

func mustRPC(t *testing.T, ts *httptest.Server, method string, params interface{}, out interface{}) {
	t.Helper()
	if e := rpc(t, ts, method, params, out); e != nil {
		t.Fatalf("%s failed: %d %s", method, e.Code, e.Message)
	}
}

func createQuadratic(t *testing.T, ts *httptest.Server) *api.OptimizerInfo {
	t.Helper()
	var info api.OptimizerInfo
	seed := int64(42)
	mustRPC(t, ts, api.MethodCreate, api.CreateParams{
		Problem:    objectives.Quadratic().Problem.Spec(),
		ConfigName: config.PolynomialRegressionConfigName,
		Seed:       &seed,
	}, &info)
	return &info
}

// quadraticObservations returns a 4x4 grid on the quadratic and its values.
func quadraticObservations() (*space.Table, *space.Table) {
	f := objectives.Quadratic()
	var points []space.Point
	for _, x1 := range space.Linspace(-30, 30, 4) {
		for _, x2 := range space.Linspace(-30, 30, 4) {
			points = append(points, space.Point{"x_1": x1, "x_2": x2})
		}
	}
	params := space.TableFromPoints(points...)
	return params, f.EvaluateTable(params, nil)
}

func TestNewServer(t *testing.T) {
	// Create a test logger and config
	logger := testLogger(t)
	cfg := testConfig(t)

	// Test server creation
	srv := NewServer(cfg, logger)
	assert.NotNil(t, srv, "Server should be created")
	assert.Equal(t, 0, srv.Len())
}

func TestRegisterRoutes(t *testing.T) {
	// Create a test logger and config
	logger := testLogger(t)
	cfg := testConfig(t)

	// Create server and register routes
	srv := NewServer(cfg, logger)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	// Test if routes are registered
	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"GET", "/api/v1/optimizers", true},
		{"GET", "/api/v1/optimizers/opt_123", true},
		{"DELETE", "/api/v1/optimizers/opt_123", true},
		{"GET", "/api/v1/configs", true},
		{"GET", "/api/v1/configs/default", true},
		{"POST", "/api/v1/rpc", true},
		{"GET", "/healthz", true},
		{"GET", "/nonexistent", false}, // Should not exist
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// Unknown optimizer IDs answer 404 with a JSON error body, so
			// chi's plain-text 404 is what marks a missing route.
			missing := rr.Code == http.StatusNotFound && !strings.Contains(rr.Header().Get("Content-Type"), "application/json")
			assert.Equal(t, !tt.shouldExist, missing, "route %s %s", tt.method, tt.path)
		})
	}
}

func TestClose(t *testing.T) {
	// Create a test logger and config
	logger := testLogger(t)
	cfg := testConfig(t)

	// Test server close
	srv := NewServer(cfg, logger)
	err := srv.Close()
	assert.NoError(t, err, "Close should not return an error")
}

func TestRespondWithError(t *testing.T) {
	// Create a test logger and config
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)

	tests := []struct {
		name       string
		code       int
		message    string
		id         json.RawMessage
		expectedID interface{}
	}{
		{
			name:       "valid error response",
			code:       apperrors.CodeInvalidParams,
			message:    "invalid input",
			id:         json.RawMessage(`"123"`),
			expectedID: "123",
		},
		{
			name:       "nil id",
			code:       apperrors.CodeInternal,
			message:    "server error",
			id:         nil,
			expectedID: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			// respondWithError writes 200 with the error in the body
			assert.Equal(t, http.StatusOK, rr.Code, "status code should match")

			// Parse response body to verify error structure
			var response map[string]interface{}
			err := json.NewDecoder(rr.Body).Decode(&response)
			assert.NoError(t, err, "should decode response body")

			// Check error object
			errObj, ok := response["error"].(map[string]interface{})
			assert.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"], "error code should match")
			assert.Equal(t, tt.message, errObj["message"], "error message should match")

			// Check ID
			assert.Equal(t, tt.expectedID, response["id"], "response ID should match")
			assert.Equal(t, "2.0", response["jsonrpc"])
		})
	}
}

func TestJSONRPCProtocolErrors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{"jsonrpc":`, apperrors.CodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"optimizer.list"}`, apperrors.CodeInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, apperrors.CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"optimizer.nope"}`, apperrors.CodeMethodNotFound},
		{"two params", `{"jsonrpc":"2.0","id":1,"method":"optimizer.describe","params":[{},{}]}`, apperrors.CodeInvalidParams},
		{"malformed params", `{"jsonrpc":"2.0","id":1,"method":"optimizer.describe","params":{"id":3}}`, apperrors.CodeInvalidParams},
		{"unknown optimizer", `{"jsonrpc":"2.0","id":1,"method":"optimizer.describe","params":[{"id":"opt_missing"}]}`, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+api.RPCEndpoint, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			var response struct {
				Error *rpcError `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
			require.NotNil(t, response.Error)
			assert.Equal(t, tt.code, response.Error.Code)
		})
	}
}

func TestOptimizerLifecycle(t *testing.T) {
	srv, ts := newTestServer(t)
	info := createQuadratic(t, ts)
	assert.NotEmpty(t, info.ID)
	assert.False(t, info.Trained)
	assert.Equal(t, 1, srv.Len())

	params, targets := quadraticObservations()
	var reg api.RegisterResult
	mustRPC(t, ts, api.MethodRegister, api.RegisterParams{ID: info.ID, Parameters: params, Targets: targets}, &reg)
	assert.Equal(t, 16, reg.Observations)

	var trained api.TrainedResult
	mustRPC(t, ts, api.MethodTrained, api.IDParams{ID: info.ID}, &trained)
	assert.True(t, trained.Trained)

	var sug api.SuggestResult
	mustRPC(t, ts, api.MethodSuggest, api.SuggestParams{ID: info.ID}, &sug)
	p, err := info.Problem.Build()
	require.NoError(t, err)
	canonical, err := p.ParameterSpace.Canonicalize(sug.Suggestion)
	require.NoError(t, err)
	assert.True(t, p.ParameterSpace.Contains(canonical))

	var best api.OptimumResult
	mustRPC(t, ts, api.MethodOptimum, optimumParams(info.ID, optimumQuery("best_observation")), &best)
	assert.Equal(t, "y", best.Optimum.Objective)
	assert.InDelta(t, 200.0, best.Optimum.Value, 1e-9)

	var ucb api.OptimumResult
	mustRPC(t, ts, api.MethodOptimum, optimumParams(info.ID, optimumQuery("upper_confidence_bound_for_observed_config")), &ucb)
	require.NotNil(t, ucb.Optimum.Prediction)

	var pred api.PredictResult
	mustRPC(t, ts, api.MethodPredict, api.PredictParams{ID: info.ID, Parameters: params}, &pred)
	require.Len(t, pred.Predictions, 1)
	assert.Len(t, pred.Predictions[0].Values, 16)

	var obs api.ObservationsResult
	mustRPC(t, ts, api.MethodObservations, api.IDParams{ID: info.ID}, &obs)
	assert.Equal(t, 16, obs.Observations.Len())

	var gof api.GoodnessOfFitResult
	mustRPC(t, ts, api.MethodGoodnessOfFit, api.IDParams{ID: info.ID}, &gof)
	require.Len(t, gof.Metrics, 1)
	assert.Equal(t, "y", gof.Metrics[0].ObjectiveName)

	var described api.OptimizerInfo
	mustRPC(t, ts, api.MethodDescribe, []api.IDParams{{ID: info.ID}}, &described)
	assert.Equal(t, 16, described.Observations)
	assert.True(t, described.Trained)

	var list api.ListResult
	mustRPC(t, ts, api.MethodList, nil, &list)
	require.Len(t, list.Optimizers, 1)
	assert.Equal(t, info.ID, list.Optimizers[0].ID)

	var del api.DeleteResult
	mustRPC(t, ts, api.MethodDelete, api.IDParams{ID: info.ID}, &del)
	assert.True(t, del.Deleted)
	assert.Equal(t, 0, srv.Len())

	e := rpc(t, ts, api.MethodDescribe, api.IDParams{ID: info.ID}, nil)
	require.NotNil(t, e)
	assert.Equal(t, apperrors.CodeNotFound, e.Code)
}

func optimumQuery(def string) map[string]interface{} {
	return map[string]interface{}{"definition": def}
}

func optimumParams(id string, query map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"id": id, "query": query}
}

func TestLogicalErrorCodes(t *testing.T) {
	_, ts := newTestServer(t)
	info := createQuadratic(t, ts)
	id := info.ID

	oneRow := space.TableFromPoints(space.Point{"x_1": 1.0, "x_2": 2.0})
	contextTable := space.TableFromPoints(space.Point{"c": 1.0})

	tests := []struct {
		name   string
		method string
		params interface{}
		code   int
	}{
		{
			name:   "optimum without observations",
			method: api.MethodOptimum,
			params: optimumParams(id, optimumQuery("predicted_value_for_observed_config")),
			code:   apperrors.CodeNoObservations,
		},
		{
			name:   "predict before fit",
			method: api.MethodPredict,
			params: api.PredictParams{ID: id, Parameters: oneRow},
			code:   apperrors.CodeModelNotFitted,
		},
		{
			name:   "predict with context",
			method: api.MethodPredict,
			params: api.PredictParams{ID: id, Parameters: oneRow, Context: contextTable},
			code:   apperrors.CodeContextNotSupported,
		},
		{
			name:   "speculative optimum without context",
			method: api.MethodOptimum,
			params: optimumParams(id, optimumQuery("best_speculative_within_context")),
			code:   apperrors.CodeContextRequired,
		},
		{
			name:   "observed-config optimum with context",
			method: api.MethodOptimum,
			params: optimumParams(id, map[string]interface{}{"definition": "best_observation", "context": map[string]interface{}{"c": 1}}),
			code:   apperrors.CodeUnsupportedQuery,
		},
		{
			name:   "register out of space",
			method: api.MethodRegister,
			params: api.RegisterParams{
				ID:         id,
				Parameters: space.TableFromPoints(space.Point{"x_1": 500.0, "x_2": 0.0}),
				Targets:    space.TableFromPoints(space.Point{"y": 1.0}),
			},
			code: apperrors.CodeInvalidObservation,
		},
		{
			name:   "register with mismatched rows",
			method: api.MethodRegister,
			params: api.RegisterParams{
				ID:         id,
				Parameters: space.TableFromPoints(space.Point{"x_1": 1.0, "x_2": 0.0}, space.Point{"x_1": 2.0, "x_2": 0.0}),
				Targets:    space.TableFromPoints(space.Point{"y": 1.0}),
			},
			code: apperrors.CodeIncompatibleShape,
		},
		{
			name:   "alpha out of range",
			method: api.MethodOptimum,
			params: optimumParams(id, map[string]interface{}{"definition": "lower_confidence_bound_for_observed_config", "alpha": 1.5}),
			code:   apperrors.CodeInvalidParams,
		},
		{
			name:   "pareto volume on one objective",
			method: api.MethodParetoVolume,
			params: api.ParetoVolumeParams{ID: id, NumSamples: 100},
			code:   apperrors.CodeUnsupportedQuery,
		},
		{
			name:   "unknown config",
			method: api.MethodCreate,
			params: api.CreateParams{Problem: objectives.Quadratic().Problem.Spec(), ConfigName: "no_such_config"},
			code:   apperrors.CodeInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := rpc(t, ts, tt.method, tt.params, nil)
			require.NotNil(t, e, "expected an error")
			assert.Equal(t, tt.code, e.Code, e.Message)
		})
	}

	// None of the failed registrations left anything behind.
	var described api.OptimizerInfo
	mustRPC(t, ts, api.MethodDescribe, api.IDParams{ID: id}, &described)
	assert.Equal(t, 0, described.Observations)
}

func TestParetoVolume(t *testing.T) {
	_, ts := newTestServer(t)

	f := objectives.Hypersphere(10)
	var info api.OptimizerInfo
	seed := int64(3)
	mustRPC(t, ts, api.MethodCreate, api.CreateParams{
		Problem:    f.Problem.Spec(),
		ConfigName: config.MultiObjectiveConfigName,
		Seed:       &seed,
	}, &info)

	var points []space.Point
	for i := 0; i < 20; i++ {
		var sug api.SuggestResult
		mustRPC(t, ts, api.MethodSuggest, api.SuggestParams{ID: info.ID}, &sug)
		points = append(points, sug.Suggestion)
	}
	params := space.TableFromPoints(points...)
	canonical := make([]space.Point, len(points))
	for i, p := range points {
		c, err := f.Problem.ParameterSpace.Canonicalize(p)
		require.NoError(t, err)
		canonical[i] = c
	}
	targets := f.EvaluateTable(space.TableFromPoints(canonical...), nil)
	mustRPC(t, ts, api.MethodRegister, api.RegisterParams{ID: info.ID, Parameters: params, Targets: targets}, nil)

	var vol api.ParetoVolumeResult
	mustRPC(t, ts, api.MethodParetoVolume, api.ParetoVolumeParams{ID: info.ID, NumSamples: 2000}, &vol)
	assert.Equal(t, 2000, vol.NumSamples)
	assert.Greater(t, vol.FrontierSize, 0)
	assert.True(t, vol.Interval.Contains(vol.Estimate))
	assert.LessOrEqual(t, vol.NumDominated, vol.NumSamples)
}

func TestSnapshotAndRestore(t *testing.T) {
	store, err := persistence.NewFSStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	srv, ts := newTestServer(t, WithSnapshotStore(store))

	info := createQuadratic(t, ts)
	params, targets := quadraticObservations()
	mustRPC(t, ts, api.MethodRegister, api.RegisterParams{ID: info.ID, Parameters: params, Targets: targets}, nil)

	// Inline snapshot, then restore under the same ID once the original is gone.
	var inline api.SnapshotResult
	mustRPC(t, ts, api.MethodSnapshot, api.SnapshotParams{ID: info.ID}, &inline)
	require.NotEmpty(t, inline.Data)

	e := rpc(t, ts, api.MethodRestore, api.RestoreParams{Data: inline.Data}, nil)
	require.NotNil(t, e, "restoring over a live optimizer must fail")
	assert.Equal(t, apperrors.CodeInvalidParams, e.Code)

	var original api.SuggestResult
	mustRPC(t, ts, api.MethodSuggest, api.SuggestParams{ID: info.ID}, &original)

	mustRPC(t, ts, api.MethodDelete, api.IDParams{ID: info.ID}, nil)
	var restored api.OptimizerInfo
	mustRPC(t, ts, api.MethodRestore, api.RestoreParams{Data: inline.Data}, &restored)
	assert.Equal(t, info.ID, restored.ID)
	assert.Equal(t, 16, restored.Observations)
	assert.True(t, restored.Trained)

	// The restored optimizer continues the original suggestion sequence.
	var replayed api.SuggestResult
	mustRPC(t, ts, api.MethodSuggest, api.SuggestParams{ID: info.ID}, &replayed)
	assert.Equal(t, original.Suggestion, replayed.Suggestion)

	// Stored snapshot, restored under a fresh ID.
	var stored api.SnapshotResult
	mustRPC(t, ts, api.MethodSnapshot, api.SnapshotParams{ID: info.ID, Store: true}, &stored)
	require.NotEmpty(t, stored.SnapshotID)
	assert.Empty(t, stored.Data)

	var copyInfo api.OptimizerInfo
	mustRPC(t, ts, api.MethodRestore, api.RestoreParams{SnapshotID: stored.SnapshotID, NewID: true}, &copyInfo)
	assert.NotEqual(t, info.ID, copyInfo.ID)
	assert.Equal(t, 16, copyInfo.Observations)
	assert.Equal(t, 2, srv.Len())

	var snaps api.SnapshotsResult
	mustRPC(t, ts, api.MethodSnapshots, nil, &snaps)
	require.Len(t, snaps.Snapshots, 1)
	assert.Equal(t, info.ID, snaps.Snapshots[0].OptimizerID)

	e = rpc(t, ts, api.MethodRestore, api.RestoreParams{SnapshotID: "snap_missing"}, nil)
	require.NotNil(t, e)
	assert.Equal(t, apperrors.CodeNotFound, e.Code)

	e = rpc(t, ts, api.MethodRestore, api.RestoreParams{Data: []byte("garbage")}, nil)
	require.NotNil(t, e)
	assert.Equal(t, apperrors.CodeInvalidParams, e.Code)
}

func TestSnapshotWithoutStore(t *testing.T) {
	_, ts := newTestServer(t)
	info := createQuadratic(t, ts)

	e := rpc(t, ts, api.MethodSnapshot, api.SnapshotParams{ID: info.ID, Store: true}, nil)
	require.NotNil(t, e)
	assert.Equal(t, apperrors.CodeInvalidParams, e.Code)

	var snaps api.SnapshotsResult
	mustRPC(t, ts, api.MethodSnapshots, nil, &snaps)
	assert.Empty(t, snaps.Snapshots)
}

func TestConfigGet(t *testing.T) {
	_, ts := newTestServer(t)

	var names api.ConfigGetResult
	mustRPC(t, ts, api.MethodConfigGet, nil, &names)
	assert.Contains(t, names.Names, config.DefaultConfigName)
	assert.Contains(t, names.Names, config.SwarmConfigName)
	assert.Nil(t, names.Config)

	var got api.ConfigGetResult
	mustRPC(t, ts, api.MethodConfigGet, api.ConfigGetParams{Name: config.PolynomialRegressionConfigName}, &got)
	require.NotNil(t, got.Config)
	want, err := config.NewStore().Get(config.PolynomialRegressionConfigName)
	require.NoError(t, err)
	assert.Equal(t, want, *got.Config)

	e := rpc(t, ts, api.MethodConfigGet, api.ConfigGetParams{Name: "missing"}, nil)
	require.NotNil(t, e)
	assert.Equal(t, apperrors.CodeNotFound, e.Code)
}

func TestRESTEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	info := createQuadratic(t, ts)

	get := func(path string) (*http.Response, map[string]interface{}) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp, body
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["optimizers"])

	resp, body = get("/api/v1/optimizers")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["optimizers"], 1)

	resp, body = get("/api/v1/optimizers/" + info.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, info.ID, body["id"])

	resp, body = get("/api/v1/optimizers/opt_missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, float64(apperrors.CodeNotFound), errBody["code"])

	resp, body = get("/api/v1/configs/" + config.DefaultConfigName)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["config"])

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/optimizers/"+info.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	resp, _ = get("/api/v1/optimizers/" + info.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallUnknownMethod(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t))
	_, err := srv.Call(context.Background(), "optimizer.unknown", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMethodNotFound, apperrors.RPCCode(err))
}

func TestNormalizeParams(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{``, ``, false},
		{`{"id":"a"}`, `{"id":"a"}`, false},
		{`[{"id":"a"}]`, `{"id":"a"}`, false},
		{`[]`, ``, false},
		{`[1,2]`, ``, true},
		{`[`, ``, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := normalizeParams(json.RawMessage(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
