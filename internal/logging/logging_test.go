package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		out = append(out, e)
	}
	return out
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.WithField("optimizer_id", "opt_1").Warn("kept", map[string]interface{}{"observations": 3})
	logger.WithError(errors.New("boom")).Error("failed")

	got := entries(t, &buf)
	require.Len(t, got, 2)

	assert.Equal(t, "kept", got[0]["message"])
	assert.Equal(t, "WARN", got[0]["level"])
	assert.Equal(t, "opt_1", got[0]["optimizer_id"])
	assert.Equal(t, float64(3), got[0]["observations"])
	assert.Contains(t, got[0], "timestamp")
	assert.Contains(t, got[0]["caller"], "logging/logging_test.go")

	assert.Equal(t, "ERROR", got[1]["level"])
	assert.Equal(t, "boom", got[1]["error"])

	assert.False(t, logger.Enabled(InfoLevel))
	assert.True(t, logger.Enabled(ErrorLevel))
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(InfoLevel, &buf)
	_ = parent.WithFields(map[string]interface{}{"child": true})
	parent.Info("parent")

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "child")
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	logger, err := NewLogger(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Debug("to file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)

	_, err = NewLogger(&Config{Format: "xml"})
	assert.Error(t, err)

	_, err = NewLogger(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)

	logger, err = NewLogger(nil)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(InfoLevel))
	assert.False(t, logger.Enabled(DebugLevel))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"Error", ErrorLevel},
		{"fatal", FatalLevel},
		{"verbose", InfoLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &CtxLogger{New(InfoLevel, &buf).WithField("request_id", "r1")}
	ctx := logger.WithContext(context.Background())

	FromContext(ctx).Info("from context")
	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0]["request_id"])

	assert.NotNil(t, FromContext(context.Background()))
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	var inner *CtxLogger
	handler := middleware.RequestID(Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = FromContext(r.Context())
		http.Error(w, "nope", http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/optimizers/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, inner)

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "Request completed", got[0]["message"])
	assert.Equal(t, float64(http.StatusNotFound), got[0]["status"])
	assert.Equal(t, "/api/v1/optimizers/x", got[0]["path"])
	assert.Equal(t, "Not Found", got[0]["error"])
	assert.NotEmpty(t, got[0]["request_id"])
}

func TestUnaryServerInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := UnaryServerInterceptor(New(InfoLevel, &buf))
	info := &grpc.UnaryServerInfo{FullMethod: "/bayesopt.v1.OptimizerService/Suggest"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "unknown optimizer")
	})
	require.Error(t, err)

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, info.FullMethod, got[0]["grpc_method"])
	assert.Equal(t, "NotFound", got[0]["code"])
}

func TestGRPCAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewGRPCAdapter(New(InfoLevel, &buf), 2)

	adapter.Infof("channel %d created", 7)
	adapter.Warningln("transport", "closing")
	adapter.Info("subchannel ready")

	got := entries(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "channel 7 created", got[0]["message"])
	assert.Equal(t, "transport closing", got[1]["message"])
	assert.Equal(t, "WARN", got[1]["level"])

	assert.True(t, adapter.V(0))
	assert.False(t, adapter.V(1), "verbose gRPC logging needs debug")

	debug := NewGRPCAdapter(FromZap(zap.NewNop()), 2)
	assert.False(t, debug.V(1))
}
