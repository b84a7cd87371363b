package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/copyleftdev/bayesopt/internal/logging"
	"github.com/copyleftdev/bayesopt/internal/optimization"
)

func TestRPCCodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		sentinel error
	}{
		{"invalid observation", optimization.ErrInvalidObservation, CodeInvalidObservation, optimization.ErrInvalidObservation},
		{"incompatible shape", optimization.ErrIncompatibleShape, CodeIncompatibleShape, optimization.ErrIncompatibleShape},
		{"context required", optimization.ErrContextRequired, CodeContextRequired, optimization.ErrContextRequired},
		{"context not supported", optimization.ErrContextNotSupported, CodeContextNotSupported, optimization.ErrContextNotSupported},
		{"model not fitted", optimization.ErrModelNotFitted, CodeModelNotFitted, optimization.ErrModelNotFitted},
		{"unsupported query", optimization.ErrUnsupportedQuery, CodeUnsupportedQuery, optimization.ErrUnsupportedQuery},
		{"no observations", optimization.ErrNoObservations, CodeNoObservations, optimization.ErrNoObservations},
		{"insufficient dof", optimization.ErrInsufficientDegreesOfFreedom, CodeInsufficientDOF, optimization.ErrInsufficientDegreesOfFreedom},
		{"invalid argument", optimization.ErrInvalidArgument, CodeInvalidParams, optimization.ErrInvalidArgument},
		{"not found", ErrNotFound, CodeNotFound, ErrNotFound},
		{
			name:     "wrapped",
			err:      optimization.WrapError(optimization.ErrContextRequired, "context required").WithOperation("Optimizer.Suggest"),
			code:     CodeContextRequired,
			sentinel: optimization.ErrContextRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := RPCCode(tt.err)
			assert.Equal(t, tt.code, code)

			remote := FromRPCCode(code, tt.err.Error())
			assert.ErrorIs(t, remote, tt.sentinel)
			assert.True(t, optimization.IsLogical(remote) || tt.sentinel == ErrNotFound)
			assert.NotErrorIs(t, remote, optimization.ErrTransport)
		})
	}
}

func TestUnknownErrorsAreInternal(t *testing.T) {
	err := fmt.Errorf("disk full")
	assert.Equal(t, CodeInternal, RPCCode(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.ErrorIs(t, FromRPCCode(CodeInternal, "disk full"), optimization.ErrTransport)
	assert.ErrorIs(t, FromRPCCode(-1, "odd"), optimization.ErrTransport)
	assert.ErrorIs(t, FromRPCCode(CodeMethodNotFound, "no such method"), optimization.ErrInvalidArgument)
}

func TestStatusMappings(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(optimization.ErrModelNotFitted))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(optimization.ErrContextRequired))

	assert.Equal(t, codes.NotFound, GRPCCode(CodeNotFound))
	assert.Equal(t, codes.FailedPrecondition, GRPCCode(CodeNoObservations))
	assert.Equal(t, codes.InvalidArgument, GRPCCode(CodeIncompatibleShape))
	assert.Equal(t, codes.Internal, GRPCCode(CodeInternal))
}

func TestErrorWrapping(t *testing.T) {
	e := New(CodeNotFound, "optimizer opt_x not found").WithOperation("optimizer.describe").WithComponent("server")
	assert.ErrorIs(t, e, ErrNotFound)
	assert.Equal(t, "optimizer opt_x not found: operation=optimizer.describe, component=server: not found", e.Error())
	assert.NotEmpty(t, e.StackTrace())

	wrapped := Wrap(optimization.ErrNoObservations, "no rows yet")
	assert.Equal(t, CodeNoObservations, wrapped.Code)
	assert.ErrorIs(t, wrapped, optimization.ErrNoObservations)

	// An *Error keeps its code when wrapped again.
	again := Wrapf(fmt.Errorf("outer: %w", e), "lookup %s", "opt_x")
	assert.Equal(t, CodeNotFound, again.Code)
	assert.Equal(t, "lookup opt_x", again.Message)

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.True(t, Is(wrapped, optimization.ErrNoObservations))
	var target *Error
	assert.True(t, As(again, &target))
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.InfoLevel, &buf)
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("unexpected")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/optimizers", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInternal, body["error"].Code)
	assert.Contains(t, buf.String(), "Recovered from panic")
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	var buf bytes.Buffer
	interceptor := RecoveryUnaryInterceptor(logging.New(logging.InfoLevel, &buf))
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, func(context.Context, any) (any, error) {
		panic("unexpected")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Contains(t, buf.String(), "/x/Y")
}

func TestErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := ErrorHandler(logging.New(logging.InfoLevel, &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, optimization.ErrContextRequired)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rpc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, buf.String(), "Request error")
}
