package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/copyleftdev/bayesopt/internal/api"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/optimization"
)

// Transport carries RPC calls to an optimizer service. Logical failures are
// returned as errors matching the taxonomy sentinels; anything that went
// wrong on the way matches optimization.ErrTransport.
type Transport interface {
	// Call invokes method with params and decodes the result into result,
	// which may be nil.
	Call(ctx context.Context, method string, params, result interface{}) error
	// Ping reports whether the service is reachable and serving.
	Ping(ctx context.Context) error
	Close() error
}

// DefaultTimeout bounds a single round trip on either transport.
const DefaultTimeout = 30 * time.Second

func transportError(format string, args ...interface{}) error {
	return optimization.WrapErrorf(optimization.ErrTransport, format, args...).WithComponent("remote")
}

// JSONRPCTransport speaks JSON-RPC 2.0 over HTTP.
type JSONRPCTransport struct {
	baseURL string
	client  *http.Client
	nextID  atomic.Int64
}

// NewJSONRPCTransport creates a transport for the service at baseURL. A
// non-positive timeout means DefaultTimeout.
func NewJSONRPCTransport(baseURL string, timeout time.Duration) *JSONRPCTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &JSONRPCTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call implements Transport.
func (t *JSONRPCTransport) Call(ctx context.Context, method string, params, result interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      t.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return apperrors.Errorf(apperrors.CodeInvalidParams, "encoding %s params: %v", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+api.RPCEndpoint, bytes.NewReader(body))
	if err != nil {
		return transportError("building %s request: %v", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return transportError("%s: %v", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return transportError("%s: unexpected status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return transportError("%s: malformed response: %v", method, err)
	}
	if envelope.Error != nil {
		return apperrors.FromRPCCode(envelope.Error.Code, envelope.Error.Message)
	}
	if envelope.JSONRPC != "2.0" {
		return transportError("%s: malformed response: jsonrpc version %q", method, envelope.JSONRPC)
	}
	if result == nil {
		return nil
	}
	if len(envelope.Result) == 0 {
		return transportError("%s: malformed response: missing result", method)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return transportError("%s: malformed result: %v", method, err)
	}
	return nil
}

// Ping implements Transport with GET /healthz.
func (t *JSONRPCTransport) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+api.HealthEndpoint, nil)
	if err != nil {
		return transportError("building health request: %v", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return transportError("health check: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return transportError("health check: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (t *JSONRPCTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// GRPCTransport calls bayesopt.v1.OptimizerService with Struct messages.
type GRPCTransport struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	timeout time.Duration
}

// NewGRPCTransport creates a transport for target. A non-positive timeout
// means DefaultTimeout; it applies to calls whose context has no deadline.
// Without dial options the connection is insecure.
func NewGRPCTransport(target string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCTransport, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, transportError("creating gRPC client for %s: %v", target, err)
	}
	return &GRPCTransport{conn: conn, health: healthpb.NewHealthClient(conn), timeout: timeout}, nil
}

// bound gives ctx the transport timeout unless the caller already set a
// deadline.
func (t *GRPCTransport) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

// Call implements Transport.
func (t *GRPCTransport) Call(ctx context.Context, method string, params, result interface{}) error {
	full, ok := api.GRPCFullMethod(method)
	if !ok {
		return apperrors.Errorf(apperrors.CodeMethodNotFound, "method %q not found", method)
	}

	in, err := toStruct(params)
	if err != nil {
		return apperrors.Errorf(apperrors.CodeInvalidParams, "encoding %s params: %v", method, err)
	}

	ctx, cancel := t.bound(ctx)
	defer cancel()

	out := new(structpb.Struct)
	var trailer metadata.MD
	if err := t.conn.Invoke(ctx, full, in, out, grpc.Trailer(&trailer)); err != nil {
		if c := status.Code(err); c == codes.DeadlineExceeded || c == codes.Canceled {
			return transportError("%s: %v", method, err)
		}
		if values := trailer.Get(api.ErrorCodeKey); len(values) > 0 {
			if code, convErr := strconv.Atoi(values[0]); convErr == nil {
				return apperrors.FromRPCCode(code, status.Convert(err).Message())
			}
		}
		return transportError("%s: %v", method, err)
	}

	if result == nil {
		return nil
	}
	data, err := protojson.Marshal(out)
	if err != nil {
		return transportError("%s: malformed response: %v", method, err)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return transportError("%s: malformed result: %v", method, err)
	}
	return nil
}

// Ping implements Transport with the standard health service.
func (t *GRPCTransport) Ping(ctx context.Context) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	resp, err := t.health.Check(ctx, &healthpb.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		return transportError("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return transportError("health check: service is %s", resp.GetStatus())
	}
	return nil
}

// Close closes the connection.
func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if v == nil {
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("params must encode as a JSON object: %w", err)
	}
	return out, nil
}
