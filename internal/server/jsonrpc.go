package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/metrics"
)

const transportJSONRPC = "jsonrpc"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, apperrors.CodeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, apperrors.CodeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	label := request.Method
	if _, ok := s.handlers[request.Method]; !ok {
		label = "unknown"
	}
	start := time.Now()
	result, err := s.dispatch(r, request)
	metrics.RPCRequestDuration.WithLabelValues(transportJSONRPC, label).Observe(time.Since(start).Seconds())
	metrics.RPCRequestsTotal.WithLabelValues(transportJSONRPC, label, metrics.Outcome(err)).Inc()

	if err != nil {
		code := apperrors.RPCCode(err)
		fields := map[string]interface{}{"method": request.Method, "code": code, "error": err.Error()}
		if code == apperrors.CodeInternal {
			s.logger.Error("RPC call failed", fields)
		} else {
			s.logger.Debug("RPC call rejected", fields)
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	// Send successful response
	writeJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      idOrNull(request.ID),
		Result:  result,
	})
}

func (s *Server) dispatch(r *http.Request, request rpcRequest) (interface{}, error) {
	params, err := normalizeParams(request.Params)
	if err != nil {
		return nil, err
	}
	return s.Call(r.Context(), request.Method, params)
}

// normalizeParams accepts a params object or a one-element params array and
// returns the object.
func normalizeParams(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return raw, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, apperrors.Errorf(apperrors.CodeInvalidParams, "invalid params: %v", err)
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return nil, apperrors.Errorf(apperrors.CodeInvalidParams, "expected a single params object, got %d", len(list))
	}
}

// respondWithError sends a JSON-RPC error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id json.RawMessage) {
	writeJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      idOrNull(id),
		Error: &rpcError{
			Code:    code,
			Message: message,
		},
	})
}

func idOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
