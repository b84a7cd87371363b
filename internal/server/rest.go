package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/bayesopt/internal/api"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
)

// handleListOptimizers handles GET /api/v1/optimizers.
func (s *Server) handleListOptimizers(w http.ResponseWriter, r *http.Request) {
	s.serveMethod(w, r, api.MethodList, nil)
}

// handleDescribeOptimizer handles GET /api/v1/optimizers/{id}.
func (s *Server) handleDescribeOptimizer(w http.ResponseWriter, r *http.Request) {
	s.serveMethod(w, r, api.MethodDescribe, api.IDParams{ID: chi.URLParam(r, "id")})
}

// handleDeleteOptimizer handles DELETE /api/v1/optimizers/{id}.
func (s *Server) handleDeleteOptimizer(w http.ResponseWriter, r *http.Request) {
	s.serveMethod(w, r, api.MethodDelete, api.IDParams{ID: chi.URLParam(r, "id")})
}

// handleListConfigs handles GET /api/v1/configs.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	s.serveMethod(w, r, api.MethodConfigGet, nil)
}

// handleGetConfig handles GET /api/v1/configs/{name}.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.serveMethod(w, r, api.MethodConfigGet, api.ConfigGetParams{Name: chi.URLParam(r, "name")})
}

func (s *Server) serveMethod(w http.ResponseWriter, r *http.Request, method string, params interface{}) {
	var raw []byte
	if params != nil {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			apperrors.WriteJSON(w, apperrors.Wrap(err, "encoding params"))
			return
		}
	}
	result, err := s.Call(r.Context(), method, raw)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
