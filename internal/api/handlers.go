package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zero-day-ai/clausegraph/internal/database"
	"github.com/zero-day-ai/clausegraph/internal/pipeline"
	"github.com/zero-day-ai/clausegraph/internal/types"
	"github.com/zero-day-ai/clausegraph/pkg/version"
)

// AnalyzeRequest is the JSON body of POST /api/v1/analyze. A text/plain body
// is accepted as the contract text directly.
type AnalyzeRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// AnalyzeResponse wraps the terminal pipeline state.
type AnalyzeResponse struct {
	pipeline.State
	HasCriticalFindings bool   `json:"has_critical_findings"`
	ArchiveError        string `json:"archive_error,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, version.Info())
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	req, err := decodeAnalyzeRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error(), string(types.VALIDATION_FAILED))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required", string(types.VALIDATION_FAILED))
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	state, err := s.service.Analyze(r.Context(), req.Source, req.Text)
	resp := AnalyzeResponse{State: state, HasCriticalFindings: state.HasCriticalFindings()}
	if err != nil {
		s.logger.Warn("analysis finished but was not archived", "run_id", state.RunID, "error", err)
		resp.ArchiveError = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func decodeAnalyzeRequest(r *http.Request) (AnalyzeRequest, error) {
	var req AnalyzeRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return req, err
		}
		req.Text = string(data)
		req.Source = r.URL.Query().Get("source")
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, err
		}
		return req, errors.New("invalid JSON")
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.service.Health(r.Context())
	status := http.StatusOK
	if h.Status == types.HealthStateUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, h)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, "failed to read graph stats", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"nodes": stats})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.RunFilter{Limit: 20}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500", string(types.VALIDATION_FAILED))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer", string(types.VALIDATION_FAILED))
			return
		}
		filter.Offset = n
	}
	filter.CriticalOnly, _ = strconv.ParseBool(q.Get("critical"))

	runs, err := s.service.Runs(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, "failed to list runs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.service.Run(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, "failed to get run", err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// writeServiceError maps error codes to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, message string, err error) {
	var e *types.Error
	if !errors.As(err, &e) {
		s.logger.Error(message, "error", err)
		s.writeError(w, http.StatusInternalServerError, message, "")
		return
	}

	status := http.StatusInternalServerError
	switch e.Code {
	case types.DB_NOT_FOUND:
		status = http.StatusNotFound
	case types.VALIDATION_FAILED:
		status = http.StatusBadRequest
	case types.CONNECTION_FAILED, types.CONNECTION_CLOSED, types.TRANSIENT_FAILURE:
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.logger.Error(message, "error", err)
	}
	s.writeError(w, status, e.Message, string(e.Code))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, code string) {
	var resp ErrorResponse
	resp.Error.Message = message
	resp.Error.Status = status
	resp.Error.Code = code
	s.writeJSON(w, status, resp)
}
