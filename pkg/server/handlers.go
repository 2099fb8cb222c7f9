package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/depsentry/depsentry/pkg/buildinfo"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/graphio"
	"github.com/depsentry/depsentry/pkg/queue/redisq"
	"github.com/depsentry/depsentry/pkg/scan"
)

// ScanRequest is the POST /api/scans payload.
type ScanRequest struct {
	Repository string        `json:"repository"`
	Async      bool          `json:"async,omitempty"`
	Graph      graphio.Graph `json:"graph"`
}

// handleRoot returns the service banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"version": buildinfo.Version(),
		"status":  "running",
	})
}

// handleHealth reports backend connectivity. Anything short of fully
// healthy answers 503 so load balancers rotate the instance out.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health := map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": buildinfo.Version(),
	}

	if err := s.store.Ping(ctx); err != nil {
		health["mongodb"] = "error: " + errors.UserMessage(err)
		health["status"] = "unhealthy"
	} else {
		health["mongodb"] = "connected"
	}

	if s.queue == nil {
		health["redis"] = "not configured"
	} else if err := s.queue.Ping(ctx); err != nil {
		health["redis"] = "error: " + errors.UserMessage(err)
		if health["status"] == "healthy" {
			health["status"] = "degraded"
		}
	} else {
		health["redis"] = "connected"
	}

	code := http.StatusOK
	if health["status"] != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// handleStatus reports worker state, queue depth, and the active limits.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"service":        serviceName,
		"version":        buildinfo.Version(),
		"worker_running": s.worker != nil && s.worker.Running(),
		"configuration": map[string]any{
			"max_depth":          s.settings.Traversal.MaxDepth,
			"max_nodes":          s.settings.Traversal.MaxNodes,
			"max_processing_ms":  s.settings.Traversal.MaxProcessingMs,
			"max_circular_refs":  s.settings.Traversal.MaxCircularRefs,
			"queue":              s.settings.Redis.Queue,
			"mongodb_database":   s.settings.Mongo.Database,
			"max_retries":        s.settings.Redis.MaxRetries,
		},
	}

	if s.queue != nil {
		if depth, err := s.queue.Depth(r.Context()); err == nil {
			status["queue_depth"] = depth
		} else {
			status["queue_depth"] = "unavailable: " + errors.UserMessage(err)
		}
	}

	writeJSON(w, http.StatusOK, status)
}

// handleCreateScan scans a submitted graph. Synchronous requests run the
// scanner inline and return the persisted report; async requests enqueue a
// job and answer 202 with its ID.
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if req.Repository == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "repository is required"))
		return
	}

	if req.Async {
		if s.queue == nil {
			writeError(w, errors.New(errors.ErrCodeUnsupported, "async scanning requires a queue"))
			return
		}
		job := redisq.Job{
			ID:         scan.NewReportID(),
			Repository: req.Repository,
			Graph:      req.Graph,
		}
		if err := s.queue.Enqueue(r.Context(), job); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": job.ID, "status": "queued"})
		return
	}

	report, err := s.scanner.Scan(req.Repository, req.Graph)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), report); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// handleGetScan fetches one report by ID.
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListScans lists recent reports, optionally filtered by repository.
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be an integer in [1, 100]"))
			return
		}
		limit = n
	}

	reports, err := s.store.List(r.Context(), r.URL.Query().Get("repository"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []*scan.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps structured error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidNode, errors.ErrCodeInvalidGraph, errors.ErrCodeInvalidConfig:
		code = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeScanNotFound:
		code = http.StatusNotFound
	case errors.ErrCodeUnsupported:
		code = http.StatusNotImplemented
	case errors.ErrCodeStorage, errors.ErrCodeQueue:
		code = http.StatusBadGateway
	}

	writeJSON(w, code, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
