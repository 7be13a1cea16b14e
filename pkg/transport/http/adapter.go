package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/observability"
	"github.com/Renuka-M1115/multi-agent/pkg/storage"
	"github.com/Renuka-M1115/multi-agent/pkg/supervisor"
)

// JobService is the handler contract for the visualization job API.
// *supervisor.Supervisor satisfies it; tests substitute stubs.
type JobService interface {
	Submit(ctx context.Context, req *api.CreateJobRequest) (*api.CreateJobResponse, error)
	GetStatus(ctx context.Context, jobID string) (*api.JobStatus, error)
	GetResult(ctx context.Context, jobID string) (*api.WorkflowState, error)
	Cancel(ctx context.Context, jobID string) error
	List(ctx context.Context, limit int) (*api.JobList, error)
	HealthCheck(ctx context.Context) error
}

// Adapter serves the visualization job API over HTTP. It routes requests
// to the supervisor and serializes responses.
type Adapter struct {
	service     JobService
	mux         *http.ServeMux
	config      Config
	middlewares []Middleware
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// ArtifactDir is the directory the download endpoint serves final
	// artifacts from. Empty disables downloads.
	ArtifactDir string

	// MetricsEnabled exposes the Prometheus registry at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:    1 << 20, // 1 MB
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// NewAdapter creates an HTTP adapter over the given job service.
// Middleware is applied to the full route set in the given order.
func NewAdapter(service JobService, cfg Config, middlewares ...Middleware) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		service: service,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /api/v1/visualizations", a.handleSubmit)
	a.mux.HandleFunc("GET /api/v1/visualizations/{id}", a.handleStatus)
	a.mux.HandleFunc("GET /api/v1/visualizations/{id}/result", a.handleResult)
	a.mux.HandleFunc("POST /api/v1/visualizations/{id}/cancel", a.handleCancel)
	a.mux.HandleFunc("GET /api/v1/visualizations/{id}/download", a.handleDownload)
	a.mux.HandleFunc("GET /api/v1/jobs", a.handleList)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		a.mux.Handle("GET "+path, promhttp.Handler())
	}

	a.middlewares = middlewares
	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	if len(a.middlewares) == 0 {
		return a.mux
	}
	return Chain(a.middlewares...)(a.mux)
}

// handleSubmit handles POST /api/v1/visualizations.
func (a *Adapter) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	resp, err := a.service.Submit(r.Context(), &req)
	if err != nil {
		a.writeServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// handleStatus handles GET /api/v1/visualizations/{id}.
func (a *Adapter) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := a.jobID(w, r)
	if !ok {
		return
	}

	st, err := a.service.GetStatus(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// handleResult handles GET /api/v1/visualizations/{id}/result.
func (a *Adapter) handleResult(w http.ResponseWriter, r *http.Request) {
	id, ok := a.jobID(w, r)
	if !ok {
		return
	}

	result, err := a.service.GetResult(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err, id)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles POST /api/v1/visualizations/{id}/cancel.
func (a *Adapter) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := a.jobID(w, r)
	if !ok {
		return
	}

	if err := a.service.Cancel(r.Context(), id); err != nil {
		a.writeServiceError(w, err, id)
		return
	}

	st, err := a.service.GetStatus(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleDownload handles GET /api/v1/visualizations/{id}/download.
// It serves the final artifact of a completed job from the artifact
// directory.
func (a *Adapter) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := a.jobID(w, r)
	if !ok {
		return
	}

	result, err := a.service.GetResult(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err, id)
		return
	}

	if a.config.ArtifactDir == "" || result.FinalArtifactReference == "" {
		WriteAPIError(w, api.NewNotFoundError("no artifact available for job "+id))
		return
	}

	// Artifact references are bare file names; Base strips any path
	// component so the lookup cannot escape the artifact directory.
	name := filepath.Base(result.FinalArtifactReference)
	path := filepath.Join(a.config.ArtifactDir, name)
	if _, statErr := os.Stat(path); statErr != nil {
		WriteAPIError(w, api.NewNotFoundError("artifact "+name+" not found"))
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

// handleList handles GET /api/v1/jobs.
func (a *Adapter) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			WriteErrorResponse(w,
				api.NewInvalidRequestError("limit", "limit must be a positive integer"),
				http.StatusBadRequest,
			)
			return
		}
		limit = n
	}

	list, err := a.service.List(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.service.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jobID extracts and validates the {id} path value. On failure it writes
// the error response and reports false.
func (a *Adapter) jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !api.ValidateJobID(id) {
		WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed job ID"),
			http.StatusBadRequest,
		)
		return "", false
	}
	return id, true
}

// writeServiceError translates supervisor and storage errors into the JSON
// error envelope.
func (a *Adapter) writeServiceError(w http.ResponseWriter, err error, jobID string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteAPIError(w, api.NewNotFoundError("job "+jobID+" not found"))
	case errors.Is(err, supervisor.ErrNotCompleted):
		WriteAPIError(w, api.NewConflictError("job "+jobID+" has not completed"))
	default:
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			WriteAPIError(w, apiErr)
			return
		}
		WriteAPIError(w, api.NewServerError(err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// DefaultMiddleware returns the standard middleware chain: recovery,
// request ID, logging, and Prometheus request metrics.
func DefaultMiddleware(logger *slog.Logger) []Middleware {
	return []Middleware{
		Recovery(logger),
		RequestID(),
		Logging(logger),
		observability.MetricsMiddleware,
	}
}
