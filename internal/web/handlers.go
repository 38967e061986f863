package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-chi/chi/v5"

	"github.com/ToniPaltus/airflow-intro/internal/app"
	"github.com/ToniPaltus/airflow-intro/internal/load"
)

// maxTriggerBody caps the POST /api/runs body.
const maxTriggerBody = 64 << 10

type triggerRequest struct {
	File string `json:"file"`
}

type runResponse struct {
	app.RunResult
	DurationMS int64 `json:"duration_ms"`
}

func newRunResponse(r app.RunResult) runResponse {
	return runResponse{RunResult: r, DurationMS: durationMS(r.Duration)}
}

type healthResponse struct {
	Status      string            `json:"status"`
	Destination load.Destination  `json:"destination"`
	Source      string            `json:"source"`
	Runs        app.LimiterStatus `json:"runs"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Destination: s.runner.Destination(),
		Source:      s.runner.Pattern(),
		Runs:        s.runner.Limiter().Status(),
	})
}

// handleTriggerRun handles POST /api/runs. The body is optional; a "file"
// must match the configured source pattern.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxTriggerBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if req.File != "" && !s.allowedFile(req.File) {
		respondBadRequest(w, "file does not match the configured source pattern")
		return
	}

	// The run outlives a disconnecting client; shutdown waits on the limiter.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.runner.Run(ctx, req.File)
	if err != nil {
		s.respondError(w, r, err, 0, res.ID)
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(res))
}

// handleListRuns handles GET /api/runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.runner.History().List()
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = newRunResponse(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetRun handles GET /api/runs/{runID}.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	run, ok := s.runner.History().Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "run not found",
			Message: "No recent run has this id",
			Code:    "RUN404",
		})
		return
	}
	writeJSON(w, http.StatusOK, newRunResponse(run))
}

func (s *Server) allowedFile(file string) bool {
	pattern := filepath.Clean(s.runner.Pattern())
	file = filepath.Clean(file)
	if file == pattern {
		return true
	}
	ok, err := doublestar.PathMatch(pattern, file)
	return err == nil && ok
}
