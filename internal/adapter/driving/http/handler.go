package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/guardiansync/internal/application"
	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
)

// DefaultListLimit is the number of runs returned when no limit is given.
const DefaultListLimit = 20

const maxListLimit = 100

// SyncRunner starts sync runs and reports whether one is active.
type SyncRunner interface {
	Run(ctx context.Context, trigger model.RunTrigger) (model.Run, error)
	Running() bool
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	runner   SyncRunner
	runStore driven.RunStore
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(runner SyncRunner, runStore driven.RunStore, logger *slog.Logger) *Handler {
	return &Handler{
		runner:   runner,
		runStore: runStore,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers the JSON API routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/runs", h.TriggerRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// TriggerRun executes a sync run synchronously and returns its result. A run
// that failed is still reported with 200; its status says so.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnected client so cleanup always completes.
	ctx := context.WithoutCancel(r.Context())

	run, err := h.runner.Run(ctx, model.TriggerAPI)
	if errors.Is(err, application.ErrRunInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("sync run aborted", "run_id", run.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, toRunResponse(run, true))
}

// ListRuns returns the most recent runs, newest first, without transcripts.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	runs, err := h.runStore.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run, false))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single run with its transcript.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.runStore.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run, true))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Running: h.runner.Running(),
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}
