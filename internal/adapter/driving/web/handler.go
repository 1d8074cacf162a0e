// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/guardiansync/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/guardiansync/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/guardiansync/internal/application"
	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
)

// recentRuns is the number of runs listed on the dashboard.
const recentRuns = 20

const pageTitle = "guardiansync"

// SyncRunner starts sync runs and reports whether one is active.
type SyncRunner interface {
	Run(ctx context.Context, trigger model.RunTrigger) (model.Run, error)
	Running() bool
}

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	runner   SyncRunner
	runStore driven.RunStore
	schedule string
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. schedule is
// shown on the dashboard and may be empty.
func NewHandler(runner SyncRunner, runStore driven.RunStore, schedule string, logger *slog.Logger) *Handler {
	return &Handler{
		runner:   runner,
		runStore: runStore,
		schedule: schedule,
		logger:   logger,
	}
}

// Dashboard renders the trigger form and the recent run list.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, "")
}

// TriggerRun runs the pipeline synchronously and renders its transcript.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	// The run outlives a disconnected browser so cleanup always completes.
	run, err := h.runner.Run(context.WithoutCancel(r.Context()), model.TriggerWeb)
	if errors.Is(err, application.ErrRunInProgress) {
		h.renderDashboard(w, r, http.StatusConflict, "A sync run is already in progress. Try again when it finishes.")
		return
	}
	if err != nil {
		h.logger.Error("sync run aborted", "run_id", run.ID, "error", err)
	}

	h.render(w, r, http.StatusOK, templates.RunDetail(toRunViewModel(run)))
}

// ShowRun renders a stored run and its transcript.
func (h *Handler) ShowRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.runStore.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load run", "run_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.NotFound(w, r)
		return
	}

	h.render(w, r, http.StatusOK, templates.RunDetail(toRunViewModel(*run)))
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, notice string) {
	runs, err := h.runStore.ListRecent(r.Context(), recentRuns)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := vm.DashboardViewModel{
		CSRFToken: csrfToken(w, r),
		Running:   h.runner.Running(),
		Schedule:  h.schedule,
		Runs:      toRunSummaryViewModels(runs),
		Notice:    notice,
	}

	h.render(w, r, status, templates.Dashboard(page))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := templates.Layout(pageTitle, body).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}
