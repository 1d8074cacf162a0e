package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the JSON representation of a sync run.
type RunResponse struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Fetched    int             `json:"fetched"`
	Inserted   int             `json:"inserted"`
	Marked     int             `json:"marked"`
	MarkFailed int             `json:"mark_failed"`
	Events     []EventResponse `json:"events,omitempty"`
}

// EventResponse is one transcript line.
type EventResponse struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Attrs   string `json:"attrs,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Time    string `json:"time"`
}

// toRunResponse converts a domain Run to its JSON representation. Events are
// included only when withEvents is set.
func toRunResponse(run model.Run, withEvents bool) RunResponse {
	resp := RunResponse{
		ID:         run.ID,
		Trigger:    string(run.Trigger),
		Status:     string(run.Status),
		Error:      run.Error,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		DurationMS: run.Duration().Milliseconds(),
		Fetched:    run.Fetched,
		Inserted:   run.Inserted,
		Marked:     run.Marked,
		MarkFailed: run.MarkFailed,
	}
	if !run.FinishedAt.IsZero() {
		resp.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
	}

	if withEvents {
		resp.Events = make([]EventResponse, 0, len(run.Events))
		for _, ev := range run.Events {
			resp.Events = append(resp.Events, EventResponse{
				Time:    ev.Time.UTC().Format(time.RFC3339Nano),
				Level:   ev.Level,
				Stage:   ev.Stage,
				Message: ev.Message,
				Attrs:   ev.Attrs,
				Detail:  ev.Detail,
			})
		}
	}

	return resp
}
