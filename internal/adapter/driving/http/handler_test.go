package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/guardiansync/internal/adapter/driving/http"
	"github.com/ericfisherdev/guardiansync/internal/application"
	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// --- Mock implementations ---

type mockRunner struct {
	run      model.Run
	err      error
	running  bool
	triggers []model.RunTrigger
	ctxErr   error
}

func (m *mockRunner) Run(ctx context.Context, trigger model.RunTrigger) (model.Run, error) {
	m.triggers = append(m.triggers, trigger)
	m.ctxErr = ctx.Err()
	return m.run, m.err
}

func (m *mockRunner) Running() bool { return m.running }

type mockRunStore struct {
	runs      []model.Run
	run       *model.Run
	err       error
	lastLimit int
}

func (m *mockRunStore) Save(_ context.Context, _ model.Run) error { return nil }
func (m *mockRunStore) Get(_ context.Context, _ string) (*model.Run, error) {
	return m.run, m.err
}
func (m *mockRunStore) ListRecent(_ context.Context, limit int) ([]model.Run, error) {
	m.lastLimit = limit
	return m.runs, m.err
}

// --- Helpers ---

var started = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleRun(id string) model.Run {
	return model.Run{
		ID:         id,
		Trigger:    model.TriggerAPI,
		Status:     model.RunStatusSucceeded,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Fetched:    2,
		Inserted:   2,
		Marked:     2,
		Events: []model.Event{
			{Time: started, Level: "INFO", Stage: model.StageLogin, Message: "login succeeded, bearer token stored"},
		},
	}
}

func setupMux(runner *mockRunner, store *mockRunStore) http.Handler {
	h := httphandler.NewHandler(runner, store, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, h)
	return httphandler.ApplyMiddleware(mux, slog.Default())
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// --- Tests ---

func TestTriggerRun(t *testing.T) {
	tests := []struct {
		name       string
		runner     *mockRunner
		wantStatus int
		wantRunID  string
	}{
		{
			name:       "success",
			runner:     &mockRunner{run: sampleRun("run-1")},
			wantStatus: http.StatusOK,
			wantRunID:  "run-1",
		},
		{
			name: "failed run still reported",
			runner: &mockRunner{run: model.Run{
				ID: "run-2", Status: model.RunStatusFailed, Error: "login: HTTP 401", StartedAt: started,
			}},
			wantStatus: http.StatusOK,
			wantRunID:  "run-2",
		},
		{
			name: "fatal database error still reported",
			runner: &mockRunner{
				run: model.Run{ID: "run-3", Status: model.RunStatusFailed, StartedAt: started},
				err: errors.New("open destination database: refused"),
			},
			wantStatus: http.StatusOK,
			wantRunID:  "run-3",
		},
		{
			name:       "run in progress",
			runner:     &mockRunner{err: application.ErrRunInProgress},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(tt.runner, &mockRunStore{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, []model.RunTrigger{model.TriggerAPI}, tt.runner.triggers)

			if tt.wantStatus != http.StatusOK {
				var body map[string]string
				decodeJSON(t, rec, &body)
				assert.NotEmpty(t, body["error"])
				return
			}

			var resp httphandler.RunResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantRunID, resp.ID)
			assert.Equal(t, string(tt.runner.run.Status), resp.Status)
		})
	}
}

func TestTriggerRun_IncludesTranscript(t *testing.T) {
	runner := &mockRunner{run: sampleRun("run-1")}
	mux := setupMux(runner, &mockRunStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp httphandler.RunResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "login", resp.Events[0].Stage)
	assert.Equal(t, int64(1500), resp.DurationMS)
	assert.Equal(t, "2026-03-01T09:00:01Z", resp.FinishedAt)
}

func TestTriggerRun_OutlivesClientCancel(t *testing.T) {
	runner := &mockRunner{run: sampleRun("run-1")}
	mux := setupMux(runner, &mockRunStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.NoError(t, runner.ctxErr, "run context must not inherit request cancellation")
}

func TestListRuns(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		store      *mockRunStore
		wantStatus int
		wantCount  int
		wantLimit  int
	}{
		{
			name:       "default limit",
			store:      &mockRunStore{runs: []model.Run{sampleRun("a"), sampleRun("b")}},
			wantStatus: http.StatusOK,
			wantCount:  2,
			wantLimit:  httphandler.DefaultListLimit,
		},
		{
			name:       "explicit limit",
			query:      "?limit=5",
			store:      &mockRunStore{runs: []model.Run{sampleRun("a")}},
			wantStatus: http.StatusOK,
			wantCount:  1,
			wantLimit:  5,
		},
		{
			name:       "empty history",
			store:      &mockRunStore{},
			wantStatus: http.StatusOK,
			wantCount:  0,
			wantLimit:  httphandler.DefaultListLimit,
		},
		{
			name:       "invalid limit",
			query:      "?limit=0",
			store:      &mockRunStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-numeric limit",
			query:      "?limit=ten",
			store:      &mockRunStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store error",
			store:      &mockRunStore{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
			wantLimit:  httphandler.DefaultListLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(&mockRunner{}, tt.store)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs"+tt.query, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimit, tt.store.lastLimit)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp []httphandler.RunResponse
			decodeJSON(t, rec, &resp)
			assert.Len(t, resp, tt.wantCount)
			for _, r := range resp {
				assert.Empty(t, r.Events, "list omits transcripts")
			}
		})
	}
}

func TestGetRun(t *testing.T) {
	run := sampleRun("run-1")

	tests := []struct {
		name       string
		store      *mockRunStore
		wantStatus int
	}{
		{name: "found", store: &mockRunStore{run: &run}, wantStatus: http.StatusOK},
		{name: "not found", store: &mockRunStore{}, wantStatus: http.StatusNotFound},
		{name: "store error", store: &mockRunStore{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := setupMux(&mockRunner{}, tt.store)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var resp httphandler.RunResponse
				decodeJSON(t, rec, &resp)
				assert.Equal(t, "run-1", resp.ID)
				assert.Len(t, resp.Events, 1)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	mux := setupMux(&mockRunner{running: true}, &mockRunStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var resp httphandler.HealthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Running)
	assert.NotEmpty(t, resp.Time)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := setupMux(&mockRunner{}, &mockRunStore{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := httphandler.ApplyMiddleware(panicking, slog.New(slog.DiscardHandler))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestApplyMiddleware_LogsPanicAsServerError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	httphandler.ApplyMiddleware(panicking, logger).ServeHTTP(rec, req)

	var entries []map[string]any
	dec := json.NewDecoder(&logs)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, "handler panicked", entries[0]["msg"])
	assert.Equal(t, "boom", entries[0]["panic"])
	assert.Equal(t, "POST", entries[0]["method"])
	assert.Equal(t, "http request", entries[1]["msg"])
	assert.InDelta(t, http.StatusInternalServerError, entries[1]["status"], 0)
	assert.Equal(t, "/api/v1/runs", entries[1]["path"])
}
