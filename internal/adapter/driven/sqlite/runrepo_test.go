package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func makeRun(id string, startOffset time.Duration, status model.RunStatus) model.Run {
	start := baseTime.Add(startOffset)
	return model.Run{
		ID:         id,
		Trigger:    model.TriggerWeb,
		Status:     status,
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Fetched:    2,
		Inserted:   2,
		Marked:     1,
		MarkFailed: 1,
		Events: []model.Event{
			{Time: start, Level: "INFO", Stage: model.StageLogin, Message: "login succeeded, bearer token stored"},
			{Time: start.Add(time.Second), Level: "ERROR", Stage: model.StageMark, Message: "marking partner imported failed",
				Attrs: "code=1002", Detail: "error.details:\n{\n    \"status\": \"0\"\n}"},
		},
	}
}

func TestRunRepo_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()

	run := makeRun("run-1", 0, model.RunStatusFailed)
	run.Error = "mark: 1 of 2 partners could not be marked imported"
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, run, *got)
}

func TestRunRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunRepo_SaveUpdatesAndReplacesEvents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()

	running := model.Run{ID: "run-1", Trigger: model.TriggerAPI, Status: model.RunStatusRunning, StartedAt: baseTime}
	require.NoError(t, repo.Save(ctx, running))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.True(t, got.FinishedAt.IsZero())
	assert.Empty(t, got.Events)

	finished := makeRun("run-1", 0, model.RunStatusSucceeded)
	finished.Events = finished.Events[:1]
	require.NoError(t, repo.Save(ctx, finished))

	got, err = repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	assert.Equal(t, finished.FinishedAt, got.FinishedAt)
	assert.Len(t, got.Events, 1)

	finished.Events = nil
	require.NoError(t, repo.Save(ctx, finished))
	got, err = repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got.Events)
}

func TestRunRepo_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, repo.Save(ctx, makeRun(fmt.Sprintf("run-%d", i), time.Duration(i)*time.Minute, model.RunStatusSucceeded)))
	}

	runs, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-3", runs[1].ID)
	assert.Equal(t, "run-2", runs[2].ID)
	assert.Empty(t, runs[0].Events, "listing does not load transcripts")
	assert.Equal(t, 2, runs[0].Fetched)
}

func TestRunRepo_ListRecentEmpty(t *testing.T) {
	db := setupTestDB(t)

	runs, err := NewRunRepo(db).ListRecent(context.Background(), 20)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRepo_FailInterrupted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRunRepo(db)
	ctx := context.Background()

	stale := model.Run{ID: "run-stale", Trigger: model.TriggerSchedule, Status: model.RunStatusRunning, StartedAt: baseTime}
	require.NoError(t, repo.Save(ctx, stale))
	require.NoError(t, repo.Save(ctx, makeRun("run-done", time.Minute, model.RunStatusSucceeded)))

	recoveredAt := baseTime.Add(time.Hour)
	n, err := repo.FailInterrupted(ctx, recoveredAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, "run-stale")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, InterruptedRunError, got.Error)
	assert.True(t, recoveredAt.Equal(got.FinishedAt))

	done, err := repo.Get(ctx, "run-done")
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Equal(t, model.RunStatusSucceeded, done.Status)
	assert.Empty(t, done.Error)

	n, err = repo.FailInterrupted(ctx, recoveredAt)
	require.NoError(t, err)
	assert.Zero(t, n, "second pass finds nothing running")
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, RunMigrations(db.Writer))
}

func TestNewDB_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, path, db.Path())
	require.NoError(t, RunMigrations(db.Writer))

	repo := NewRunRepo(db)
	require.NoError(t, repo.Save(context.Background(), makeRun("run-1", 0, model.RunStatusSucceeded)))

	runs, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2026-03-01T09:00:00.000000000Z", "2026-03-01T09:00:00Z", "2026-03-01 09:00:00"} {
		got, err := parseTime(s)
		require.NoError(t, err, s)
		assert.True(t, baseTime.Equal(got), s)
	}

	_, err := parseTime("yesterday")
	assert.Error(t, err)
}
