package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// timeLayout is the fixed-width UTC layout used for every stored timestamp so
// that lexical ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts or updates a run and atomically replaces its transcript.
func (r *RunRepo) Save(ctx context.Context, run model.Run) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const upsertQuery = `
		INSERT INTO sync_runs (id, trigger, status, error, started_at, finished_at, fetched, inserted, marked, mark_failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trigger = excluded.trigger,
			status = excluded.status,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			fetched = excluded.fetched,
			inserted = excluded.inserted,
			marked = excluded.marked,
			mark_failed = excluded.mark_failed
	`

	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = formatTime(run.FinishedAt)
	}

	if _, err := tx.ExecContext(ctx, upsertQuery,
		run.ID, string(run.Trigger), string(run.Status), run.Error,
		formatTime(run.StartedAt), finishedAt,
		run.Fetched, run.Inserted, run.Marked, run.MarkFailed,
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ID, err)
	}

	const deleteEvents = `DELETE FROM sync_run_events WHERE run_id = ?`
	if _, err := tx.ExecContext(ctx, deleteEvents, run.ID); err != nil {
		return fmt.Errorf("delete events for run %s: %w", run.ID, err)
	}

	const insertEvent = `
		INSERT INTO sync_run_events (run_id, seq, time, level, stage, message, attrs, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, ev := range run.Events {
		if _, err := tx.ExecContext(ctx, insertEvent,
			run.ID, i, formatTime(ev.Time), ev.Level, ev.Stage, ev.Message, ev.Attrs, ev.Detail,
		); err != nil {
			return fmt.Errorf("insert event %d for run %s: %w", i, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}

	return nil
}

// Get returns the run with its transcript, or nil if no such run exists.
func (r *RunRepo) Get(ctx context.Context, id string) (*model.Run, error) {
	const query = `
		SELECT id, trigger, status, error, started_at, finished_at, fetched, inserted, marked, mark_failed
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	events, err := r.events(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Events = events

	return run, nil
}

// ListRecent returns up to limit runs, newest first, without transcripts.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.Run, error) {
	const query = `
		SELECT id, trigger, status, error, started_at, finished_at, fetched, inserted, marked, mark_failed
		FROM sync_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// InterruptedRunError is recorded on runs that were still running when the
// process stopped.
const InterruptedRunError = "interrupted: process stopped before the run finished"

// FailInterrupted marks every run still in the running state as failed,
// finished at the given time. It returns the number of runs updated. Call it
// before the sync service accepts runs.
func (r *RunRepo) FailInterrupted(ctx context.Context, at time.Time) (int64, error) {
	const query = `
		UPDATE sync_runs
		SET status = ?, error = ?, finished_at = ?
		WHERE status = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		string(model.RunStatusFailed), InterruptedRunError, formatTime(at), string(model.RunStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("fail interrupted runs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count interrupted runs: %w", err)
	}

	return n, nil
}

func (r *RunRepo) events(ctx context.Context, runID string) ([]model.Event, error) {
	const query = `
		SELECT time, level, stage, message, attrs, detail
		FROM sync_run_events
		WHERE run_id = ?
		ORDER BY seq
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var at string
		if err := rows.Scan(&at, &ev.Level, &ev.Stage, &ev.Message, &ev.Attrs, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Time, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("parse event time: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.Run, error) {
	var run model.Run
	var trigger, status, startedAt string
	var finishedAt sql.NullString

	err := s.Scan(
		&run.ID, &trigger, &status, &run.Error, &startedAt, &finishedAt,
		&run.Fetched, &run.Inserted, &run.Marked, &run.MarkFailed,
	)
	if err != nil {
		return nil, err
	}

	run.Trigger = model.RunTrigger(trigger)
	run.Status = model.RunStatus(status)

	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}

	if finishedAt.Valid {
		run.FinishedAt, err = parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}

	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts the stored layout and the SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
