// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
	"github.com/ericfisherdev/guardiansync/internal/domain/port/driven"
	"github.com/ericfisherdev/guardiansync/internal/transcript"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// cleanupTimeout bounds logout and history writes after the run context ends.
const cleanupTimeout = 30 * time.Second

// SyncService runs the partner import pipeline: login, connect to the
// destination database, fetch and persist partners, mark them imported in the
// ERP and log out. Only one run may be active at a time.
type SyncService struct {
	erp       driven.ERPClient
	openStore driven.PartnerStoreOpener
	runs      driven.RunStore
	console   slog.Handler
	now       func() time.Time
	running   atomic.Bool
}

// NewSyncService creates a SyncService. runs may be nil when history is not
// kept; console receives every event in addition to the run transcript.
func NewSyncService(
	erp driven.ERPClient,
	openStore driven.PartnerStoreOpener,
	runs driven.RunStore,
	console slog.Handler,
) *SyncService {
	return &SyncService{
		erp:       erp,
		openStore: openStore,
		runs:      runs,
		console:   console,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for timestamps and returns s.
func (s *SyncService) WithClock(now func() time.Time) *SyncService {
	s.now = now
	return s
}

// Running reports whether a run is currently active.
func (s *SyncService) Running() bool {
	return s.running.Load()
}

// Run executes the pipeline once. Stage failures are recorded in the returned
// Run and its transcript; the error is non-nil only when the run could not
// start or the destination database could not be opened.
func (s *SyncService) Run(ctx context.Context, trigger model.RunTrigger) (model.Run, error) {
	if !s.running.CompareAndSwap(false, true) {
		return model.Run{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	run := model.Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    model.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}

	collector := transcript.NewCollector(slog.LevelDebug)
	logger := slog.New(slogmulti.Fanout(
		s.console.WithAttrs([]slog.Attr{slog.String("run_id", run.ID)}),
		collector,
	))

	s.saveRun(ctx, run)

	logger.Info("sync run started", "stage", model.StageRun, "trigger", string(trigger))
	fatal := s.execute(ctx, logger, &run)

	run.FinishedAt = s.now().UTC()
	if run.Error != "" {
		run.Status = model.RunStatusFailed
		logger.Error("sync run failed", "stage", model.StageRun, "error", run.Error, "duration", run.Duration())
	} else {
		run.Status = model.RunStatusSucceeded
		logger.Info("sync run finished", "stage", model.StageRun,
			"fetched", run.Fetched, "inserted", run.Inserted, "marked", run.Marked, "duration", run.Duration())
	}
	run.Events = collector.Events()

	s.saveRun(ctx, run)

	return run, fatal
}

// execute performs the pipeline stages, filling in run counters and Error.
// It returns a non-nil error only for a fatal destination database failure.
func (s *SyncService) execute(ctx context.Context, logger *slog.Logger, run *model.Run) (fatal error) {
	logger.Info("logging in", "stage", model.StageLogin)
	token, err := s.erp.Login(ctx)
	if err != nil {
		logger.Error("login failed, no further requests will be made", "stage", model.StageLogin, "error", err)
		run.Error = fmt.Sprintf("login: %v", err)
		return nil
	}
	logger.Info("login succeeded, bearer token stored", "stage", model.StageLogin)

	defer s.logout(ctx, logger, token)

	store, err := s.openStore(ctx)
	if err != nil {
		logger.Error("database connection failed", "stage", model.StageDB, "error", err)
		run.Error = fmt.Sprintf("database: %v", err)
		return fmt.Errorf("open destination database: %w", err)
	}
	logger.Info("database connected", "stage", model.StageDB)
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("error closing database", "stage", model.StageDB, "error", closeErr)
			return
		}
		logger.Info("database connection closed", "stage", model.StageDB)
	}()

	codes := s.fetchAndPersist(ctx, logger, token, store, run)
	s.markImported(ctx, logger, token, codes, run)

	return nil
}

// fetchAndPersist loads the partner view and inserts it as one batch. It
// returns the committed partner codes, which is empty on any failure.
func (s *SyncService) fetchAndPersist(
	ctx context.Context,
	logger *slog.Logger,
	token string,
	store driven.PartnerStore,
	run *model.Run,
) []int64 {
	logger.Info("fetching partners", "stage", model.StageFetch)
	records, err := s.erp.FetchPartners(ctx, token)
	if err != nil {
		logger.Error("fetching partners failed", "stage", model.StageFetch, "error", err)
		run.Error = fmt.Sprintf("fetch: %v", err)
		return nil
	}
	run.Fetched = len(records)
	logger.Info("partners received", "stage", model.StageFetch, "count", len(records))

	if len(records) == 0 {
		logger.Info("no partners to import", "stage", model.StagePersist)
		return nil
	}

	insertedAt := s.now()
	rows := make([]model.PartnerRow, 0, len(records))
	for i, rec := range records {
		row, err := model.NewPartnerRow(rec, insertedAt)
		if err != nil {
			logger.Error("partner record rejected, batch skipped", "stage", model.StagePersist,
				"record", i+1, "of", len(records), "error", err)
			run.Error = fmt.Sprintf("persist: record %d: %v", i+1, err)
			return nil
		}
		rows = append(rows, row)
	}

	codes, err := store.InsertBatch(ctx, rows)
	if err != nil {
		logger.Error("insert failed, transaction rolled back", "stage", model.StagePersist, "error", err)
		run.Error = fmt.Sprintf("persist: %v", err)
		return nil
	}
	run.Inserted = len(codes)
	logger.Info("partners inserted", "stage", model.StagePersist, "count", len(codes))

	return codes
}

// markImported flags each committed partner in the ERP. A failed call is
// logged and the loop moves on to the next code.
func (s *SyncService) markImported(ctx context.Context, logger *slog.Logger, token string, codes []int64, run *model.Run) {
	for _, code := range codes {
		if err := s.erp.MarkImported(ctx, token, code); err != nil {
			run.MarkFailed++
			logger.Error("marking partner imported failed", "stage", model.StageMark, "code", code, "error", err)
			continue
		}
		run.Marked++
		logger.Info("partner marked imported", "stage", model.StageMark, "code", code)
	}

	if run.MarkFailed > 0 && run.Error == "" {
		run.Error = fmt.Sprintf("mark: %d of %d partners could not be marked imported", run.MarkFailed, len(codes))
	}
}

// logout ends the ERP session. Failures are reported as warnings only.
func (s *SyncService) logout(ctx context.Context, logger *slog.Logger, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	logger.Info("closing session", "stage", model.StageLogout)
	if err := s.erp.Logout(ctx, token); err != nil {
		logger.Warn("logout failed", "stage", model.StageLogout, "error", err)
		return
	}
	logger.Info("session closed", "stage", model.StageLogout)
}

// saveRun records run in the history store when one is configured. Failures
// go to the console only.
func (s *SyncService) saveRun(ctx context.Context, run model.Run) {
	if s.runs == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.runs.Save(ctx, run); err != nil {
		slog.New(s.console).Error("saving run history failed", "run_id", run.ID, "error", err)
	}
}
