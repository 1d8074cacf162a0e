package web

import (
	"time"

	vm "github.com/ericfisherdev/guardiansync/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

const displayTimeLayout = "2006-01-02 15:04:05 MST"

// toRunSummaryViewModel converts a domain Run to a list row.
func toRunSummaryViewModel(run model.Run) vm.RunSummaryViewModel {
	duration := "-"
	if d := run.Duration(); d > 0 {
		duration = d.Round(time.Millisecond).String()
	}

	return vm.RunSummaryViewModel{
		ID:          run.ID,
		Trigger:     string(run.Trigger),
		Status:      string(run.Status),
		StatusClass: statusClass(run.Status),
		Error:       run.Error,
		StartedAt:   run.StartedAt.UTC().Format(displayTimeLayout),
		Duration:    duration,
		Fetched:     run.Fetched,
		Inserted:    run.Inserted,
		Marked:      run.Marked,
		MarkFailed:  run.MarkFailed,
		DetailPath:  "/runs/" + run.ID,
	}
}

// toRunSummaryViewModels converts a slice of runs, preserving order.
func toRunSummaryViewModels(runs []model.Run) []vm.RunSummaryViewModel {
	out := make([]vm.RunSummaryViewModel, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunSummaryViewModel(run))
	}
	return out
}

// toRunViewModel converts a domain Run including its transcript.
func toRunViewModel(run model.Run) vm.RunViewModel {
	return vm.RunViewModel{
		RunSummaryViewModel: toRunSummaryViewModel(run),
		TranscriptHTML:      RenderTranscript(run.Events),
		EventCount:          len(run.Events),
	}
}

func statusClass(s model.RunStatus) string {
	switch s {
	case model.RunStatusSucceeded:
		return "ok"
	case model.RunStatusFailed:
		return "failed"
	default:
		return "running"
	}
}
