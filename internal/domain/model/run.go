package model

import "time"

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerCLI      RunTrigger = "cli"
	TriggerWeb      RunTrigger = "web"
	TriggerAPI      RunTrigger = "api"
	TriggerSchedule RunTrigger = "schedule"
)

// Run is the outcome of one pass of the pipeline together with its transcript.
type Run struct {
	ID         string
	Trigger    RunTrigger
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time

	Fetched    int
	Inserted   int
	Marked     int
	MarkFailed int

	Events []Event
}

// Duration returns how long the run took, or zero while it is still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
