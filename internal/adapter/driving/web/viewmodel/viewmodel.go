// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// RunSummaryViewModel holds presentation-ready data for one row of the run list.
type RunSummaryViewModel struct {
	ID          string
	Trigger     string
	Status      string
	StatusClass string // CSS modifier: "ok", "failed" or "running"
	Error       string
	StartedAt   string
	Duration    string
	Fetched     int
	Inserted    int
	Marked      int
	MarkFailed  int
	DetailPath  string
}

// RunViewModel holds a run and its rendered transcript.
type RunViewModel struct {
	RunSummaryViewModel

	// TranscriptHTML is sanitized markup for the <pre> block.
	TranscriptHTML string
	EventCount     int
}

// DashboardViewModel holds everything the dashboard page renders.
type DashboardViewModel struct {
	CSRFToken string
	Running   bool
	Schedule  string // empty when no schedule is configured
	Runs      []RunSummaryViewModel
	Notice    string
}
