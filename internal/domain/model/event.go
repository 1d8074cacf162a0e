package model

import (
	"fmt"
	"time"
)

// Pipeline stage names attached to every transcript event.
const (
	StageLogin   = "login"
	StageDB      = "database"
	StageFetch   = "fetch"
	StagePersist = "persist"
	StageMark    = "mark"
	StageLogout  = "logout"
	StageRun     = "run"
)

// Event is one line of a run transcript.
type Event struct {
	Time    time.Time
	Level   string
	Stage   string
	Message string
	// Attrs holds single-line attributes rendered as key=value pairs.
	Attrs string
	// Detail holds multi-line attribute values, such as an error body.
	Detail string
}

// String renders the event as a transcript line, followed by its detail lines.
func (e Event) String() string {
	line := fmt.Sprintf("%s %-5s [%s] %s", e.Time.Format("15:04:05"), e.Level, e.Stage, e.Message)
	if e.Attrs != "" {
		line += " " + e.Attrs
	}
	if e.Detail != "" {
		line += "\n" + e.Detail
	}
	return line
}
