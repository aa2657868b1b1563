package domain

import "time"

const todayLayout = "01/02/2006"

// RunContext carries the per-run values every component needs, passed
// explicitly instead of living in package state. Today is fixed once at
// run start: all letters of one run carry the same date, and a retry run
// on a later day legitimately carries a new one.
type RunContext struct {
	RunID         string
	CorrelationID string
	StartedAt     time.Time
	Today         string
	LogoCID       string
}

func NewRunContext(runID, correlationID string, start time.Time, logoCID string) RunContext {
	return RunContext{
		RunID:         runID,
		CorrelationID: correlationID,
		StartedAt:     start,
		Today:         start.Format(todayLayout),
		LogoCID:       logoCID,
	}
}
