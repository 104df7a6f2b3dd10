package storage

import "time"

const (
	RunRunning = "running"
	RunSuccess = "success"
	RunFailed  = "failed"
)

// Run is one report generation, from trigger to publish.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	LootLimit  int64
	Status     string // running | success | failed
	Rows       int
	Pages      int
	StopReason string
	Error      string
}

// RunOutcome carries what FinishRun records.
type RunOutcome struct {
	Rows       int
	Pages      int
	StopReason string
	Err        error
}
