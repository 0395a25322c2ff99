package store

import "time"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Run is one operation that ran the scheduler.
type Run struct {
	ID         int64
	Operation  string
	Machine    string
	TestRun    bool
	StartedAt  time.Time
	FinishedAt *time.Time // nil while the run is open or after a crash
	Outcome    string
	Error      string
}

// Execution is one record of one scheduler step.
type Execution struct {
	Seq       int64
	RunID     int64
	PieceID   string
	Kind      string
	Action    string
	PieceHash string
	Outcome   string
	Error     string
}

// Entry is an execution joined with its run, as listed by history.
type Entry struct {
	Execution
	Operation string
	TestRun   bool
	StartedAt time.Time
}

// Filter narrows ReadEntries.
type Filter struct {
	// PieceID limits entries to one record when non-empty.
	PieceID string

	// Limit caps the number of entries; 0 means no limit.
	Limit int
}
