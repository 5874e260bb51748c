package stores

import (
	"context"
	"errors"
	"time"
)

// RunStatus is the outcome of a compile run.
type RunStatus string

const (
	// RunStatusSucceeded means a render context was produced.
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusRejected means the validation gate closed.
	RunStatusRejected RunStatus = "rejected"
	// RunStatusFailed means loading or resolution aborted the run.
	RunStatusFailed RunStatus = "failed"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// CompileRun is one recorded compile.
type CompileRun struct {
	ID         string        `json:"id"`
	ConfigPath string        `json:"config_path"`
	Project    string        `json:"project"`
	Platform   string        `json:"platform"`
	Status     RunStatus     `json:"status"`
	GateOpen   bool          `json:"gate_open"`
	ErrorCode  *string       `json:"error_code,omitempty"`
	Error      *string       `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Finding is one nibbler finding of a run, in report order.
type Finding struct {
	RunID   string `json:"run_id"`
	Seq     int    `json:"seq"`
	Nibbler string `json:"nibbler"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HistoryStore records compile runs.
type HistoryStore interface {
	// RecordRun stores run and its findings atomically.
	RecordRun(ctx context.Context, run *CompileRun, findings []Finding) error

	GetRun(ctx context.Context, id string) (*CompileRun, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, limit, offset int) ([]*CompileRun, error)

	ListFindings(ctx context.Context, runID string) ([]Finding, error)

	// PruneBefore deletes runs started before cutoff and returns how many went.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
