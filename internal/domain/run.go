package domain

import "time"

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// LoadRun is the persisted history entry of one workflow run.
type LoadRun struct {
	ID            string    `json:"id"`
	Command       string    `json:"command"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	Status        string    `json:"status"`
	RowsRead      int       `json:"rowsRead"`
	RowsWritten   int       `json:"rowsWritten"`
	PartitionRows int       `json:"partitionRows"` // rows committed by the partitioned load
	Error         string    `json:"error,omitempty"`
}

// LoadRunStore persists workflow runs.
type LoadRunStore interface {
	CreateRun(r *LoadRun) error
	FinishRun(r *LoadRun) error
	ListRuns(limit int) ([]LoadRun, error)
}
