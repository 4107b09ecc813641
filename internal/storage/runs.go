package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"csvhouse/internal/domain"
)

// RunStore implements domain.LoadRunStore on the state database.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// ── Run Logs ───────────────────────────────────────────────

// CreateRun inserts a running entry. An empty ID is assigned a new uuid.
func (s *RunStore) CreateRun(r *domain.LoadRun) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = domain.RunRunning
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO load_runs (id, command, started_at, status) VALUES (?, ?, ?, ?)`,
		r.ID, r.Command, r.StartedAt, r.Status,
	)
	return err
}

// FinishRun stores the final status and counters of a run.
func (s *RunStore) FinishRun(r *domain.LoadRun) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	_, err := s.db.conn.Exec(
		`UPDATE load_runs SET finished_at=?, status=?, rows_read=?, rows_written=?, partition_rows=?, error=?
		 WHERE id=?`,
		r.FinishedAt, r.Status, r.RowsRead, r.RowsWritten, r.PartitionRows, r.Error, r.ID,
	)
	return err
}

// ListRuns returns the most recent runs first.
func (s *RunStore) ListRuns(limit int) ([]domain.LoadRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, command, started_at, finished_at, status, rows_read, rows_written, partition_rows, error
		 FROM load_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.LoadRun
	for rows.Next() {
		var r domain.LoadRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Command, &r.StartedAt, &finished, &r.Status,
			&r.RowsRead, &r.RowsWritten, &r.PartitionRows, &r.Error); err != nil {
			return nil, err
		}
		r.FinishedAt = finished.Time
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
