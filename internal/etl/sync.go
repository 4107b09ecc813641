package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"csvhouse/internal/dbclient"
	"csvhouse/internal/domain"
	"csvhouse/internal/report"
)

// ── SyncJob ────────────────────────────────────────────────
// Orchestrates the whole workflow:
//   source.Read → schema → bulk load → read back
//   → synthetic generate → partitioned load → histogram reports.

// Stages selects which parts of the workflow run.
type Stages struct {
	Load     bool `json:"load"`     // read the source file and bulk load it
	Generate bool `json:"generate"` // generate the synthetic table and load it in partitions
	Report   bool `json:"report"`   // render the histogram reports
}

// AllStages runs the complete workflow.
var AllStages = Stages{Load: true, Generate: true, Report: true}

// PartitionOptions configures the partitioned load.
type PartitionOptions struct {
	Count    int           `json:"count"`
	Workers  int           `json:"workers"`
	Policy   FailurePolicy `json:"policy"`
	ConnMode ConnMode      `json:"connMode"`
}

// SyncJob holds the configuration for a single workflow run.
type SyncJob struct {
	ID         string                 `json:"id"`
	Command    string                 `json:"command"` // "run" | "load" | "generate" | "report"
	Store      domain.StoreConnection `json:"store"`
	Table      string                 `json:"table"`
	SourceType string                 `json:"sourceType"`
	SourceCfg  SourceConfig           `json:"sourceConfig"`
	Synthetic  SourceConfig           `json:"synthetic"` // config of the "synthetic" source; rows 0 skips
	Partition  PartitionOptions       `json:"partition"`
	Reports    []report.Spec          `json:"reports"`
	Stages     Stages                 `json:"stages"`
}

// SyncResult is the outcome of running a sync job.
type SyncResult struct {
	RunID         string           `json:"runId"`
	Status        string           `json:"status"` // "success" | "error"
	RowsRead      int              `json:"rowsRead"`
	RowsWritten   int              `json:"rowsWritten"`
	RowsReadBack  int              `json:"rowsReadBack"`
	PartitionRows int              `json:"partitionRows"`
	Partitions    *PartitionReport `json:"partitions,omitempty"`
	Reports       []*report.Result `json:"reports,omitempty"`
	Duration      time.Duration    `json:"duration"`
	Error         string           `json:"error,omitempty"`
}

// ── Engine ─────────────────────────────────────────────────
// The Engine orchestrates workflow execution.

// PreviewRows is how many rows each stage logs as a preview.
const PreviewRows = 5

// Engine runs sync jobs using the registered sources and a store.
type Engine struct {
	// Connect opens a store connection. Defaults to dbclient.NewConnector.
	Connect  func(ctx context.Context, conn *domain.StoreConnection) (dbclient.Connector, error)
	Reporter *report.Reporter
}

func (e *Engine) connect(ctx context.Context, conn *domain.StoreConnection) (dbclient.Connector, error) {
	if e.Connect != nil {
		return e.Connect(ctx, conn)
	}
	return dbclient.NewConnector(ctx, conn)
}

// RunSync executes a sync job end-to-end, stopping at the first error.
func (e *Engine) RunSync(ctx context.Context, job *SyncJob) (*SyncResult, error) {
	start := time.Now()
	result := &SyncResult{RunID: job.ID}
	if result.RunID == "" {
		result.RunID = uuid.New().String()
	}
	log := zlog.With().Str("run", result.RunID).Logger()

	fail := func(err error) (*SyncResult, error) {
		result.Status = "error"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		log.Error().Err(err).Dur("duration", result.Duration).Msg("run failed")
		return result, err
	}

	// 1. Read the source file into memory.
	var table domain.Table
	if job.Stages.Load {
		var err error
		table, err = ReadTable(ctx, job.SourceType, job.SourceCfg)
		if err != nil {
			return fail(err)
		}
		result.RowsRead = len(table)
		log.Info().Str("source", job.SourceType).Int("rows", len(table)).Msg("source read")
		logPreview(table)
	}

	// 2. Connect and make sure the table exists.
	conn, err := e.connect(ctx, &job.Store)
	if err != nil {
		return fail(err)
	}
	defer conn.Close()
	log.Info().Str("driver", string(job.Store.Driver)).Str("host", job.Store.Host).Msg("connected")

	if job.Stages.Load || job.Stages.Generate {
		if err := conn.EnsureSchema(ctx, job.Table); err != nil {
			return fail(err)
		}
	}

	// 3. Bulk load and read back.
	if job.Stages.Load {
		n, err := BulkLoader{}.Load(ctx, conn, job.Table, table)
		result.RowsWritten = n
		if err != nil {
			return fail(err)
		}
		back, err := conn.SelectRecords(ctx, job.Table)
		if err != nil {
			return fail(err)
		}
		result.RowsReadBack = len(back)
		log.Info().Str("table", job.Table).Int("rows", len(back)).Msg("table read back")
	}

	// 4. Synthetic table through the partitioned loader.
	if job.Stages.Generate {
		rows, err := ConfigInt(job.Synthetic, "rows", 0)
		if err != nil {
			return fail(domain.Wrap(domain.ErrSource, "generate", err))
		}
		if rows > 0 {
			synthetic, err := ReadTable(ctx, "synthetic", job.Synthetic)
			if err != nil {
				return fail(err)
			}
			log.Info().Int("rows", len(synthetic)).Msg("synthetic table generated")
			logPreview(synthetic)

			loader := &PartitionedLoader{
				Connect: func(ctx context.Context) (dbclient.Connector, error) {
					return e.connect(ctx, &job.Store)
				},
				Table:      job.Table,
				Partitions: job.Partition.Count,
				Workers:    job.Partition.Workers,
				Policy:     job.Partition.Policy,
				ConnMode:   job.Partition.ConnMode,
			}
			rep, err := loader.Run(ctx, synthetic)
			result.Partitions = rep
			if rep != nil {
				result.PartitionRows = rep.RowsWritten
			}
			if err != nil {
				return fail(err)
			}
		}
	}

	// 5. Histogram reports over the populated table.
	if job.Stages.Report {
		reporter := e.Reporter
		if reporter == nil {
			reporter = &report.Reporter{}
		}
		for _, spec := range job.Reports {
			if spec.Table == "" {
				spec.Table = job.Table
			}
			res, err := reporter.Report(ctx, conn, spec)
			if err != nil {
				return fail(err)
			}
			result.Reports = append(result.Reports, res)
		}
	}

	result.Status = "success"
	result.Duration = time.Since(start)
	log.Info().
		Int("rowsRead", result.RowsRead).
		Int("rowsWritten", result.RowsWritten).
		Int("partitionRows", result.PartitionRows).
		Dur("duration", result.Duration).
		Msg("run finished")
	return result, nil
}

// Preview executes only the source read phase and returns up to maxRows records.
func (e *Engine) Preview(ctx context.Context, sourceType string, cfg SourceConfig, maxRows int) (domain.Table, error) {
	table, err := ReadTable(ctx, sourceType, cfg)
	if err != nil {
		return nil, err
	}
	return table.Head(maxRows), nil
}

func logPreview(table domain.Table) {
	for _, r := range table.Head(PreviewRows) {
		zlog.Info().
			Int32("id", r.ID).
			Str("name", r.Name).
			Str("surname", r.Surname).
			Int32("age", r.Age).
			Float32("salary", r.Salary).
			Msg("preview")
	}
}

// String renders a one-line summary for terminal output.
func (r *SyncResult) String() string {
	s := fmt.Sprintf("run %s: %s, read %d, written %d, read back %d, partition rows %d in %s",
		r.RunID, r.Status, r.RowsRead, r.RowsWritten, r.RowsReadBack, r.PartitionRows, r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		s += ": " + r.Error
	}
	return s
}
