package etl

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"csvhouse/internal/dbclient"
	"csvhouse/internal/domain"
)

// ── Partitioned Loader ─────────────────────────────────────
// Splits a table into contiguous partitions and loads them concurrently
// on a bounded worker pool.

// FailurePolicy decides what happens to pending partitions after one fails.
type FailurePolicy string

const (
	FailFast FailurePolicy = "fail_fast" // stop dispatching after the first failure
	Continue FailurePolicy = "continue"  // attempt every partition
)

// ConnMode decides how partitions obtain store connections.
type ConnMode string

const (
	ConnPerPartition ConnMode = "per_partition" // each partition opens and closes its own
	ConnShared       ConnMode = "shared"        // one connection serves every partition
)

// DefaultPartitions is the partition count when none is configured.
const DefaultPartitions = 10

// Partition is a contiguous row range [Start, End) of a table.
type Partition struct {
	Index   int
	Start   int
	End     int
	Records domain.Table
}

// Split cuts table into n contiguous partitions whose sizes differ by at
// most one, covering every row exactly once in order. n <= 0 means one
// partition; empty partitions are dropped when n exceeds the row count.
func Split(table domain.Table, n int) []Partition {
	if n <= 0 {
		n = 1
	}
	if n > len(table) {
		n = len(table)
	}
	if n == 0 {
		return nil
	}

	size, rem := len(table)/n, len(table)%n
	parts := make([]Partition, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		parts = append(parts, Partition{Index: i, Start: start, End: end, Records: table[start:end]})
		start = end
	}
	return parts
}

// PartitionResult is the outcome of one partition.
type PartitionResult struct {
	Index   int    `json:"index"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Rows    int    `json:"rows"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     error  `json:"-"`
	Error   string `json:"error,omitempty"`
}

// PartitionReport summarises a partitioned load.
type PartitionReport struct {
	Partitions  []PartitionResult `json:"partitions"`
	RowsWritten int               `json:"rowsWritten"`
	Failed      int               `json:"failed"`
	Duration    time.Duration     `json:"duration"`
}

// PartitionedLoader loads a table through Partitions concurrent batches.
type PartitionedLoader struct {
	// Connect opens a store connection.
	Connect func(ctx context.Context) (dbclient.Connector, error)

	Table      string
	Partitions int           // default DefaultPartitions
	Workers    int           // default GOMAXPROCS
	Policy     FailurePolicy // default FailFast
	ConnMode   ConnMode      // default ConnPerPartition
}

func (l *PartitionedLoader) defaults() {
	if l.Partitions <= 0 {
		l.Partitions = DefaultPartitions
	}
	if l.Workers <= 0 {
		l.Workers = runtime.GOMAXPROCS(0)
	}
	if l.Policy == "" {
		l.Policy = FailFast
	}
	if l.ConnMode == "" {
		l.ConnMode = ConnPerPartition
	}
}

// Run loads table and blocks until every dispatched partition has
// finished. Partition failures are joined into the returned error;
// partitions already committed stay committed.
func (l *PartitionedLoader) Run(ctx context.Context, table domain.Table) (*PartitionReport, error) {
	l.defaults()
	start := time.Now()

	parts := Split(table, l.Partitions)
	report := &PartitionReport{Partitions: make([]PartitionResult, len(parts))}
	for i, p := range parts {
		report.Partitions[i] = PartitionResult{Index: p.Index, Start: p.Start, End: p.End}
	}
	if len(parts) == 0 {
		return report, nil
	}

	var shared dbclient.Connector
	if l.ConnMode == ConnShared {
		c, err := l.Connect(ctx)
		if err != nil {
			return report, err
		}
		defer c.Close()
		shared = c
	}

	// stop only gates dispatch; in-flight inserts run on ctx
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	g.SetLimit(l.Workers)

	zlog.Info().
		Str("table", l.Table).
		Int("rows", len(table)).
		Int("partitions", len(parts)).
		Int("workers", l.Workers).
		Str("policy", string(l.Policy)).
		Str("connection", string(l.ConnMode)).
		Msg("partitioned load started")

	for _, p := range parts {
		g.Go(func() error {
			res := &report.Partitions[p.Index]
			if stopCtx.Err() != nil {
				res.Skipped = true
				return nil
			}
			n, err := l.loadPartition(ctx, shared, p)
			res.Rows = n
			if err != nil {
				res.Rows = 0
				res.Err = fmt.Errorf("partition %d [%d,%d): %w", p.Index, p.Start, p.End, err)
				res.Error = res.Err.Error()
				zlog.Error().Err(err).Int("partition", p.Index).Msg("partition failed")
				if l.Policy == FailFast {
					stop()
				}
				return nil
			}
			zlog.Debug().Int("partition", p.Index).Int("rows", n).Msg("partition loaded")
			return nil
		})
	}
	g.Wait()

	var errs []error
	skipped := 0
	for _, r := range report.Partitions {
		switch {
		case r.Err != nil:
			report.Failed++
			errs = append(errs, r.Err)
		case r.Skipped:
			skipped++
		default:
			report.RowsWritten += r.Rows
		}
	}
	if skipped > 0 && len(errs) == 0 {
		// nothing failed, so the caller's context was cancelled
		errs = append(errs, ctx.Err())
	}
	report.Duration = time.Since(start)

	zlog.Info().
		Str("table", l.Table).
		Int("rows", report.RowsWritten).
		Int("failed", report.Failed).
		Int("skipped", skipped).
		Dur("duration", report.Duration).
		Msg("partitioned load finished")

	return report, errors.Join(errs...)
}

func (l *PartitionedLoader) loadPartition(ctx context.Context, shared dbclient.Connector, p Partition) (int, error) {
	conn := shared
	if conn == nil {
		c, err := l.Connect(ctx)
		if err != nil {
			return 0, err
		}
		defer c.Close()
		conn = c
	}
	return BulkLoader{}.Load(ctx, conn, l.Table, p.Records)
}
