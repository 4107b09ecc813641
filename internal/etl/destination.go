package etl

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"

	"csvhouse/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination accepts batches of Records for a store table.
// dbclient.Connector satisfies it.
//
// Pattern: Singer target protocol.

// Destination writes records to a target table.
type Destination interface {
	InsertRecords(ctx context.Context, table string, records []domain.Record) (int, error)
}

// ── Bulk Loader ────────────────────────────────────────────
// Submits a whole table as one batch. No retries.

// BulkLoader loads an in-memory table in a single batch.
type BulkLoader struct{}

// Load inserts records into table and returns the row count the store
// accepted. A count that differs from len(records) is an ErrInsert.
func (BulkLoader) Load(ctx context.Context, dest Destination, table string, records domain.Table) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	n, err := dest.InsertRecords(ctx, table, records)
	if err != nil {
		return n, domain.Wrap(domain.ErrInsert, "bulk load", err)
	}
	if n != len(records) {
		return n, domain.Wrap(domain.ErrInsert, "bulk load", fmt.Errorf("store accepted %d of %d rows", n, len(records)))
	}

	zlog.Info().Str("table", table).Int("rows", n).Msg("bulk load complete")
	return n, nil
}
