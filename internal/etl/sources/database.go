package sources

import (
	"context"
	"fmt"
	"time"

	"csvhouse/internal/dbclient"
	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
)

// ── Store Table Source ─────────────────────────────────────
// Reads Records back out of a table in any supported store, so one
// store can be copied into another.

type storeTableSource struct{}

func init() { etl.RegisterSource(&storeTableSource{}) }

func (s *storeTableSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "store_table",
		Label: "Store Table",
		ConfigFields: []etl.ConfigField{
			{Key: "driver", Label: "Driver", Type: "string", Required: true, Help: "clickhouse | sqlite | postgres | mysql | mongodb"},
			{Key: "host", Label: "Host", Type: "string", Required: true, Help: "Hostname, URI or SQLite file path"},
			{Key: "port", Label: "Port", Type: "number", Required: false},
			{Key: "database", Label: "Database", Type: "string", Required: false},
			{Key: "username", Label: "Username", Type: "string", Required: false},
			{Key: "password", Label: "Password", Type: "string", Required: false},
			{Key: "table", Label: "Table", Type: "string", Required: true},
		},
	}
}

// resolveStoreConfig builds the connection and table name from config.
func resolveStoreConfig(cfg etl.SourceConfig) (*domain.StoreConnection, string, error) {
	table := etl.ConfigString(cfg, "table")
	if !dbclient.ValidIdentifier(table) {
		return nil, "", fmt.Errorf("table %q is not a valid identifier", table)
	}
	port, err := etl.ConfigInt(cfg, "port", 0)
	if err != nil {
		return nil, "", err
	}
	conn := &domain.StoreConnection{
		Driver:      domain.StoreDriver(etl.ConfigString(cfg, "driver")),
		Host:        etl.ConfigString(cfg, "host"),
		Port:        int(port),
		Database:    etl.ConfigString(cfg, "database"),
		Username:    etl.ConfigString(cfg, "username"),
		Password:    etl.ConfigString(cfg, "password"),
		DialTimeout: 10 * time.Second,
	}
	if conn.Host == "" {
		return nil, "", fmt.Errorf("host is required")
	}
	return conn, table, nil
}

func readStoreTable(ctx context.Context, cfg etl.SourceConfig) ([]domain.Record, error) {
	conn, table, err := resolveStoreConfig(cfg)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read store table", err)
	}
	c, err := dbclient.NewConnector(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.SelectRecords(ctx, table)
}

func (s *storeTableSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	conn, _, err := resolveStoreConfig(cfg)
	if err != nil {
		return nil, domain.Wrap(domain.ErrSource, "read store table", err)
	}
	c, err := dbclient.NewConnector(ctx, conn)
	if err != nil {
		return nil, err
	}
	c.Close()
	return etl.RecordSchema, nil
}

func (s *storeTableSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan domain.Record, <-chan error) {
	return emitAll(ctx, func() ([]domain.Record, error) { return readStoreTable(ctx, cfg) })
}
