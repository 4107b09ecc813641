package domain

import "time"

// StoreDriver names the engine behind a store connection.
type StoreDriver string

const (
	StoreDriverClickHouse StoreDriver = "clickhouse"
	StoreDriverSQLite     StoreDriver = "sqlite"
	StoreDriverPostgres   StoreDriver = "postgres"
	StoreDriverMySQL      StoreDriver = "mysql"
	StoreDriverMongoDB    StoreDriver = "mongodb"
)

// StoreConnection holds what a connector needs to reach the analytical store.
type StoreConnection struct {
	Driver       StoreDriver   `json:"driver" yaml:"driver"`
	Host         string        `json:"host" yaml:"host"` // hostname, URI (mongodb) or file path (sqlite)
	Port         int           `json:"port" yaml:"port"` // 0 picks the driver default
	Database     string        `json:"database" yaml:"database"`
	Username     string        `json:"username" yaml:"username"`
	Password     string        `json:"-" yaml:"password"`
	SSLMode      string        `json:"sslMode" yaml:"ssl_mode"`
	DialTimeout  time.Duration `json:"dialTimeout" yaml:"dial_timeout"`
	QueryTimeout time.Duration `json:"queryTimeout" yaml:"query_timeout"` // 0 means no limit
}
