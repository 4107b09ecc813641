package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"csvhouse/internal/domain"
	"csvhouse/internal/report"
)

// PasswordEnv overrides store.password when set.
const PasswordEnv = "CSVHOUSE_STORE_PASSWORD"

// Config is the whole workflow configuration. Every field defaults to the
// literal the workflow has always used, so an empty file is valid.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Source    SourceConfig    `yaml:"source"`
	Synthetic SyntheticConfig `yaml:"synthetic"`
	Partition PartitionConfig `yaml:"partition"`
	Reports   []ReportConfig  `yaml:"reports"`
	Trigger   TriggerConfig   `yaml:"trigger"`
	StateDB   string          `yaml:"state_db"`
}

// StoreConfig is the store connection plus the target table.
type StoreConfig struct {
	domain.StoreConnection `yaml:",inline"`
	Table                  string `yaml:"table"`
	// PasswordKeychain names the keychain account holding the password,
	// consulted when neither the file nor the environment sets one.
	PasswordKeychain       string `yaml:"password_keychain"`
}

// SourceConfig selects and configures the Source Reader.
type SourceConfig struct {
	Type      string `yaml:"type"` // csv_file | json_file
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	DataPath  string `yaml:"data_path"` // json_file only
}

// SyntheticConfig sizes the generated table fed to the partitioned loader.
// Rows = 0 skips that stage.
type SyntheticConfig struct {
	Rows int   `yaml:"rows"`
	Seed int64 `yaml:"seed"` // 0 seeds from the clock
}

// PartitionConfig makes the parallel-write policy explicit.
type PartitionConfig struct {
	Count         int    `yaml:"count"`
	Workers       int    `yaml:"workers"`        // 0 = GOMAXPROCS
	Connection    string `yaml:"connection"`     // per_partition | shared
	FailurePolicy string `yaml:"failure_policy"` // fail_fast | continue
}

// ReportConfig describes one histogram.
type ReportConfig struct {
	Column string `yaml:"column"`
	Bins   int    `yaml:"bins"`
	Title  string `yaml:"title"`
	XLabel string `yaml:"x_label"`
	YLabel string `yaml:"y_label"`
	Color  string `yaml:"color"`
	Output string `yaml:"output"`
	Show   bool   `yaml:"show"`
}

// TriggerConfig drives `csvhouse watch`.
type TriggerConfig struct {
	Schedule  string `yaml:"schedule"`   // cron expression
	WatchFile bool   `yaml:"watch_file"` // re-run when the source file changes
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Default returns the configuration of the stock workflow.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			StoreConnection: domain.StoreConnection{
				Driver:      domain.StoreDriverClickHouse,
				Host:        "localhost",
				Database:    "default",
				Username:    "default",
				DialTimeout: 10 * time.Second,
			},
			Table: "data_table",
		},
		Source: SourceConfig{
			Type:      "csv_file",
			Path:      "data.csv",
			Delimiter: ",",
		},
		Synthetic: SyntheticConfig{Rows: 1_000_000},
		Partition: PartitionConfig{
			Count:         10,
			Connection:    "per_partition",
			FailurePolicy: "fail_fast",
		},
		Reports: []ReportConfig{
			{
				Column: "age", Bins: 20, Color: "blue",
				Title: "Age distribution", XLabel: "Age", YLabel: "Count",
				Output: "age_hist.png",
			},
			{
				Column: "salary", Bins: 30, Color: "green",
				Title: "Salary distribution", XLabel: "Salary", YLabel: "Count",
				Output: "salary_hist.png",
			},
		},
		StateDB: "csvhouse.db",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Store.Password = pw
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case domain.StoreDriverClickHouse, domain.StoreDriverSQLite, domain.StoreDriverPostgres,
		domain.StoreDriverMySQL, domain.StoreDriverMongoDB:
	case "":
		c.Store.Driver = domain.StoreDriverClickHouse
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if c.Store.Host == "" {
		return fmt.Errorf("store.host is required")
	}
	if !identRe.MatchString(c.Store.Table) {
		return fmt.Errorf("store.table %q is not a valid identifier", c.Store.Table)
	}

	switch c.Source.Type {
	case "csv_file", "json_file":
	case "":
		c.Source.Type = "csv_file"
	default:
		return fmt.Errorf("source.type %q is not supported", c.Source.Type)
	}
	if c.Source.Delimiter == "" {
		c.Source.Delimiter = ","
	}

	if c.Synthetic.Rows < 0 {
		return fmt.Errorf("synthetic.rows must not be negative")
	}

	if c.Partition.Count <= 0 {
		c.Partition.Count = 10
	}
	if c.Partition.Workers <= 0 {
		c.Partition.Workers = runtime.GOMAXPROCS(0)
	}
	switch c.Partition.Connection {
	case "per_partition", "shared":
	case "":
		c.Partition.Connection = "per_partition"
	default:
		return fmt.Errorf("partition.connection %q must be per_partition or shared", c.Partition.Connection)
	}
	switch c.Partition.FailurePolicy {
	case "fail_fast", "continue":
	case "":
		c.Partition.FailurePolicy = "fail_fast"
	default:
		return fmt.Errorf("partition.failure_policy %q must be fail_fast or continue", c.Partition.FailurePolicy)
	}

	for i := range c.Reports {
		r := &c.Reports[i]
		if !identRe.MatchString(r.Column) {
			return fmt.Errorf("reports[%d]: column %q is not a valid identifier", i, r.Column)
		}
		if r.Bins <= 0 || r.Bins > report.MaxBins {
			return fmt.Errorf("reports[%d]: bins must be in [1, %d]", i, report.MaxBins)
		}
		if r.Output == "" {
			r.Output = r.Column + "_hist.png"
		}
		if r.YLabel == "" {
			r.YLabel = "Count"
		}
	}

	if c.StateDB == "" {
		c.StateDB = "csvhouse.db"
	}
	return nil
}
