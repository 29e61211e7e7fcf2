package ledger

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kbukum/transcriptcheck/errors"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds ledger connection configuration.
type Config struct {
	// Driver selects the backend: "sqlite" or "postgres".
	Driver string `mapstructure:"driver" json:"driver"`

	// DSN is a sqlite file path or a PostgreSQL connection string.
	DSN string `mapstructure:"dsn" json:"-"`

	// Table is the ledger table name.
	Table string `mapstructure:"table" json:"table"`

	MaxOpenConns int `mapstructure:"max_open_conns" json:"max_open_conns"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `mapstructure:"slow_query_threshold" json:"slow_query_threshold"`

	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.DSN == "" && c.Driver == DriverSQLite {
		c.DSN = "transcriptcheck.db"
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Configuration(fmt.Sprintf("ledger: unsupported driver %q", c.Driver))
	}
	if c.DSN == "" {
		return errors.Configuration("ledger: dsn is required")
	}
	if !tableName.MatchString(c.Table) {
		return errors.Configuration(fmt.Sprintf("ledger: invalid table name %q", c.Table))
	}
	if _, err := time.ParseDuration(c.SlowQueryThreshold); err != nil {
		return errors.Configuration(fmt.Sprintf("ledger: invalid slow_query_threshold %q", c.SlowQueryThreshold)).WithCause(err)
	}
	return nil
}
