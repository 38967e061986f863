// Package config loads the ingest settings from environment variables,
// applies defaults and validates everything up front so a bad value fails
// the process before any file is read.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Source  SourceConfig
	Clean   CleanConfig
	Dest    DestConfig
	Sensor  SensorConfig
	Server  ServerConfig
	Run     RunConfig
	Logging LoggingConfig
}

// SourceConfig describes the CSV to ingest.
type SourceConfig struct {
	// FilePath is the CSV path or a doublestar glob (required)
	FilePath string `env:"FILE_PATH" required:"true"`

	// Delimiter is the single field separator (default: ,)
	Delimiter string `env:"SOURCE_DELIMITER" default:","`

	// SchemaFile is an optional YAML file declaring column kinds
	SchemaFile string `env:"SOURCE_SCHEMA_FILE"`

	// NullValues are extra cell values read as missing
	NullValues []string `env:"SOURCE_NULL_VALUES"`

	// ParseDates enables time inference for undeclared columns (default: true)
	ParseDates bool `env:"SOURCE_PARSE_DATES" default:"true"`
}

// CleanConfig names the columns the pipeline works on.
type CleanConfig struct {
	SortField string `env:"CLEAN_SORT_FIELD" default:"at"`
	TextField string `env:"CLEAN_TEXT_FIELD" default:"content"`
}

// DestConfig holds the document store settings.
type DestConfig struct {
	// URI selects the backend by scheme: postgres, mongodb or mem (required).
	// MONGO_CLIENT is accepted for compatibility with older deployments.
	URI string `env:"DEST_URI" envAlt:"MONGO_CLIENT" required:"true"`

	Database   string `env:"DB_NAME" required:"true"`
	Collection string `env:"COLLECTION_NAME" required:"true"`

	// Strategy is swap or drop-insert (default: swap)
	Strategy string `env:"LOAD_STRATEGY" default:"swap"`

	// BatchSize is the number of documents per insert call (default: 1000)
	BatchSize int `env:"LOAD_BATCH_SIZE" default:"1000"`

	// Timeout bounds a single load; 0 disables it
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"0s"`

	MaxConns int `env:"DEST_MAX_CONNS" default:"4"`
	MinConns int `env:"DEST_MIN_CONNS" default:"0"`
}

// SensorConfig controls how long to wait for the source file.
type SensorConfig struct {
	// PokeInterval is how often the path is re-checked (default: 30s)
	PokeInterval time.Duration `env:"SENSOR_POKE_INTERVAL" default:"30s"`

	// Timeout stops waiting; 0 waits forever
	Timeout time.Duration `env:"SENSOR_TIMEOUT" default:"0s"`
}

// ServerConfig holds HTTP trigger server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys guard the /api routes when set.
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// RunConfig limits concurrent runs.
type RunConfig struct {
	// MaxWait is how long a trigger waits for a running load to finish (default: 5s)
	MaxWait time.Duration `env:"RUN_MAX_WAIT" default:"5s"`

	// HistorySize is the number of run results kept in memory (default: 50)
	HistorySize int `env:"RUN_HISTORY_SIZE" default:"50"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// DelimiterRune returns the configured delimiter. Validate guarantees it is
// a single rune.
func (c *SourceConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}
