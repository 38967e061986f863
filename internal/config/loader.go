package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/ToniPaltus/airflow-intro/internal/load"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE files into the process environment without
// overriding variables that are already set. With no arguments it reads .env
// in the working directory. Missing files are skipped; it reports whether any
// file was loaded.
func LoadEnvFiles(paths ...string) (bool, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	loaded := false
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("load %s: %w", p, err)
		}
		loaded = true
	}
	return loaded, nil
}

// loadStruct recursively populates struct fields from environment variables.
// Every missing required variable is reported, not just the first.
func loadStruct(v reflect.Value) error {
	var missing []string
	if err := walkStruct(v, &missing); err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func walkStruct(v reflect.Value, missing *[]string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := walkStruct(fieldVal, missing); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := os.Getenv(envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = os.Getenv(alt)
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				*missing = append(*missing, envName)
				continue
			}
			value = field.Tag.Get("default")
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Source
	if strings.TrimSpace(c.Source.FilePath) == "" {
		errs = append(errs, "FILE_PATH is required")
	}
	if utf8.RuneCountInString(c.Source.Delimiter) != 1 {
		errs = append(errs, fmt.Sprintf("SOURCE_DELIMITER (%q) must be a single character", c.Source.Delimiter))
	} else if strings.ContainsAny(c.Source.Delimiter, "\"\r\n") || c.Source.Delimiter == string(utf8.RuneError) {
		errs = append(errs, fmt.Sprintf("SOURCE_DELIMITER (%q) is not a valid delimiter", c.Source.Delimiter))
	}

	// Clean
	if c.Clean.SortField == "" {
		errs = append(errs, "CLEAN_SORT_FIELD must not be empty")
	}
	if c.Clean.TextField == "" {
		errs = append(errs, "CLEAN_TEXT_FIELD must not be empty")
	}

	// Destination
	if _, err := BackendScheme(c.Dest.URI); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Dest.Database == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if c.Dest.Collection == "" {
		errs = append(errs, "COLLECTION_NAME is required")
	}
	if _, err := load.ParseStrategy(c.Dest.Strategy); err != nil {
		errs = append(errs, fmt.Sprintf("LOAD_STRATEGY: %v", err))
	}
	if c.Dest.BatchSize <= 0 {
		errs = append(errs, "LOAD_BATCH_SIZE must be positive")
	}
	if c.Dest.Timeout < 0 {
		errs = append(errs, "LOAD_TIMEOUT must be non-negative")
	}
	if c.Dest.MaxConns <= 0 {
		errs = append(errs, "DEST_MAX_CONNS must be positive")
	}
	if c.Dest.MinConns < 0 {
		errs = append(errs, "DEST_MIN_CONNS must be non-negative")
	}
	if c.Dest.MaxConns < c.Dest.MinConns {
		errs = append(errs, fmt.Sprintf("DEST_MAX_CONNS (%d) must be >= DEST_MIN_CONNS (%d)",
			c.Dest.MaxConns, c.Dest.MinConns))
	}

	// Sensor
	if c.Sensor.PokeInterval <= 0 {
		errs = append(errs, "SENSOR_POKE_INTERVAL must be positive")
	}
	if c.Sensor.Timeout < 0 {
		errs = append(errs, "SENSOR_TIMEOUT must be non-negative")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Runs
	if c.Run.MaxWait < 0 {
		errs = append(errs, "RUN_MAX_WAIT must be non-negative")
	}
	if c.Run.HistorySize <= 0 {
		errs = append(errs, "RUN_HISTORY_SIZE must be positive")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Backend schemes accepted in DEST_URI.
const (
	SchemePostgres = "postgres"
	SchemeMongo    = "mongo"
	SchemeMemory   = "mem"
)

// BackendScheme maps a destination URI to the backend that serves it.
func BackendScheme(uri string) (string, error) {
	if uri == "" {
		return "", errors.New("DEST_URI is required")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.New("DEST_URI is not a valid URI")
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return SchemePostgres, nil
	case "mongodb", "mongodb+srv":
		return SchemeMongo, nil
	case "mem":
		return SchemeMemory, nil
	default:
		return "", fmt.Errorf("DEST_URI scheme %q must be one of: postgres, postgresql, mongodb, mongodb+srv, mem", u.Scheme)
	}
}

// String returns a safe string representation of the config for logging.
// The destination URI is reduced to its scheme and host.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Source: {FilePath: %q, Delimiter: %q, SchemaFile: %q, ParseDates: %v}, ",
		c.Source.FilePath, c.Source.Delimiter, c.Source.SchemaFile, c.Source.ParseDates)
	fmt.Fprintf(&b, "Clean: {SortField: %q, TextField: %q}, ", c.Clean.SortField, c.Clean.TextField)
	fmt.Fprintf(&b, "Dest: {URI: %s, Database: %q, Collection: %q, Strategy: %q, BatchSize: %d}, ",
		maskURI(c.Dest.URI), c.Dest.Database, c.Dest.Collection, c.Dest.Strategy, c.Dest.BatchSize)
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d, APIKeys: %d}, ", c.Server.Host, c.Server.Port, len(c.Server.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func maskURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return "[MASKED]"
	}
	return u.Scheme + "://" + u.Host + "/[MASKED]"
}
