package config

import (
	"os"
	"strconv"
	"time"
)

// Corpus backends
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds connection settings for the verse corpus
type Config struct {
	// Backend: "postgres", "sqlite" or "memory"
	Backend string

	// PostgreSQL
	PostgresURI string

	// SQLite (local corpus file)
	SQLitePath string

	// Memory backend fixture (JSON lines of verse rows)
	FixturePath string

	// Timeout bounds every corpus call
	Timeout time.Duration
}

// FromEnv reads corpus settings from the environment
func FromEnv() Config {
	return Config{
		Backend:     GetEnv("CORPUS_BACKEND", BackendPostgres),
		PostgresURI: GetEnv("POSTGRES_URI", ""),
		SQLitePath:  GetEnv("SQLITE_PATH", "corpus.db"),
		FixturePath: GetEnv("CORPUS_FIXTURE", ""),
		Timeout:     GetEnvDuration("CORPUS_TIMEOUT", 10*time.Second),
	}
}

// GetEnv returns the variable's value or the default when unset
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses an integer variable, falling back on parse errors
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return i
	}
	return defaultValue
}

// GetEnvFloat parses a float variable, falling back on parse errors
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return f
	}
	return defaultValue
}

// GetEnvBool parses a boolean variable, falling back on parse errors
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return b
	}
	return defaultValue
}

// GetEnvDuration parses a Go duration variable, falling back on parse errors
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}
