// Package domain defines the core types and interfaces for FraudGuard.
package domain

import (
	"context"
	"time"
)

// Repository archives analysed records per dashboard session.
// The live ledger never reads back from it.
type Repository interface {
	SaveResult(ctx context.Context, sessionID string, record *ResultRecord) error
	GetResult(ctx context.Context, sessionID string, recordID string) (*ResultRecord, error)
	ListResults(ctx context.Context, sessionID string) ([]*ResultRecord, error)
	ListSessions(ctx context.Context) ([]string, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite", "postgres" or "none"
	Driver string `json:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost"`
	PostgresPort     int    `json:"postgresPort"`
	PostgresUser     string `json:"postgresUser"`
	PostgresPassword string `json:"postgresPassword"`
	PostgresDB       string `json:"postgresDB"`
	PostgresSSLMode  string `json:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}
