package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

const (
	driverNone     = "none"
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// sqlitePragmas are applied on every pooled connection by modernc.org/sqlite.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// dataSource returns the database/sql driver name and DSN for cfg.
func dataSource(cfg domain.RepositoryConfig) (string, string, error) {
	switch cfg.Driver {
	case driverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "./fraudguard.db"
		}
		params := make([]string, len(sqlitePragmas))
		for i, p := range sqlitePragmas {
			params[i] = "_pragma=" + p
		}
		return "sqlite", "file:" + path + "?" + strings.Join(params, "&"), nil

	case driverPostgres:
		host := cfg.PostgresHost
		if host == "" {
			host = "localhost"
		}
		port := cfg.PostgresPort
		if port == 0 {
			port = 5432
		}
		db := cfg.PostgresDB
		if db == "" {
			db = "fraudguard"
		}
		ssl := cfg.PostgresSSLMode
		if ssl == "" {
			ssl = "disable"
		}

		u := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			Path:     "/" + db,
			RawQuery: url.Values{"sslmode": {ssl}}.Encode(),
		}
		if cfg.PostgresUser != "" {
			u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
		}
		return "postgres", u.String(), nil

	default:
		return "", "", fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

// openDB opens and pings the configured database.
func openDB(cfg domain.RepositoryConfig) (*sql.DB, error) {
	if cfg.Driver == driverSQLite {
		dir := filepath.Dir(cfg.SQLitePath)
		if cfg.SQLitePath != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	name, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}
	return db, nil
}
