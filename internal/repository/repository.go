// Package repository archives analysed records in SQLite or PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a repository from configuration.
// The "none" driver returns a nil repository: nothing is archived.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	if cfg.Driver == driverNone {
		return nil, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const resultColumns = `id, kind, merchant_category, location, amount, user_id, input_session_id,
	timestamp, fraud_status, probability, explanation, detailed_explanation,
	summary, risk_level, classification, created_at`

// SaveResult archives a record under its dashboard session.
// Saving the same record twice is a no-op, so redelivered events are safe.
func (r *SQLRepository) SaveResult(ctx context.Context, sessionID string, rec *domain.ResultRecord) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is required", domain.ErrInvalidInput)
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO results (session_id, ` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		sessionID, rec.ID, string(rec.Kind),
		rec.MerchantCategory, rec.Location, rec.Amount,
		rec.UserID, rec.SessionID,
		rec.Timestamp, string(rec.FraudStatus), rec.Probability,
		rec.Explanation, rec.DetailedExplanation, rec.Summary,
		rec.RiskLevel, rec.Classification,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", rec.ID, err)
	}
	return nil
}

// GetResult retrieves one archived record.
func (r *SQLRepository) GetResult(ctx context.Context, sessionID string, recordID string) (*domain.ResultRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is required", domain.ErrInvalidInput)
	}

	query := `SELECT ` + resultColumns + ` FROM results WHERE session_id = ? AND id = ?`

	rec, err := scanResult(r.db.QueryRowContext(ctx, r.rebind(query), sessionID, recordID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListResults returns a session's records in the order they were created.
func (r *SQLRepository) ListResults(ctx context.Context, sessionID string) ([]*domain.ResultRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is required", domain.ErrInvalidInput)
	}

	query := `SELECT ` + resultColumns + ` FROM results WHERE session_id = ? ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ResultRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListSessions returns every session that has archived records.
func (r *SQLRepository) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM results ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*domain.ResultRecord, error) {
	var rec domain.ResultRecord
	var kind, status string
	err := row.Scan(
		&rec.ID, &kind, &rec.MerchantCategory, &rec.Location, &rec.Amount,
		&rec.UserID, &rec.SessionID,
		&rec.Timestamp, &status, &rec.Probability,
		&rec.Explanation, &rec.DetailedExplanation, &rec.Summary,
		&rec.RiskLevel, &rec.Classification,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Kind = domain.ModelKind(kind)
	rec.FraudStatus = domain.FraudStatus(status)
	return &rec, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != driverPostgres {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
