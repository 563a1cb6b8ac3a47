// Package storage archives delivered reports in PostgreSQL. The archive is
// an outbound sink only: recommendation cycles never read prior runs.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kubewise/k8s-resource-recommender/pkg/delivery"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresArchive stores one row per delivered report run.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive opens the database, verifies connectivity, and applies
// the schema.
func NewPostgresArchive(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	archive := &PostgresArchive{db: db}
	if err := archive.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return archive, nil
}

func (a *PostgresArchive) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := a.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Name() string { return "postgres" }

// Deliver archives the run and its rendered artifacts.
func (a *PostgresArchive) Deliver(ctx context.Context, artifacts delivery.Artifacts) error {
	b := artifacts.Bundle

	query := `
		INSERT INTO report_runs (
			id, generated_at, window_start, window_end, buffer_percent,
			recommendation_count, skipped_count,
			report_table, report_html, patch_yaml
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := a.db.ExecContext(ctx, query,
		b.ID, b.GeneratedAt, b.Window.Start, b.Window.End, b.BufferPercent,
		len(b.Recommendations), len(b.Skipped),
		artifacts.Table, artifacts.HTML, string(artifacts.PatchYAML),
	)
	if err != nil {
		return fmt.Errorf("archiving report run %s: %w", b.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() error {
	return a.db.Close()
}

var _ delivery.Sink = (*PostgresArchive)(nil)
