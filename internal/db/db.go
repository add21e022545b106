// Package db stores import history in PostgreSQL or SQLite.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/profile-importer/internal/types"
)

// Schema creates the Postgres history table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS import_history (
	id              UUID PRIMARY KEY,
	url             TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	company         TEXT NOT NULL DEFAULT '',
	notion_page_id  TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL CHECK (status IN ('saved', 'duplicate', 'failed')),
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_import_history_url ON import_history (url, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_import_history_created ON import_history (created_at DESC);
`

const selectColumns = `id, url, name, email, phone, company, notion_page_id, status, error, created_at`

// Pool is the subset of pgxpool.Pool used here. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool Pool) *DB {
	return &DB{pool: pool}
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the history table if needed.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return wrap("migrate import history", err)
	}
	return nil
}

// RecordImport inserts rec, assigning an ID and timestamp when unset.
func (db *DB) RecordImport(ctx context.Context, rec *ImportRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO import_history (`+selectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID.String(), rec.URL, rec.Name, rec.Email, rec.Phone, rec.Company,
		rec.NotionPageID, string(rec.Status), rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return wrap("record import", err)
	}
	return nil
}

// ListImports returns the newest records first.
func (db *DB) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM import_history ORDER BY created_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, wrap("list imports", err)
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrap("scan import", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list imports", err)
	}
	return records, nil
}

// FindByURL returns the newest record for url.
func (db *DB) FindByURL(ctx context.Context, url string) (*ImportRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM import_history WHERE url = $1 ORDER BY created_at DESC LIMIT 1`,
		url,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("find import", err)
	}
	return rec, nil
}

// scanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*ImportRecord, error) {
	var rec ImportRecord
	var id, status string
	err := s.Scan(&id, &rec.URL, &rec.Name, &rec.Email, &rec.Phone, &rec.Company,
		&rec.NotionPageID, &status, &rec.Error, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	rec.Status = types.ImportStatus(status)
	return &rec, nil
}
