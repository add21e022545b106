package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS import_history (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		notion_page_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_history_url ON import_history(url, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_import_history_created ON import_history(created_at)`,
}

// SQLite is a single-file history store for local use.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// ":memory:" gives a throwaway store.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers; one connection also keeps
	// in-memory databases alive.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	for _, q := range sqliteSchema {
		if _, err := conn.Exec(q); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the database.
func (s *SQLite) Close() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *SQLite) RecordImport(ctx context.Context, rec *ImportRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO import_history (`+selectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.URL, rec.Name, rec.Email, rec.Phone, rec.Company,
		rec.NotionPageID, string(rec.Status), rec.Error, rec.CreatedAt.Format(sqliteTime),
	)
	if err != nil {
		return wrap("record import", err)
	}
	return nil
}

func (s *SQLite) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM import_history ORDER BY created_at DESC LIMIT ?`,
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

func (s *SQLite) FindByURL(ctx context.Context, url string) (*ImportRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM import_history WHERE url = ? ORDER BY created_at DESC LIMIT 1`,
		url,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("find import", err)
	}
	return rec, nil
}

// sqliteTime sorts lexically in UTC and is parsed back by the driver for
// TIMESTAMP columns.
const sqliteTime = "2006-01-02 15:04:05.000000000"
