package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/profile-importer/internal/config"
	"github.com/jonathan/profile-importer/internal/types"
)

// Listing limits for ListImports.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ErrInvalidRecord is returned when a record has no URL or status.
var ErrInvalidRecord = errors.New("import record requires url and status")

// ImportRecord is one row of import history. Duplicates and failures are
// recorded as well as successful saves.
type ImportRecord struct {
	ID           uuid.UUID          `json:"id"`
	URL          string             `json:"url"`
	Name         string             `json:"name,omitempty"`
	Email        string             `json:"email,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Company      string             `json:"company,omitempty"`
	NotionPageID string             `json:"notion_page_id,omitempty"`
	Status       types.ImportStatus `json:"status"`
	Error        string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// RecordFromResult builds a history row for an import of pageURL.
func RecordFromResult(pageURL string, res *types.ImportResult) *ImportRecord {
	rec := &ImportRecord{
		URL:       pageURL,
		Status:    res.Status,
		Error:     res.Error,
		CreatedAt: res.FinishedAt,
	}
	if p := res.Profile; p != nil {
		rec.Name = p.Name
		rec.Email = p.Email
		rec.Phone = p.Phone
		rec.Company = p.Company
		if rec.URL == "" {
			rec.URL = p.URL
		}
	}
	if res.Page != nil {
		rec.NotionPageID = res.Page.PageID
	}
	return rec
}

// Store persists import history.
type Store interface {
	RecordImport(ctx context.Context, rec *ImportRecord) error
	ListImports(ctx context.Context, limit int) ([]ImportRecord, error)
	// FindByURL returns the newest record for url, or nil when there is none.
	FindByURL(ctx context.Context, url string) (*ImportRecord, error)
	Close()
}

// Open connects to the store selected by cfg: Postgres when a URL is set,
// otherwise SQLite when a path is set. It returns nil, nil when neither is
// configured.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch {
	case cfg.URL != "":
		pg, err := Connect(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case cfg.SQLitePath != "":
		lite, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return nil, nil
	}
}

// prepare fills defaults and checks required fields before insert.
func prepare(rec *ImportRecord) error {
	if rec == nil || rec.URL == "" || rec.Status == "" {
		return ErrInvalidRecord
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func wrap(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, err)
}
