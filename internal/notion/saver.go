package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/types"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when the API key or database ID is missing.
	ErrNotConfigured = errors.New("notion API key and database ID must be configured")
	// ErrDuplicate is returned when a contact with the same email or phone exists.
	ErrDuplicate = errors.New("contact already exists")
	// ErrInvalidDatabase is returned when Notion rejects the database ID.
	ErrInvalidDatabase = errors.New("invalid database ID, check the configuration")
	// ErrUnauthorized is returned when Notion rejects the API key.
	ErrUnauthorized = errors.New("notion API key is invalid or not authorized")
	// ErrSaveFailed wraps every other save failure.
	ErrSaveFailed = errors.New("save failed")
)

// Saver writes profiles into one database.
type Saver struct {
	client     *Client
	databaseID string
	logger     *zap.Logger
}

// NewSaver creates a saver for databaseID.
func NewSaver(client *Client, databaseID string, logger *zap.Logger) *Saver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{client: client, databaseID: strings.TrimSpace(databaseID), logger: logger}
}

// Configured reports whether both credentials are present.
func (s *Saver) Configured() bool {
	return s.client != nil && s.client.Configured() && s.databaseID != ""
}

// DatabaseID returns the target database.
func (s *Saver) DatabaseID() string {
	return s.databaseID
}

// Save checks for duplicates, reads the database schema, and creates a page
// for p.
func (s *Saver) Save(ctx context.Context, p *types.ExtractedProfile) (*types.SavedPage, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	logger := logging.FromContext(ctx, s.logger).With(zap.String("database_id", s.databaseID))

	dup, err := s.client.CheckDuplicate(ctx, s.databaseID, p)
	if err != nil {
		return nil, mapError(err)
	}
	if dup.HasDuplicate {
		logger.Info("duplicate contact, not saving", zap.String("existing_page", dup.ExistingPage.ID))
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, dup.Message)
	}

	db, err := s.client.GetDatabase(ctx, s.databaseID)
	if err != nil {
		return nil, mapError(fmt.Errorf("failed to fetch database schema: %w", err))
	}

	props, skipped := BuildProperties(db.Properties, p)
	if len(skipped) > 0 {
		logger.Debug("skipping unsupported property types", zap.Strings("properties", skipped))
	}

	page, err := s.client.CreatePage(ctx, NewPageRequest(s.databaseID, props, p.Avatar))
	if err != nil {
		return nil, mapError(err)
	}

	logger.Info("saved profile to notion", zap.String("page_id", page.ID))
	return &types.SavedPage{PageID: page.ID, URL: page.URL}, nil
}

// Schema returns the database's property types keyed by name.
func (s *Saver) Schema(ctx context.Context) (*Database, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	db, err := s.client.GetDatabase(ctx, s.databaseID)
	if err != nil {
		return nil, mapError(err)
	}
	return db, nil
}

// mapError classifies a failed call into the package's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	var apiErr *APIError
	isAPI := errors.As(err, &apiErr)

	switch {
	case strings.Contains(msg, "Invalid database_id"),
		isAPI && apiErr.Code == "object_not_found",
		isAPI && apiErr.Code == "validation_error" && strings.Contains(apiErr.Message, "database_id"):
		return fmt.Errorf("%w: %w", ErrInvalidDatabase, err)
	case strings.Contains(msg, "Unauthorized"),
		isAPI && (apiErr.Status == http.StatusUnauthorized || apiErr.Code == "unauthorized"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
}
