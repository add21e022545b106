package types

import "time"

// ImportStatus is the outcome of a single import.
type ImportStatus string

// Import statuses recorded in history.
const (
	ImportStatusSaved     ImportStatus = "saved"
	ImportStatusDuplicate ImportStatus = "duplicate"
	ImportStatusFailed    ImportStatus = "failed"
)

// SavedPage identifies the Notion page created for a profile.
type SavedPage struct {
	PageID string `json:"page_id"`
	URL    string `json:"url,omitempty"`
}

// ImportResult describes one finished import.
type ImportResult struct {
	Profile     *ExtractedProfile `json:"profile"`
	Page        *SavedPage        `json:"page,omitempty"`
	AvatarFound bool              `json:"avatar_found"`
	Status      ImportStatus      `json:"status"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// Duration returns how long the import took.
func (r *ImportResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
