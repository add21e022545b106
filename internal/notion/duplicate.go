package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/profile-importer/internal/types"
)

// Property names the duplicate check filters on.
const (
	EmailProperty = "Email"
	PhoneProperty = "Phone"
)

// DuplicateMessage is reported when a matching contact exists.
const DuplicateMessage = "人选已存在"

// DuplicateResult is the outcome of a duplicate check.
type DuplicateResult struct {
	HasDuplicate bool
	Message      string
	// ExistingPage is the first matching page, when found.
	ExistingPage *Page
}

// DuplicateFilter builds the OR filter matching the profile's email or
// phone. It returns nil when the profile has neither.
func DuplicateFilter(p *types.ExtractedProfile) *Filter {
	var or []Filter
	if email := strings.TrimSpace(p.Email); email != "" {
		or = append(or, Filter{Property: EmailProperty, Email: &TextCondition{Equals: email}})
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" {
		or = append(or, Filter{Property: PhoneProperty, PhoneNumber: &TextCondition{Equals: phone}})
	}
	if len(or) == 0 {
		return nil
	}
	return &Filter{Or: or}
}

// CheckDuplicate queries the database for a page with the same email or
// phone. Profiles with neither are never duplicates and cost no request.
func (c *Client) CheckDuplicate(ctx context.Context, databaseID string, p *types.ExtractedProfile) (*DuplicateResult, error) {
	filter := DuplicateFilter(p)
	if filter == nil {
		return &DuplicateResult{}, nil
	}

	resp, err := c.QueryDatabase(ctx, databaseID, &QueryRequest{Filter: filter, PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	if len(resp.Results) == 0 {
		return &DuplicateResult{}, nil
	}
	page := resp.Results[0]
	return &DuplicateResult{HasDuplicate: true, Message: DuplicateMessage, ExistingPage: &page}, nil
}
