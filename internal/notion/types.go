package notion

import "time"

// Property types the payload builder understands.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
	TypeEmail       = "email"
	TypePhoneNumber = "phone_number"
	TypeNumber      = "number"
	TypeCheckbox    = "checkbox"
	TypeURL         = "url"
	TypeFiles       = "files"
)

// Database is the subset of a Notion database object the importer reads.
type Database struct {
	ID         string                    `json:"id"`
	Title      []RichText                `json:"title,omitempty"`
	URL        string                    `json:"url,omitempty"`
	Properties map[string]PropertySchema `json:"properties"`
}

// PlainTitle joins the database title segments.
func (d *Database) PlainTitle() string {
	var s string
	for _, rt := range d.Title {
		if rt.PlainText != "" {
			s += rt.PlainText
		} else if rt.Text != nil {
			s += rt.Text.Content
		}
	}
	return s
}

// PropertySchema declares one database column.
type PropertySchema struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// RichText is a rich text segment. Only plain text content is produced.
type RichText struct {
	Type      string    `json:"type,omitempty"`
	Text      *TextBody `json:"text,omitempty"`
	PlainText string    `json:"plain_text,omitempty"`
}

// TextBody is the content of a text segment.
type TextBody struct {
	Content string `json:"content"`
}

// SelectOption names a select or multi-select option.
type SelectOption struct {
	Name string `json:"name"`
}

// File is a files-property entry.
type File struct {
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	External *ExternalFile `json:"external,omitempty"`
}

// ExternalFile points to a file hosted outside Notion.
type ExternalFile struct {
	URL string `json:"url"`
}

// PropertyValue is one property of a page being created. Exactly one field
// is set, matching the declared property type.
type PropertyValue struct {
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Email       *string        `json:"email,omitempty"`
	PhoneNumber *string        `json:"phone_number,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Files       []File         `json:"files,omitempty"`
}

// Parent places a page in a database.
type Parent struct {
	DatabaseID string `json:"database_id"`
}

// Icon is a page icon.
type Icon struct {
	Type     string        `json:"type"`
	External *ExternalFile `json:"external,omitempty"`
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Parent     Parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
	Icon       *Icon                    `json:"icon,omitempty"`
}

// Page is the subset of a page object the importer reads.
type Page struct {
	ID          string    `json:"id"`
	URL         string    `json:"url,omitempty"`
	CreatedTime time.Time `json:"created_time,omitempty"`
}

// Filter is a database query filter. Compound filters set Or; property
// filters set Property and one condition.
type Filter struct {
	Or          []Filter       `json:"or,omitempty"`
	Property    string         `json:"property,omitempty"`
	Email       *TextCondition `json:"email,omitempty"`
	PhoneNumber *TextCondition `json:"phone_number,omitempty"`
}

// TextCondition matches a text-like property.
type TextCondition struct {
	Equals string `json:"equals"`
}

// QueryRequest is the body of POST /databases/{id}/query.
type QueryRequest struct {
	Filter   *Filter `json:"filter,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

// QueryResponse is a page of query results.
type QueryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func text(content string) []RichText {
	return []RichText{{Text: &TextBody{Content: content}}}
}
