// Package types provides type definitions for structured data used throughout the profile importer.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Profile field names, as they appear in JSON and in Notion property lookups.
const (
	FieldName           = "name"
	FieldPhone          = "phone"
	FieldEmail          = "email"
	FieldCompany        = "company"
	FieldPosition       = "position"
	FieldDegree         = "degree"
	FieldSchool         = "school"
	FieldGraduationTime = "graduationTime"
	FieldLocation       = "location"
	FieldAvatar         = "avatar"
	FieldURL            = "url"
)

// ProfileFields lists every profile field in declaration order.
var ProfileFields = []string{
	FieldName,
	FieldPhone,
	FieldEmail,
	FieldCompany,
	FieldPosition,
	FieldDegree,
	FieldSchool,
	FieldGraduationTime,
	FieldLocation,
	FieldAvatar,
	FieldURL,
}

// ExtractedProfile is the contact record scraped from a page.
// Every field is optional; an empty string means "not found".
type ExtractedProfile struct {
	Name           string `json:"name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Company        string `json:"company,omitempty"`
	Position       string `json:"position,omitempty"`
	Degree         string `json:"degree,omitempty"`
	School         string `json:"school,omitempty"`
	GraduationTime string `json:"graduationTime,omitempty"`
	Location       string `json:"location,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	URL            string `json:"url,omitempty"`
}

// Get returns the value of a field by its JSON name. Unknown names return "".
func (p *ExtractedProfile) Get(field string) string {
	if p == nil {
		return ""
	}
	if ptr := p.ref(field); ptr != nil {
		return *ptr
	}
	return ""
}

// Set assigns a field by its JSON name. It reports false for unknown names.
func (p *ExtractedProfile) Set(field, value string) bool {
	ptr := p.ref(field)
	if ptr == nil {
		return false
	}
	*ptr = value
	return true
}

// Fields returns the non-empty fields keyed by JSON name.
func (p *ExtractedProfile) Fields() map[string]string {
	out := make(map[string]string, len(ProfileFields))
	for _, f := range ProfileFields {
		if v := p.Get(f); v != "" {
			out[f] = v
		}
	}
	return out
}

// IsEmpty reports whether no field carries a value.
func (p *ExtractedProfile) IsEmpty() bool {
	return len(p.Fields()) == 0
}

func (p *ExtractedProfile) ref(field string) *string {
	switch field {
	case FieldName:
		return &p.Name
	case FieldPhone:
		return &p.Phone
	case FieldEmail:
		return &p.Email
	case FieldCompany:
		return &p.Company
	case FieldPosition:
		return &p.Position
	case FieldDegree:
		return &p.Degree
	case FieldSchool:
		return &p.School
	case FieldGraduationTime:
		return &p.GraduationTime
	case FieldLocation:
		return &p.Location
	case FieldAvatar:
		return &p.Avatar
	case FieldURL:
		return &p.URL
	}
	return nil
}

// UnmarshalJSON accepts any scalar for each field. Model output regularly
// carries phone numbers as numbers or "null" strings.
func (p *ExtractedProfile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = ExtractedProfile{}
	for key, value := range raw {
		s, err := scalarString(value)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		p.Set(key, s)
	}
	return nil
}

// scalarString converts a JSON scalar to its string form. null becomes "".
func scalarString(value json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(value, &v); err != nil {
		return "", err
	}

	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return "", nil
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
