package notion

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/profile-importer/internal/types"
)

// GraduationTimeProperty is written from the profile's graduationTime field
// directly, since the lowercase lookup can never match its camel-cased name.
const GraduationTimeProperty = "GraduationTime"

// Length limits applied per property type.
const (
	MaxTitleLength    = 100
	MaxRichTextLength = 1000
	MaxSelectLength   = 100
	MaxEmailLength    = 200
	MaxPhoneLength    = 50
	MaxURLLength      = 1000
)

// invisibleChars matches C0/C1 control characters, zero-width spaces and joiners, and the BOM.
var invisibleChars = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F\x{200B}-\x{200D}\x{FEFF}]`)

// Truncate trims s and, if it is longer than max runes, cuts it to max-3
// runes followed by "...".
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max < 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// CleanSelectValue replaces commas, which Notion rejects in option names.
func CleanSelectValue(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(s, ",", " -"))
}

// StripInvisible removes control and zero-width characters.
func StripInvisible(s string) string {
	return invisibleChars.ReplaceAllString(s, "")
}

// lookup resolves a property name to a profile value: the lowercased name
// first, then the name as written.
func lookup(p *types.ExtractedProfile, key string) string {
	if v := p.Get(strings.ToLower(key)); v != "" {
		return v
	}
	return p.Get(key)
}

// BuildProperties maps a profile onto the properties a database declares.
// It returns the payload and the names of properties whose type it does not
// handle.
func BuildProperties(schema map[string]PropertySchema, p *types.ExtractedProfile) (map[string]PropertyValue, []string) {
	props := make(map[string]PropertyValue, len(schema))
	var skipped []string

	keys := make([]string, 0, len(schema))
	for key := range schema {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == GraduationTimeProperty {
			continue
		}

		value := lookup(p, key)
		prop, ok, handled := buildProperty(schema[key].Type, key, value)
		if !handled {
			skipped = append(skipped, key)
			continue
		}
		if ok {
			props[key] = prop
		}
	}

	if _, declared := schema[GraduationTimeProperty]; declared && p.GraduationTime != "" {
		props[GraduationTimeProperty] = PropertyValue{RichText: text(StripInvisible(p.GraduationTime))}
	}

	return props, skipped
}

// buildProperty returns the value for one property. ok is false when the
// property should be left out; handled is false for unknown types.
func buildProperty(propType, key, value string) (prop PropertyValue, ok, handled bool) {
	switch propType {
	case TypeTitle:
		return PropertyValue{Title: text(StripInvisible(Truncate(value, MaxTitleLength)))}, true, true

	case TypeRichText:
		return PropertyValue{RichText: text(StripInvisible(Truncate(value, MaxRichTextLength)))}, true, true

	case TypeSelect:
		if value == "" {
			return prop, false, true
		}
		return PropertyValue{Select: &SelectOption{Name: StripInvisible(Truncate(CleanSelectValue(value), MaxSelectLength))}}, true, true

	case TypeMultiSelect:
		if value == "" {
			return prop, false, true
		}
		return PropertyValue{MultiSelect: []SelectOption{{Name: StripInvisible(Truncate(CleanSelectValue(value), MaxSelectLength))}}}, true, true

	case TypeEmail:
		if value == "" {
			return prop, false, true
		}
		s := StripInvisible(Truncate(value, MaxEmailLength))
		return PropertyValue{Email: &s}, true, true

	case TypePhoneNumber:
		if value == "" {
			return prop, false, true
		}
		s := StripInvisible(Truncate(value, MaxPhoneLength))
		return PropertyValue{PhoneNumber: &s}, true, true

	case TypeNumber:
		if value == "" {
			return prop, false, true
		}
		n := parseNumber(value)
		return PropertyValue{Number: &n}, true, true

	case TypeCheckbox:
		b := value != ""
		return PropertyValue{Checkbox: &b}, true, true

	case TypeURL:
		if value == "" {
			return prop, false, true
		}
		s := StripInvisible(Truncate(value, MaxURLLength))
		return PropertyValue{URL: &s}, true, true

	case TypeFiles:
		if value == "" {
			return prop, false, true
		}
		return PropertyValue{Files: []File{{
			Type:     "external",
			Name:     StripInvisible(strings.ToLower(key)),
			External: &ExternalFile{URL: StripInvisible(value)},
		}}}, true, true

	default:
		return prop, false, false
	}
}

// parseNumber reads a decimal number, yielding 0 for anything unparsable.
func parseNumber(s string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// NewPageRequest assembles the create-page body. The avatar, when present,
// becomes the page icon.
func NewPageRequest(databaseID string, props map[string]PropertyValue, avatar string) *CreatePageRequest {
	req := &CreatePageRequest{
		Parent:     Parent{DatabaseID: databaseID},
		Properties: props,
	}
	if avatar != "" {
		req.Icon = &Icon{Type: "external", External: &ExternalFile{URL: avatar}}
	}
	return req
}
