package extraction

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonathan/profile-importer/internal/types"
	"github.com/microcosm-cc/bluemonday"
)

// ExpectedGraduationPrefix marks a graduation date that has not happened yet.
const ExpectedGraduationPrefix = "预计"

// DefaultGraduationMonth is appended to year-only graduation dates.
const DefaultGraduationMonth = "-06"

var (
	yearOnlyPattern      = regexp.MustCompile(`^\d{4}$`)
	locationPrefix       = regexp.MustCompile(`^[^,]*,\s*`)
	locationTrailingPart = regexp.MustCompile(`,.+$`)
)

// Normalizer cleans model output before it leaves the extractor.
type Normalizer struct {
	policy *bluemonday.Policy
}

// NewNormalizer returns a normalizer that strips all markup.
func NewNormalizer() *Normalizer {
	return &Normalizer{policy: bluemonday.StrictPolicy()}
}

// Normalize rewrites p in place: markup is stripped from every field, then
// graduation time and location are put into canonical form.
func (n *Normalizer) Normalize(p *types.ExtractedProfile) {
	for _, field := range types.ProfileFields {
		if v := p.Get(field); v != "" {
			p.Set(field, n.stripMarkup(v))
		}
	}
	p.GraduationTime = NormalizeGraduationTime(p.GraduationTime)
	p.Location = NormalizeLocation(p.Location)
}

// stripMarkup removes tags. bluemonday escapes what it keeps, so entities
// are decoded afterwards to give back plain text.
func (n *Normalizer) stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(n.policy.Sanitize(s)))
}

// NormalizeGraduationTime completes a bare year with DefaultGraduationMonth.
// Expected dates ("预计...") and anything else pass through unchanged.
func NormalizeGraduationTime(s string) string {
	if s == "" || strings.Contains(s, ExpectedGraduationPrefix) {
		return s
	}
	if yearOnlyPattern.MatchString(s) {
		return s + DefaultGraduationMonth
	}
	return s
}

// NormalizeLocation reduces "Country, City, District" style values to a
// single part: everything up to the first comma is dropped, then everything
// from the next comma on.
//
// A single-part value ("北京") is kept; a two-part value ("China, Beijing")
// yields the second part.
func NormalizeLocation(s string) string {
	if s == "" {
		return s
	}
	s = locationPrefix.ReplaceAllString(s, "")
	s = locationTrailingPart.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
