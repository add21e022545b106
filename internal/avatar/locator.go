// Package avatar picks the profile photo out of a page snapshot.
//
// Three passes run in order and the first usable image wins:
//  1. site-specific class selectors (LinkedIn),
//  2. generic attribute selectors (alt, class, id, src substrings),
//  3. a scan of every image, keeping square, mid-sized images near the top
//     of the page whose surrounding text mentions a profile, largest first.
//
// Each selector in passes 1 and 2 behaves like document.querySelector: only
// the first matching image is considered, and a rejected match moves on to
// the next selector rather than the next image.
package avatar

import (
	"sort"
	"strings"

	"github.com/jonathan/profile-importer/internal/fetch"
)

// Size and shape bounds for a plausible avatar.
const (
	MinSize        = 48
	MaxSize        = 400
	MinAspectRatio = 0.9
	MaxAspectRatio = 1.1
)

// Attribute names a Selector can test.
const (
	AttrAlt   = "alt"
	AttrClass = "class"
	AttrID    = "id"
	AttrSrc   = "src"
)

// Selector matches images by attribute. With ClassToken set it matches an
// exact class token (".foo"); otherwise a case-insensitive substring of Attr
// (`[attr*="value" i]`).
type Selector struct {
	Attr       string
	Contains   string
	ClassToken string
}

// Matches reports whether img satisfies the selector.
func (s Selector) Matches(img *fetch.ImageInfo) bool {
	if s.ClassToken != "" {
		for _, token := range strings.Fields(img.Class) {
			if token == s.ClassToken {
				return true
			}
		}
		return false
	}

	var value string
	switch s.Attr {
	case AttrAlt:
		value = img.Alt
	case AttrClass:
		value = img.Class
	case AttrID:
		value = img.ID
	case AttrSrc:
		// Resolving a relative src prepends the page URL, which can itself
		// contain "profile" or "user".
		value = img.RawSrc
		if value == "" {
			value = img.Src
		}
	default:
		return false
	}
	return value != "" && strings.Contains(strings.ToLower(value), strings.ToLower(s.Contains))
}

func (s Selector) String() string {
	if s.ClassToken != "" {
		return "." + s.ClassToken
	}
	return `img[` + s.Attr + `*="` + s.Contains + `" i]`
}

// LinkedInSelectors are tried first.
var LinkedInSelectors = []Selector{
	{ClassToken: "pv-top-card-profile-picture__image"}, // profile page
	{ClassToken: "profile-photo-edit__preview"},        // edit page
	{ClassToken: "presence-entity__image"},             // small cards
	{ClassToken: "artdeco-entity-image--profile-photo"},
	{ClassToken: "ghost-person--size-8"}, // default avatar
}

// CommonSelectors are tried after the LinkedIn ones.
var CommonSelectors = []Selector{
	{Attr: AttrAlt, Contains: "avatar"},
	{Attr: AttrAlt, Contains: "profile"},
	{Attr: AttrAlt, Contains: "头像"},
	{Attr: AttrAlt, Contains: "用户"},
	{Attr: AttrAlt, Contains: "profile photo"},
	{Attr: AttrAlt, Contains: "user"},

	{Attr: AttrClass, Contains: "avatar"},
	{Attr: AttrClass, Contains: "profile"},
	{Attr: AttrClass, Contains: "photo"},
	{Attr: AttrClass, Contains: "user"},
	{Attr: AttrClass, Contains: "head"},

	{Attr: AttrID, Contains: "avatar"},
	{Attr: AttrID, Contains: "profile"},
	{Attr: AttrID, Contains: "photo"},
	{Attr: AttrID, Contains: "user"},

	{Attr: AttrSrc, Contains: "avatar"},
	{Attr: AttrSrc, Contains: "profile"},
	{Attr: AttrSrc, Contains: "user"},
}

// ContextKeywords mark the parent text of an avatar in the full scan.
var ContextKeywords = []string{"profile", "user", "avatar", "photo", "用户", "头像", "简历"}

// InvalidURLPatterns reject placeholder and default images.
var InvalidURLPatterns = []string{
	"placeholder",
	"default-avatar",
	"default-user",
	"default.png",
	"noimage",
	"blank.gif",
}

// Locator finds avatars. The zero value is not usable; call NewLocator.
type Locator struct {
	passes   [][]Selector
	keywords []string
}

// NewLocator returns a locator with the built-in selector tables.
func NewLocator() *Locator {
	return &Locator{
		passes:   [][]Selector{LinkedInSelectors, CommonSelectors},
		keywords: ContextKeywords,
	}
}

// Locate returns the avatar URL for snap, or "" when no image qualifies.
func (l *Locator) Locate(snap *fetch.Snapshot) string {
	if snap == nil || len(snap.Images) == 0 {
		return ""
	}

	for _, selectors := range l.passes {
		for _, sel := range selectors {
			img := first(snap.Images, sel)
			if img == nil || !IsValidImage(img) {
				continue
			}
			if url := ImageURL(img); url != "" {
				return url
			}
		}
	}

	for _, img := range l.scan(snap) {
		if url := ImageURL(img); url != "" {
			return url
		}
	}
	return ""
}

// scan returns the full-scan candidates, largest natural area first.
func (l *Locator) scan(snap *fetch.Snapshot) []*fetch.ImageInfo {
	var candidates []*fetch.ImageInfo
	for i := range snap.Images {
		img := &snap.Images[i]
		if !IsValidImage(img) {
			continue
		}
		if !inTopPortion(img, snap.ViewportHeight) || !l.hasUserContext(img) {
			continue
		}
		candidates = append(candidates, img)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return area(candidates[i]) > area(candidates[j])
	})
	return candidates
}

func (l *Locator) hasUserContext(img *fetch.ImageInfo) bool {
	text := strings.ToLower(img.ParentText)
	for _, kw := range l.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func first(images []fetch.ImageInfo, sel Selector) *fetch.ImageInfo {
	for i := range images {
		if sel.Matches(&images[i]) {
			return &images[i]
		}
	}
	return nil
}

// IsValidImage reports whether img is loaded, roughly square and between
// MinSize and MaxSize on both axes.
func IsValidImage(img *fetch.ImageInfo) bool {
	if !img.Complete || img.NaturalWidth <= 0 || img.NaturalHeight <= 0 {
		return false
	}

	w, h := img.NaturalWidth, img.NaturalHeight
	ratio := float64(w) / float64(h)

	return w >= MinSize && w <= MaxSize &&
		h >= MinSize && h <= MaxSize &&
		ratio >= MinAspectRatio && ratio <= MaxAspectRatio
}

// ImageURL returns the first of src, data-src and data-original, or "" when
// that value is a data URI or a known placeholder.
func ImageURL(img *fetch.ImageInfo) string {
	url := img.Src
	if url == "" {
		url = img.DataSrc
	}
	if url == "" {
		url = img.DataOriginal
	}
	if !IsValidURL(url) {
		return ""
	}
	return url
}

// IsValidURL rejects empty values, data URIs and placeholder images.
func IsValidURL(url string) bool {
	if url == "" || strings.HasPrefix(url, "data:") {
		return false
	}
	lower := strings.ToLower(url)
	for _, pattern := range InvalidURLPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

// inTopPortion reports whether the image starts in the upper half of the
// viewport. Unrendered snapshots carry no position and always pass.
func inTopPortion(img *fetch.ImageInfo, viewportHeight float64) bool {
	if viewportHeight <= 0 {
		return true
	}
	return img.Top < viewportHeight/2
}

func area(img *fetch.ImageInfo) int {
	return img.NaturalWidth * img.NaturalHeight
}
