package fetch

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImageInfo describes one <img> element the way the avatar locator sees it.
// Top is the distance from the viewport top in CSS pixels, or -1 when the
// page was not rendered.
type ImageInfo struct {
	Src           string  `json:"src,omitempty"`
	RawSrc        string  `json:"raw_src,omitempty"` // src attribute as written, before resolution
	DataSrc       string  `json:"data_src,omitempty"`
	DataOriginal  string  `json:"data_original,omitempty"`
	Alt           string  `json:"alt,omitempty"`
	Class         string  `json:"class,omitempty"`
	ID            string  `json:"id,omitempty"`
	Complete      bool    `json:"complete"`
	NaturalWidth  int     `json:"natural_width"`
	NaturalHeight int     `json:"natural_height"`
	Top           float64 `json:"top"`
	ParentText    string  `json:"parent_text,omitempty"`
}

// Snapshot is a captured page.
type Snapshot struct {
	URL            string      `json:"url"`
	Text           string      `json:"text"`
	HTML           string      `json:"-"`
	Images         []ImageInfo `json:"images,omitempty"`
	ViewportHeight float64     `json:"viewport_height,omitempty"`
	Rendered       bool        `json:"rendered"`
}

// maxParentText bounds the parent text kept per image.
const maxParentText = 500

// SnapshotFromHTML parses static HTML. Image sizes come from width/height
// attributes; positions are unknown.
func SnapshotFromHTML(html, pageURL string, noise ...string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)

	snap := &Snapshot{
		URL:  pageURL,
		HTML: html,
		Text: PageText(doc, noise...),
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		raw := attr(img, "src")
		info := ImageInfo{
			Src:          resolve(base, raw),
			RawSrc:       raw,
			DataSrc:      resolve(base, attr(img, "data-src")),
			DataOriginal: resolve(base, attr(img, "data-original")),
			Alt:          attr(img, "alt"),
			Class:        attr(img, "class"),
			ID:           attr(img, "id"),
			Top:          -1,
		}
		info.NaturalWidth = dimension(attr(img, "width"))
		info.NaturalHeight = dimension(attr(img, "height"))
		info.Complete = info.NaturalWidth > 0 && info.NaturalHeight > 0
		info.ParentText = truncateRunes(strings.Join(strings.Fields(img.Parent().Text()), " "), maxParentText)
		snap.Images = append(snap.Images, info)
	})

	return snap, nil
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

// resolve makes ref absolute against base. data: URIs and unparsable values
// are returned unchanged.
func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// dimension parses an HTML width/height attribute ("64", "64px").
// Percentages and garbage yield 0.
func dimension(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int(f)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
