// Package fetch - platform.go provides platform detection and platform-specific noise selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known profile or recruiting site.
type Platform string

const (
	// PlatformLinkedIn is linkedin.com
	PlatformLinkedIn Platform = "linkedin"
	// PlatformMaimai is maimai.cn
	PlatformMaimai Platform = "maimai"
	// PlatformLiepin is liepin.com
	PlatformLiepin Platform = "liepin"
	// PlatformZhipin is zhipin.com (BOSS直聘)
	PlatformZhipin Platform = "zhipin"
	// PlatformUnknown is an unrecognized site
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the site from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Hostname())

	switch {
	case hostMatches(host, "linkedin.com"):
		return PlatformLinkedIn
	case hostMatches(host, "maimai.cn"):
		return PlatformMaimai
	case hostMatches(host, "liepin.com"):
		return PlatformLiepin
	case hostMatches(host, "zhipin.com"):
		return PlatformZhipin
	default:
		return PlatformUnknown
	}
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// PlatformNoiseSelectors returns selectors for page chrome that pollutes the
// profile text (feeds, recommendations, messaging widgets).
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{"nav", "footer", ".cookie-banner", "[role='dialog']"}

	switch platform {
	case PlatformLinkedIn:
		return append(common,
			".global-nav",
			".msg-overlay-container",
			".scaffold-layout__aside",
			".pv-browsemap-section",
			".artdeco-toasts",
		)
	case PlatformMaimai:
		return append(common, ".recommend-list", ".download-banner")
	case PlatformLiepin:
		return append(common, ".similar-resume", ".side-bar")
	case PlatformZhipin:
		return append(common, ".job-sider", ".footer-wrapper")
	default:
		return common
	}
}

// NeedsBrowser reports whether a platform renders profiles client-side, so a
// plain HTTP fetch never carries the profile.
func NeedsBrowser(platform Platform) bool {
	switch platform {
	case PlatformLinkedIn, PlatformMaimai:
		return true
	default:
		return false
	}
}
