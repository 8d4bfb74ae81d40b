// Package model defines the core domain types for the prospect messaging pipeline.
package model

import (
	"regexp"
	"strings"
)

// Prospect is a single organization read from the input batch. Immutable once
// parsed; the normalized website doubles as the cache key.
type Prospect struct {
	CompanyName string `json:"company_name"`
	Website     string `json:"company_website"`
	LinkedInURL string `json:"company_linkedin_url"`

	// Extra holds the untouched remaining input columns, preserved through
	// to the output file.
	Extra map[string]string `json:"-"`

	// Row is the zero-based position in the input batch. Output ordering is
	// keyed on it rather than on completion order.
	Row int `json:"-"`
}

// CacheKey returns the identity used for cache lookups: the normalized
// website URL.
func (p Prospect) CacheKey() string {
	return NormalizeWebsite(p.Website)
}

// HasLinkedIn reports whether the prospect carries a usable LinkedIn URL.
func (p Prospect) HasLinkedIn() bool {
	v := strings.ToLower(strings.TrimSpace(p.LinkedInURL))
	return v != "" && v != "nan" && v != "none"
}

var (
	schemeRe  = regexp.MustCompile(`(?i)^(https?://|mailto:|ftp://)`)
	wwwRunRe  = regexp.MustCompile(`(?i)^(www\.)+`)
	port443Re = regexp.MustCompile(`:443$`)
)

// NormalizeWebsite normalizes any plausible website input into a clean
// https:// URL: bare domains, www. prefixes, existing schemes, trailing
// slashes/paths, whitespace, and accidental surrounding quotes. The host is
// lower-cased so equivalent inputs map to the same cache key. Returns ""
// for empty input.
func NormalizeWebsite(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.Trim(u, `"'`)

	u = schemeRe.ReplaceAllString(u, "")

	// Drop query strings, fragments, and trailing slashes.
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")

	u = port443Re.ReplaceAllString(u, "")
	u = wwwRunRe.ReplaceAllString(u, "www.")

	if u == "" {
		return ""
	}

	// Lower-case the host portion only; paths stay as-is.
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = strings.ToLower(u[:i]) + u[i:]
	} else {
		u = strings.ToLower(u)
	}

	return "https://" + u
}
