package scrape

import (
	"context"
	"encoding/xml"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// sitemapCandidates are the well-known sitemap locations tried in order.
var sitemapCandidates = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
}

// FetchSitemap tries the well-known sitemap paths under baseURL and returns
// every <loc> URL from the first one that parses. An absent or empty sitemap
// is not an error — the URL list is simply empty.
func (s *Scraper) FetchSitemap(ctx context.Context, baseURL string) []string {
	for _, path := range sitemapCandidates {
		sitemapURL := strings.TrimRight(baseURL, "/") + path

		body, err := s.get(ctx, sitemapURL)
		if err != nil || strings.TrimSpace(body) == "" {
			continue
		}
		if urls := ParseSitemap(body); len(urls) > 0 {
			zap.L().Debug("sitemap found",
				zap.String("url", sitemapURL),
				zap.Int("locs", len(urls)),
			)
			return urls
		}
	}
	return nil
}

// sitemapDoc matches both urlset and sitemapindex documents; only the <loc>
// elements matter.
type sitemapDoc struct {
	Locs []string `xml:"url>loc"`
	Maps []string `xml:"sitemap>loc"`
}

var locRe = regexp.MustCompile(`<loc>(.*?)</loc>`)

// ParseSitemap extracts URLs from a sitemap XML document, falling back to a
// regex scan for malformed XML.
func ParseSitemap(content string) []string {
	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(content), &doc); err == nil {
		urls := make([]string, 0, len(doc.Locs)+len(doc.Maps))
		for _, loc := range append(doc.Locs, doc.Maps...) {
			if v := strings.TrimSpace(loc); v != "" {
				urls = append(urls, v)
			}
		}
		if len(urls) > 0 {
			return urls
		}
	}

	var urls []string
	for _, m := range locRe.FindAllStringSubmatch(content, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			urls = append(urls, v)
		}
	}
	return urls
}
