package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-messaging/internal/model"
	"github.com/sells-group/prospect-messaging/internal/prompt"
	"github.com/sells-group/prospect-messaging/internal/resilience"
)

// classifySitemap asks the model to sort sitemap URLs into the three page
// categories, then caps each list to its configured maximum in the fixed
// category order.
func (p *Pipeline) classifySitemap(ctx context.Context, companyName string, urls []string) (*model.SitemapAnalysis, error) {
	maxURLs := p.cfg.Scrape.MaxSitemapURLs
	if maxURLs > 0 && len(urls) > maxURLs {
		urls = urls[:maxURLs]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n\nSitemap URLs:\n", companyName)
	for _, u := range urls {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}

	var analysis model.SitemapAnalysis
	_, err := p.generateWith(ctx, "sitemap_analysis", p.cfg.Anthropic.SitemapModel, prompt.SitemapAnalysis, sb.String(),
		func(text string) error {
			analysis = model.SitemapAnalysis{}
			return parseJSONBlock(text, &analysis)
		})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: classify sitemap")
	}

	analysis.ServicesProductsURLs = capList(analysis.ServicesProductsURLs, p.cfg.Scrape.MaxServicesPages)
	analysis.MarketsIndustriesURLs = capList(analysis.MarketsIndustriesURLs, p.cfg.Scrape.MaxMarketsPages)
	analysis.CaseStudiesURLs = capList(analysis.CaseStudiesURLs, p.cfg.Scrape.MaxCasePages)
	return &analysis, nil
}

func capList(urls []string, max int) []string {
	if max >= 0 && len(urls) > max {
		return urls[:max]
	}
	return urls
}

// parseJSONBlock extracts the outermost JSON object from model output (which
// may be wrapped in prose or code fences) and unmarshals it. Failures come
// back as MalformedError so the retry policy treats them as retryable.
func parseJSONBlock(text string, v any) error {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return resilience.NewMalformedError(eris.New("no JSON object in response"), text)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return resilience.NewMalformedError(eris.Wrap(err, "unmarshal response"), text)
	}
	return nil
}
