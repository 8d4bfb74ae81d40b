package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-messaging/internal/model"
	"github.com/sells-group/prospect-messaging/pkg/brightdata"
)

// pageFetchConcurrency bounds per-prospect page fetches; the governor's
// network ceiling still applies across all prospects.
const pageFetchConcurrency = 5

// gather assembles the context bundle for one prospect from two sources: the
// prefetched LinkedIn profile and the prospect's website. Either source may
// come up empty without failing the record; the caller decides what an empty
// bundle means.
func (p *Pipeline) gather(ctx context.Context, prospect model.Prospect, profiles map[string]brightdata.ProfileRecord) *model.ContextBundle {
	bundle := &model.ContextBundle{Pages: map[model.PageCategory][]model.Page{}}
	log := zap.L().With(zap.String("company", prospect.CompanyName))

	if prospect.HasLinkedIn() {
		if rec, ok := profiles[prospect.LinkedInURL]; ok {
			bundle.Profile = profileFromRecord(rec)
		} else {
			log.Debug("gather: no prefetched profile", zap.String("linkedin_url", prospect.LinkedInURL))
		}
	}

	base := prospect.CacheKey()
	if base == "" {
		return bundle
	}

	// Homepage and sitemap fetch in parallel; both tolerate failure.
	var sitemapURLs []string

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := p.scraper.FetchPage(gCtx, base)
		if err != nil {
			log.Warn("gather: homepage fetch failed", zap.String("url", base), zap.Error(err))
			return nil
		}
		bundle.Homepage = text
		return nil
	})
	g.Go(func() error {
		sitemapURLs = p.scraper.FetchSitemap(gCtx, base)
		return nil
	})
	_ = g.Wait()

	bundle.SitemapURLsFound = len(sitemapURLs)

	if len(sitemapURLs) == 0 {
		return bundle
	}

	analysis, err := p.classifySitemap(ctx, prospect.CompanyName, sitemapURLs)
	if err != nil {
		log.Warn("gather: sitemap classification failed, homepage only", zap.Error(err))
		return bundle
	}

	p.fetchCategorized(ctx, bundle, analysis)
	return bundle
}

// fetchCategorized pulls the classified pages, a few at a time, and files the
// extracted text under its category. Individual page failures are dropped.
func (p *Pipeline) fetchCategorized(ctx context.Context, bundle *model.ContextBundle, analysis *model.SitemapAnalysis) {
	type target struct {
		category model.PageCategory
		url      string
	}

	var targets []target
	for _, u := range analysis.ServicesProductsURLs {
		targets = append(targets, target{model.CategoryServices, u})
	}
	for _, u := range analysis.MarketsIndustriesURLs {
		targets = append(targets, target{model.CategoryMarkets, u})
	}
	for _, u := range analysis.CaseStudiesURLs {
		targets = append(targets, target{model.CategoryCaseStudies, u})
	}

	pages := make([]*model.Page, len(targets))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(pageFetchConcurrency)
	for i, t := range targets {
		g.Go(func() error {
			text, err := p.scraper.FetchPage(gCtx, t.url)
			if err != nil {
				zap.L().Warn("gather: page fetch failed, dropping",
					zap.String("url", t.url), zap.Error(err))
				return nil
			}
			pages[i] = &model.Page{URL: t.url, Content: text}
			return nil
		})
	}
	_ = g.Wait()

	// Refile in target order so bundle contents are deterministic for a given
	// classification.
	for i, t := range targets {
		if pages[i] != nil {
			bundle.Pages[t.category] = append(bundle.Pages[t.category], *pages[i])
		}
	}
}

func profileFromRecord(rec brightdata.ProfileRecord) *model.ProfileData {
	return &model.ProfileData{
		LinkedInURL:   rec.Key(),
		CompanyName:   rec.Name,
		About:         rec.About,
		Description:   rec.Description,
		Industry:      rec.Industries,
		EmployeeCount: rec.CompanySize,
		Headquarters:  rec.Headquarters,
		Founded:       rec.Founded,
	}
}
