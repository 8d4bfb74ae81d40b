package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-messaging/internal/model"
	"github.com/sells-group/prospect-messaging/internal/prompt"
)

const (
	// Serialization truncation limits keep the brief prompt inside a
	// predictable token budget regardless of page size.
	maxHomepageChars = 8000
	maxPageChars     = 5000

	// maxFallbackServices bounds the one-shot pain-point research.
	maxFallbackServices = 5
)

// synthesizeBrief turns a context bundle into a structured research brief.
// Exhausting retries on malformed output fails the record at this stage.
func (p *Pipeline) synthesizeBrief(ctx context.Context, prospect model.Prospect, bundle *model.ContextBundle) (*model.ProspectBrief, error) {
	input := formatBundle(prospect, bundle)

	var brief model.ProspectBrief
	_, err := p.generateWith(ctx, "prospect_brief", p.cfg.Anthropic.BriefModel, prompt.ProspectBrief, input,
		func(text string) error {
			brief = model.ProspectBrief{}
			return parseJSONBlock(text, &brief)
		})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: synthesize brief")
	}

	brief.EnsureLists()
	if brief.CompanyName == "" {
		brief.CompanyName = prospect.CompanyName
	}

	// One-shot fallback: when the gathered materials surfaced no pain points,
	// derive generic ones from the services the company sells.
	if len(brief.ProblemsPainPoints) == 0 && len(brief.ServicesProducts) > 0 {
		brief.ProblemsPainPoints = p.researchPainPoints(ctx, brief.ServicesProducts)
	}

	return &brief, nil
}

// researchPainPoints runs KPI research per service, concurrently, and flattens
// the bullets with a service prefix. Individual research failures drop that
// service's contribution; the fallback never fails the brief.
func (p *Pipeline) researchPainPoints(ctx context.Context, services []string) []string {
	if len(services) > maxFallbackServices {
		services = services[:maxFallbackServices]
	}

	perService := make([][]string, len(services))
	g, gCtx := errgroup.WithContext(ctx)
	for i, service := range services {
		g.Go(func() error {
			resp, err := p.generate(gCtx, "kpi_research", p.cfg.Anthropic.BriefModel, prompt.KPIResearch, service)
			if err != nil {
				zap.L().Warn("pipeline: pain point research failed for service",
					zap.String("service", service), zap.Error(err))
				return nil
			}
			perService[i] = parseBullets(resp.Text())
			return nil
		})
	}
	_ = g.Wait()

	points := []string{}
	for i, service := range services {
		for _, bullet := range perService[i] {
			points = append(points, fmt.Sprintf("[%s] %s", service, bullet))
		}
	}
	return points
}

// parseBullets splits model output into one entry per non-empty line, with
// leading bullet characters stripped.
func parseBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// formatBundle serializes the gathered context into the brief prompt's user
// message. Section order is fixed: profile, homepage, then the page
// categories in their serialization order.
func formatBundle(prospect model.Prospect, bundle *model.ContextBundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Company: %s\n", prospect.CompanyName)
	if prospect.Website != "" {
		fmt.Fprintf(&sb, "Website: %s\n", prospect.CacheKey())
	}
	sb.WriteByte('\n')

	if bundle.HasProfile() {
		sb.WriteString("## LinkedIn Profile\n")
		if bundle.Profile.About != "" {
			fmt.Fprintf(&sb, "About: %s\n", bundle.Profile.About)
		}
		if bundle.Profile.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", bundle.Profile.Description)
		}
		if bundle.Profile.Industry != "" {
			fmt.Fprintf(&sb, "Industry: %s\n", bundle.Profile.Industry)
		}
		if bundle.Profile.EmployeeCount != "" {
			fmt.Fprintf(&sb, "Company size: %s\n", bundle.Profile.EmployeeCount)
		}
		sb.WriteByte('\n')
	}

	if bundle.Homepage != "" {
		sb.WriteString("## Website Homepage\n")
		sb.WriteString(truncateTo(bundle.Homepage, maxHomepageChars))
		sb.WriteString("\n\n")
	}

	sectionTitles := map[model.PageCategory]string{
		model.CategoryServices:    "Services & Products Pages",
		model.CategoryMarkets:     "Markets & Industries Pages",
		model.CategoryCaseStudies: "Case Study Pages",
	}
	for _, category := range model.Categories {
		pages := bundle.Pages[category]
		if len(pages) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n", sectionTitles[category])
		for _, page := range pages {
			fmt.Fprintf(&sb, "### %s\n%s\n\n", page.URL, truncateTo(page.Content, maxPageChars))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func truncateTo(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "\n...[truncated]"
}
