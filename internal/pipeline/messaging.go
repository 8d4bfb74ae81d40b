package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-messaging/internal/model"
	"github.com/sells-group/prospect-messaging/internal/prompt"
)

// synthesizeMessaging turns a brief into outbound messaging inputs. The raw
// response always survives; missing markers degrade the parsed fields to
// empty without failing the record.
func (p *Pipeline) synthesizeMessaging(ctx context.Context, brief *model.ProspectBrief) (*model.MessagingResult, error) {
	resp, err := p.generate(ctx, "custom_messaging", p.cfg.Anthropic.MessagingModel, prompt.CustomMessaging, formatBrief(brief))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: synthesize messaging")
	}

	result := ParseMessaging(resp.Text())
	if result.SelectedService == "" && result.ProblemSolved == "" && result.IntentSignals == "" {
		zap.L().Warn("pipeline: no messaging markers found, keeping raw output",
			zap.String("company", brief.CompanyName))
	}
	return result, nil
}

var (
	selectedServiceRe = regexp.MustCompile(`(?m)^[-*]?\s*\*\*Selected Service\*\*:\s*(.+)$`)
	problemSolvedRe   = regexp.MustCompile(`(?m)^[-*]?\s*\*\*Problem Solved\*\*:\s*(.+)$`)
	intentSignalsRe   = regexp.MustCompile(`(?s)\*\*Intent Signals\*\*:\s*\n(.*?)(?:\n\s*\n|\z)`)
)

// ParseMessaging extracts the three marker sections from raw messaging
// output. Any marker may be absent; its field stays empty.
func ParseMessaging(raw string) *model.MessagingResult {
	result := &model.MessagingResult{Raw: strings.TrimSpace(raw)}

	if m := selectedServiceRe.FindStringSubmatch(raw); m != nil {
		result.SelectedService = strings.TrimSpace(m[1])
	}
	if m := problemSolvedRe.FindStringSubmatch(raw); m != nil {
		result.ProblemSolved = strings.TrimSpace(m[1])
	}
	if m := intentSignalsRe.FindStringSubmatch(raw); m != nil {
		result.IntentSignals = normalizeSignals(m[1])
	}
	return result
}

// normalizeSignals rewrites the captured signal lines as uniform "- " bullets
// so downstream consumers see one shape regardless of the model's list style.
func normalizeSignals(block string) string {
	var bullets []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line != "" {
			bullets = append(bullets, "- "+line)
		}
	}
	return strings.Join(bullets, "\n")
}

// formatBrief serializes a brief into the messaging prompt's user message.
func formatBrief(brief *model.ProspectBrief) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Research Brief: %s\n\n", brief.CompanyName)

	writeList := func(title string, items []string) {
		fmt.Fprintf(&sb, "## %s\n", title)
		if len(items) == 0 {
			sb.WriteString("(none found)\n")
		}
		for _, item := range items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
		sb.WriteByte('\n')
	}

	writeList("Services & Products", brief.ServicesProducts)
	writeList("Markets & Industries", brief.MarketsIndustries)
	writeList("Problems & Pain Points", brief.ProblemsPainPoints)

	sb.WriteString("## Case Studies\n")
	if len(brief.CaseStudies) == 0 {
		sb.WriteString("(none found)\n")
	}
	for _, cs := range brief.CaseStudies {
		fmt.Fprintf(&sb, "- %s (%s): %s [services: %s]\n",
			cs.Company, cs.Industry, cs.Results, cs.Services)
	}

	return strings.TrimRight(sb.String(), "\n")
}
