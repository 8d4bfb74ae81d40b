// Package prompt carries the embedded stage prompt templates. The pipeline
// treats them as opaque system-prompt strings; per-record context travels in
// the user message instead.
package prompt

import "embed"

//go:embed templates/*.txt
var templates embed.FS

// Stage prompt templates, loaded at init.
var (
	SitemapAnalysis = mustLoad("sitemap_analysis")
	ProspectBrief   = mustLoad("prospect_brief")
	KPIResearch     = mustLoad("kpi_research")
	CustomMessaging = mustLoad("custom_messaging")
)

func mustLoad(name string) string {
	data, err := templates.ReadFile("templates/" + name + ".txt")
	if err != nil {
		panic("prompt: missing template " + name)
	}
	return string(data)
}
