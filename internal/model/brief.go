package model

// CaseStudy is one customer story extracted from gathered context.
type CaseStudy struct {
	Company  string `json:"case_study_company"`
	Industry string `json:"case_study_industry"`
	Results  string `json:"case_study_results"`
	Services string `json:"case_study_services"`
}

// ProspectBrief is the structured research brief synthesized from a context
// bundle. After a successful synthesis every list field is non-nil (empty
// slice, never absent).
type ProspectBrief struct {
	CompanyName        string      `json:"company_name"`
	ServicesProducts   []string    `json:"services_products"`
	MarketsIndustries  []string    `json:"markets_industries"`
	ProblemsPainPoints []string    `json:"problems_pain_points"`
	CaseStudies        []CaseStudy `json:"case_studies"`
}

// EnsureLists replaces nil list fields with empty slices so the non-null
// invariant holds regardless of what the model omitted.
func (b *ProspectBrief) EnsureLists() {
	if b.ServicesProducts == nil {
		b.ServicesProducts = []string{}
	}
	if b.MarketsIndustries == nil {
		b.MarketsIndustries = []string{}
	}
	if b.ProblemsPainPoints == nil {
		b.ProblemsPainPoints = []string{}
	}
	if b.CaseStudies == nil {
		b.CaseStudies = []CaseStudy{}
	}
}

// SitemapAnalysis is the model's classification of sitemap URLs, one list per
// page category.
type SitemapAnalysis struct {
	ServicesProductsURLs  []string `json:"services_products_urls"`
	MarketsIndustriesURLs []string `json:"markets_industries_urls"`
	CaseStudiesURLs       []string `json:"case_studies_urls"`
}
