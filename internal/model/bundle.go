package model

// PageCategory classifies a scraped website page.
type PageCategory string

const (
	CategoryServices    PageCategory = "services_products"
	CategoryMarkets     PageCategory = "markets_industries"
	CategoryCaseStudies PageCategory = "case_studies"
)

// Categories lists all page categories in their fixed serialization order.
var Categories = []PageCategory{CategoryServices, CategoryMarkets, CategoryCaseStudies}

// ProfileData holds the LinkedIn company profile fields the pipeline consumes.
// Only About and Description are fed to the model; the rest is kept for the
// cache snapshot.
type ProfileData struct {
	LinkedInURL   string `json:"linkedin_url"`
	CompanyName   string `json:"company_name,omitempty"`
	About         string `json:"about,omitempty"`
	Description   string `json:"description,omitempty"`
	Industry      string `json:"industry,omitempty"`
	EmployeeCount string `json:"employee_count,omitempty"`
	Headquarters  string `json:"headquarters,omitempty"`
	Founded       string `json:"founded,omitempty"`
}

// HasContent reports whether the profile carries any usable text.
func (p *ProfileData) HasContent() bool {
	return p != nil && (p.About != "" || p.Description != "")
}

// Page is one scraped website page with its extracted text.
type Page struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ContextBundle is the merged raw context gathered for one prospect. A
// partially populated bundle is valid as long as at least one source
// contributed data.
type ContextBundle struct {
	Profile  *ProfileData            `json:"profile,omitempty"`
	Homepage string                  `json:"homepage,omitempty"`
	Pages    map[PageCategory][]Page `json:"pages,omitempty"`

	// SitemapURLsFound records how many URLs the sitemap yielded before
	// classification, for diagnostics only.
	SitemapURLsFound int `json:"sitemap_urls_found"`
}

// HasProfile reports whether the profile branch contributed data.
func (b *ContextBundle) HasProfile() bool {
	return b.Profile.HasContent()
}

// HasSite reports whether the site branch contributed any text.
func (b *ContextBundle) HasSite() bool {
	if b.Homepage != "" {
		return true
	}
	for _, pages := range b.Pages {
		if len(pages) > 0 {
			return true
		}
	}
	return false
}

// Empty reports whether both gathering branches yielded nothing, which fails
// the record at the gathering stage.
func (b *ContextBundle) Empty() bool {
	return !b.HasProfile() && !b.HasSite()
}
