package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-messaging/internal/model"
	"github.com/sells-group/prospect-messaging/internal/resilience"
)

func TestFormatBundle_SectionOrder(t *testing.T) {
	prospect := model.Prospect{CompanyName: "Acme", Website: "acme.com"}
	bundle := &model.ContextBundle{
		Profile:  &model.ProfileData{About: "We forge anvils.", Industry: "Manufacturing"},
		Homepage: "Welcome to Acme.",
		Pages: map[model.PageCategory][]model.Page{
			model.CategoryCaseStudies: {{URL: "https://acme.com/cs", Content: "Globex story"}},
			model.CategoryServices:    {{URL: "https://acme.com/svc", Content: "Anvil forging"}},
		},
	}

	text := formatBundle(prospect, bundle)

	profileIdx := strings.Index(text, "## LinkedIn Profile")
	homeIdx := strings.Index(text, "## Website Homepage")
	svcIdx := strings.Index(text, "## Services & Products Pages")
	caseIdx := strings.Index(text, "## Case Study Pages")

	require.True(t, profileIdx >= 0 && homeIdx >= 0 && svcIdx >= 0 && caseIdx >= 0, "missing section in:\n%s", text)
	assert.Less(t, profileIdx, homeIdx)
	assert.Less(t, homeIdx, svcIdx)
	assert.Less(t, svcIdx, caseIdx)
	assert.Contains(t, text, "Website: https://acme.com")
	assert.NotContains(t, text, "Markets & Industries Pages")
}

func TestFormatBundle_TruncatesLongContent(t *testing.T) {
	bundle := &model.ContextBundle{
		Homepage: strings.Repeat("h", maxHomepageChars+1000),
		Pages: map[model.PageCategory][]model.Page{
			model.CategoryServices: {{URL: "u", Content: strings.Repeat("p", maxPageChars+1000)}},
		},
	}

	text := formatBundle(model.Prospect{CompanyName: "Acme"}, bundle)

	assert.Equal(t, 2, strings.Count(text, "...[truncated]"))
	assert.Less(t, len(text), maxHomepageChars+maxPageChars+500)
}

func TestParseJSONBlock_StripsFencesAndProse(t *testing.T) {
	var brief model.ProspectBrief
	text := "Here is the brief:\n```json\n" + goodBriefJSON + "\n```\nLet me know!"
	require.NoError(t, parseJSONBlock(text, &brief))
	assert.Equal(t, "Acme", brief.CompanyName)
}

func TestParseJSONBlock_NoObjectIsMalformed(t *testing.T) {
	var brief model.ProspectBrief
	err := parseJSONBlock("I cannot produce that.", &brief)
	require.Error(t, err)
	assert.True(t, resilience.IsMalformed(err))
}

func TestParseJSONBlock_BadJSONIsMalformed(t *testing.T) {
	var brief model.ProspectBrief
	err := parseJSONBlock(`{"company_name": }`, &brief)
	require.Error(t, err)
	assert.True(t, resilience.IsMalformed(err))
}

func TestParseBullets(t *testing.T) {
	bullets := parseBullets("- one\n* two\n\n  • three\nplain four\n")
	assert.Equal(t, []string{"one", "two", "three", "plain four"}, bullets)
}

func TestCapList(t *testing.T) {
	urls := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"a", "b"}, capList(urls, 2))
	assert.Equal(t, urls, capList(urls, 10))
	assert.Empty(t, capList(urls, 0))
}
