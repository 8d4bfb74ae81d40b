package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-messaging/internal/model"
)

func TestParseMessaging_FullOutput(t *testing.T) {
	raw := `- **Selected Service**: structural steel fabrication
- **Problem Solved**: GCs miss schedule when steel packages slip.
- **Intent Signals**:
  - new stadium project announced
  - hiring project engineers
  * permit filings up
  - detailing backlog posted`

	m := ParseMessaging(raw)

	assert.Equal(t, "structural steel fabrication", m.SelectedService)
	assert.Equal(t, "GCs miss schedule when steel packages slip.", m.ProblemSolved)

	signals := strings.Split(m.IntentSignals, "\n")
	require.Len(t, signals, 4)
	for _, s := range signals {
		assert.True(t, strings.HasPrefix(s, "- "), "signal %q not normalized", s)
	}
	assert.Equal(t, "- permit filings up", signals[2])
	assert.Equal(t, raw, m.Raw)
}

func TestParseMessaging_MarkersWithoutLeadingDash(t *testing.T) {
	raw := "**Selected Service**: anvils\n**Problem Solved**: downtime.\n"
	m := ParseMessaging(raw)
	assert.Equal(t, "anvils", m.SelectedService)
	assert.Equal(t, "downtime.", m.ProblemSolved)
	assert.Empty(t, m.IntentSignals)
}

func TestParseMessaging_NoMarkers(t *testing.T) {
	m := ParseMessaging("Some freeform prose the model produced instead.")
	assert.Equal(t, "Some freeform prose the model produced instead.", m.Raw)
	assert.Empty(t, m.SelectedService)
	assert.Empty(t, m.ProblemSolved)
	assert.Empty(t, m.IntentSignals)
}

func TestParseMessaging_SignalsAtEndOfText(t *testing.T) {
	raw := "- **Intent Signals**:\n- a\n- b"
	m := ParseMessaging(raw)
	assert.Equal(t, "- a\n- b", m.IntentSignals)
}

func TestFormatBrief_IncludesAllSections(t *testing.T) {
	brief := &model.ProspectBrief{
		CompanyName:        "Acme",
		ServicesProducts:   []string{"anvils"},
		MarketsIndustries:  []string{"mining"},
		ProblemsPainPoints: []string{"slow quoting"},
		CaseStudies: []model.CaseStudy{
			{Company: "Globex", Industry: "mining", Results: "2x output", Services: "anvils"},
		},
	}

	text := formatBrief(brief)

	assert.Contains(t, text, "# Research Brief: Acme")
	assert.Contains(t, text, "- anvils")
	assert.Contains(t, text, "- mining")
	assert.Contains(t, text, "- slow quoting")
	assert.Contains(t, text, "Globex (mining): 2x output [services: anvils]")
}

func TestFormatBrief_EmptyListsAreMarked(t *testing.T) {
	brief := &model.ProspectBrief{CompanyName: "Acme"}
	brief.EnsureLists()

	text := formatBrief(brief)
	assert.Contains(t, text, "(none found)")
}
