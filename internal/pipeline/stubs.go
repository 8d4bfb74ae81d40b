package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sells-group/prospect-messaging/pkg/anthropic"
	"github.com/sells-group/prospect-messaging/pkg/brightdata"
)

// StubAnthropicClient returns canned responses per stage, recognized by the
// system prompt. It backs --offline runs and doubles as the test client.
type StubAnthropicClient struct {
	// Calls counts CreateMessage invocations.
	Calls atomic.Int64

	// Respond optionally overrides the canned responses entirely.
	Respond func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (c *StubAnthropicClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.Calls.Add(1)
	if c.Respond != nil {
		return c.Respond(req)
	}

	system := ""
	if len(req.System) > 0 {
		system = req.System[0].Text
	}

	var text string
	switch {
	case strings.Contains(system, "sitemap"):
		text = `{"services_products_urls":[],"markets_industries_urls":[],"case_studies_urls":[]}`
	case strings.Contains(system, "research brief"):
		text = `{"company_name":"Offline Co","services_products":["consulting"],` +
			`"markets_industries":["manufacturing"],"problems_pain_points":["slow quoting"],"case_studies":[]}`
	case strings.Contains(system, "outbound sales messaging"):
		text = "- **Selected Service**: consulting\n" +
			"- **Problem Solved**: Slow quote turnaround loses deals.\n" +
			"- **Intent Signals**:\n  - hiring estimators\n  - new plant opening\n  - ERP migration\n  - leadership change"
	default:
		text = "- quote cycle time\n- win rate\n- backlog accuracy"
	}

	return &anthropic.MessageResponse{
		ID:         fmt.Sprintf("stub_%d", c.Calls.Load()),
		Model:      req.Model,
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
		Usage:      anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

// StubBrightDataClient serves profiles from a fixed map, one instantly-ready
// snapshot per trigger.
type StubBrightDataClient struct {
	// Profiles maps snapshot contents back to callers, keyed by input URL.
	Profiles map[string]brightdata.ProfileRecord

	triggered atomic.Int64
	batches   map[string][]string
}

func (c *StubBrightDataClient) TriggerSnapshot(_ context.Context, inputs []brightdata.TriggerInput) (string, error) {
	id := fmt.Sprintf("stub_snap_%d", c.triggered.Add(1))
	if c.batches == nil {
		c.batches = map[string][]string{}
	}
	urls := make([]string, len(inputs))
	for i, in := range inputs {
		urls[i] = in.URL
	}
	c.batches[id] = urls
	return id, nil
}

func (c *StubBrightDataClient) SnapshotStatus(_ context.Context, _ string) (string, error) {
	return "ready", nil
}

func (c *StubBrightDataClient) DownloadSnapshot(_ context.Context, snapshotID string) ([]brightdata.ProfileRecord, error) {
	var records []brightdata.ProfileRecord
	for _, url := range c.batches[snapshotID] {
		if rec, ok := c.Profiles[url]; ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (c *StubBrightDataClient) RunningSnapshots(_ context.Context) (int, error) {
	return 0, nil
}
