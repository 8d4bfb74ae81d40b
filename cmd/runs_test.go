package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospect-messaging/internal/model"
)

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd-efgh"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "aaaabbbb-cccc-dddd",
			InputFile:   "prospects.csv",
			Total:       10,
			Completed:   9,
			Failed:      1,
			Status:      model.RunStatusComplete,
			CreatedAt:   created,
			CompletedAt: created.Add(3 * time.Minute),
		},
		{
			ID:        "eeeeffff-0000-1111",
			InputFile: "a/very/long/path/that/keeps/going/prospects.csv",
			Total:     5,
			Status:    model.RunStatusRunning,
			CreatedAt: created,
		},
	}

	var sb strings.Builder
	formatRunsList(&sb, runs)
	out := sb.String()

	assert.Contains(t, out, "aaaabbbb")
	assert.Contains(t, out, "prospects.csv")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "3m0s")
	assert.Contains(t, out, "running")
	// Long input paths are shortened from the left.
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "a/very/long/path")
}

func TestRunCmdFlags(t *testing.T) {
	assert.NotNil(t, runCmd.Flags().Lookup("input"))
	assert.NotNil(t, runCmd.Flags().Lookup("output"))
	assert.NotNil(t, runCmd.Flags().Lookup("reprocess"))
	assert.NotNil(t, runCmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, runCmd.Flags().Lookup("offline"))
	assert.NotNil(t, runCmd.Flags().Lookup("limit"))
	assert.NotNil(t, runCmd.Flags().Lookup("concurrency"))
	assert.NotNil(t, runCmd.Flags().Lookup("model"))
}
