package brightdata

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient scripts the snapshot lifecycle for collector tests.
type fakeClient struct {
	batches    map[string][]TriggerInput
	statuses   map[string][]string // consumed per poll
	failDL     map[string]bool
	triggerErr error
	running    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		batches:  map[string][]TriggerInput{},
		statuses: map[string][]string{},
		failDL:   map[string]bool{},
	}
}

func (f *fakeClient) TriggerSnapshot(_ context.Context, inputs []TriggerInput) (string, error) {
	if f.triggerErr != nil {
		return "", f.triggerErr
	}
	id := fmt.Sprintf("snap_%d", len(f.batches)+1)
	f.batches[id] = inputs
	return id, nil
}

func (f *fakeClient) SnapshotStatus(_ context.Context, id string) (string, error) {
	queue := f.statuses[id]
	if len(queue) == 0 {
		return "ready", nil
	}
	status := queue[0]
	if len(queue) > 1 {
		f.statuses[id] = queue[1:]
	}
	return status, nil
}

func (f *fakeClient) DownloadSnapshot(_ context.Context, id string) ([]ProfileRecord, error) {
	if f.failDL[id] {
		return nil, eris.New("download failed")
	}
	var records []ProfileRecord
	for _, in := range f.batches[id] {
		records = append(records, ProfileRecord{
			InputURL: in.URL,
			Name:     "Company for " + in.URL,
			About:    "about text",
		})
	}
	return records, nil
}

func (f *fakeClient) RunningSnapshots(_ context.Context) (int, error) {
	return f.running, nil
}

func fastOpts() CollectorOptions {
	return CollectorOptions{PollInterval: time.Millisecond, MaxWait: 50 * time.Millisecond}
}

func TestCollectProfiles_MapsByInputURL(t *testing.T) {
	client := newFakeClient()
	urls := []string{
		"https://linkedin.com/company/acme",
		"https://linkedin.com/company/globex",
	}

	profiles, err := CollectProfiles(context.Background(), client, urls, fastOpts())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Company for https://linkedin.com/company/acme", profiles["https://linkedin.com/company/acme"].Name)
}

func TestCollectProfiles_EmptyInput(t *testing.T) {
	profiles, err := CollectProfiles(context.Background(), newFakeClient(), nil, fastOpts())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCollectProfiles_ChunksLargeInputs(t *testing.T) {
	client := newFakeClient()
	urls := make([]string, 120)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://linkedin.com/company/c%d", i)
	}

	profiles, err := CollectProfiles(context.Background(), client, urls, fastOpts())
	require.NoError(t, err)
	assert.Len(t, client.batches, 3) // 50 + 50 + 20
	assert.Len(t, profiles, 120)
}

func TestCollectProfiles_WaitsOutRunningStatus(t *testing.T) {
	client := newFakeClient()
	urls := []string{"https://linkedin.com/company/acme"}

	profiles, err := CollectProfiles(context.Background(), client, urls, fastOpts())
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	// Script a snapshot that reports running twice before ready.
	client2 := newFakeClient()
	client2.statuses["snap_1"] = []string{"running", "running", "ready"}
	profiles, err = CollectProfiles(context.Background(), client2, urls, fastOpts())
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestCollectProfiles_FailedSnapshotDropsBatch(t *testing.T) {
	client := newFakeClient()
	client.statuses["snap_1"] = []string{"failed"}

	profiles, err := CollectProfiles(context.Background(), client,
		[]string{"https://linkedin.com/company/acme"}, fastOpts())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCollectProfiles_TimeoutDropsBatch(t *testing.T) {
	client := newFakeClient()
	client.statuses["snap_1"] = []string{"running"} // stuck running forever

	profiles, err := CollectProfiles(context.Background(), client,
		[]string{"https://linkedin.com/company/acme"}, fastOpts())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCollectProfiles_DownloadFailureDropsBatch(t *testing.T) {
	client := newFakeClient()
	client.failDL["snap_1"] = true

	profiles, err := CollectProfiles(context.Background(), client,
		[]string{"https://linkedin.com/company/acme"}, fastOpts())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestCollectProfiles_TriggerFailureAborts(t *testing.T) {
	client := newFakeClient()
	client.triggerErr = eris.New("401 unauthorized")

	_, err := CollectProfiles(context.Background(), client,
		[]string{"https://linkedin.com/company/acme"}, fastOpts())
	assert.Error(t, err)
}

func TestProfileRecord_Key(t *testing.T) {
	assert.Equal(t, "in", ProfileRecord{InputURL: "in", URL: "canonical"}.Key())
	assert.Equal(t, "canonical", ProfileRecord{URL: "canonical"}.Key())
	assert.Equal(t, "", ProfileRecord{}.Key())
}
