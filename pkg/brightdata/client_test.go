package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "gd_dataset", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestTriggerSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/trigger", r.URL.Path)
		assert.Equal(t, "gd_dataset", r.URL.Query().Get("dataset_id"))
		assert.Equal(t, "true", r.URL.Query().Get("include_errors"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var inputs []TriggerInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inputs))
		assert.Len(t, inputs, 2)

		fmt.Fprint(w, `{"snapshot_id":"snap_abc"}`)
	})

	id, err := client.TriggerSnapshot(context.Background(), []TriggerInput{
		{URL: "https://linkedin.com/company/acme"},
		{URL: "https://linkedin.com/company/globex"},
	})
	require.NoError(t, err)
	assert.Equal(t, "snap_abc", id)
}

func TestTriggerSnapshot_MissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, err := client.TriggerSnapshot(context.Background(), []TriggerInput{{URL: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing snapshot_id")
}

func TestSnapshotStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/progress/snap_abc", r.URL.Path)
		fmt.Fprint(w, `{"status":"running"}`)
	})

	status, err := client.SnapshotStatus(context.Background(), "snap_abc")
	require.NoError(t, err)
	assert.Equal(t, "running", status)
}

func TestDownloadSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snapshot/snap_abc", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, `[
			{"input_url":"https://linkedin.com/company/acme","name":"Acme","about":"We make anvils."},
			{"url":"https://linkedin.com/company/globex","name":"Globex"}
		]`)
	})

	records, err := client.DownloadSnapshot(context.Background(), "snap_abc")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Acme", records[0].Name)
	assert.Equal(t, "https://linkedin.com/company/acme", records[0].Key())
	assert.Equal(t, "https://linkedin.com/company/globex", records[1].Key())
}

func TestRunningSnapshots(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snapshots/", r.URL.Path)
		assert.Equal(t, "running", r.URL.Query().Get("status"))
		fmt.Fprint(w, `[{"id":"a"},{"id":"b"},{"id":"c"}]`)
	})

	n, err := client.RunningSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClient_NonOKStatusIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad key"}`)
	})

	_, err := client.SnapshotStatus(context.Background(), "snap_abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
