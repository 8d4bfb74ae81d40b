// Package brightdata provides a client for the BrightData Datasets v3 API,
// used to collect LinkedIn company profiles.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the BrightData Datasets operations used by the pipeline.
type Client interface {
	// TriggerSnapshot starts collection for a batch of profile URLs and
	// returns the snapshot ID.
	TriggerSnapshot(ctx context.Context, inputs []TriggerInput) (string, error)
	// SnapshotStatus returns the snapshot's current status
	// ("running", "ready", "failed").
	SnapshotStatus(ctx context.Context, snapshotID string) (string, error)
	// DownloadSnapshot retrieves the collected records of a ready snapshot.
	DownloadSnapshot(ctx context.Context, snapshotID string) ([]ProfileRecord, error)
	// RunningSnapshots returns how many snapshots are currently running in
	// the account.
	RunningSnapshots(ctx context.Context) (int, error)
}

// TriggerInput is one URL in a trigger request.
type TriggerInput struct {
	URL string `json:"url"`
}

// ProfileRecord is one collected LinkedIn company profile.
type ProfileRecord struct {
	URL           string `json:"url"`
	InputURL      string `json:"input_url"`
	Name          string `json:"name"`
	About         string `json:"about"`
	Description   string `json:"description"`
	Industries    string `json:"industries"`
	CompanySize   string `json:"company_size"`
	Headquarters  string `json:"headquarters"`
	Founded       string `json:"founded"`
}

// Key returns the URL this record should be mapped back under.
func (r ProfileRecord) Key() string {
	if r.InputURL != "" {
		return r.InputURL
	}
	return r.URL
}

// Option configures the BrightData client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey    string
	datasetID string
	baseURL   string
	http      *http.Client
}

// NewClient creates a new BrightData Datasets client.
func NewClient(apiKey, datasetID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		datasetID: datasetID,
		baseURL:   "https://api.brightdata.com/datasets/v3",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503). Returns the response body and
// status code on success, or the last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, build func() (*http.Request, error)) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 2 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, 0, eris.Wrap(err, "brightdata: build request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "brightdata: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("brightdata: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) TriggerSnapshot(ctx context.Context, inputs []TriggerInput) (string, error) {
	payload, err := json.Marshal(inputs)
	if err != nil {
		return "", eris.Wrap(err, "brightdata: marshal trigger inputs")
	}

	reqURL := fmt.Sprintf("%s/trigger?dataset_id=%s&include_errors=true", c.baseURL, c.datasetID)
	body, statusCode, err := c.retryDo(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	})
	if err != nil {
		return "", eris.Wrap(err, "brightdata: trigger request failed")
	}
	if statusCode != http.StatusOK {
		return "", eris.Errorf("brightdata: trigger unexpected status %d: %s", statusCode, string(body))
	}

	var result struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "brightdata: unmarshal trigger response")
	}
	if result.SnapshotID == "" {
		return "", eris.New("brightdata: trigger response missing snapshot_id")
	}
	return result.SnapshotID, nil
}

func (c *httpClient) SnapshotStatus(ctx context.Context, snapshotID string) (string, error) {
	reqURL := fmt.Sprintf("%s/progress/%s", c.baseURL, snapshotID)
	body, statusCode, err := c.retryDo(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return "", eris.Wrapf(err, "brightdata: progress request failed for %s", snapshotID)
	}
	if statusCode != http.StatusOK {
		return "", eris.Errorf("brightdata: progress unexpected status %d: %s", statusCode, string(body))
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "brightdata: unmarshal progress response")
	}
	return result.Status, nil
}

func (c *httpClient) DownloadSnapshot(ctx context.Context, snapshotID string) ([]ProfileRecord, error) {
	reqURL := fmt.Sprintf("%s/snapshot/%s?format=json", c.baseURL, snapshotID)
	body, statusCode, err := c.retryDo(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "brightdata: snapshot download failed for %s", snapshotID)
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("brightdata: snapshot unexpected status %d: %s", statusCode, string(body))
	}

	var records []ProfileRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, eris.Wrap(err, "brightdata: unmarshal snapshot records")
	}
	return records, nil
}

func (c *httpClient) RunningSnapshots(ctx context.Context) (int, error) {
	reqURL := fmt.Sprintf("%s/snapshots/?status=running", c.baseURL)
	body, statusCode, err := c.retryDo(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return 0, eris.Wrap(err, "brightdata: snapshots request failed")
	}
	if statusCode != http.StatusOK {
		return 0, eris.Errorf("brightdata: snapshots unexpected status %d: %s", statusCode, string(body))
	}

	var snapshots []json.RawMessage
	if err := json.Unmarshal(body, &snapshots); err != nil {
		return 0, eris.Wrap(err, "brightdata: unmarshal snapshots response")
	}
	return len(snapshots), nil
}
