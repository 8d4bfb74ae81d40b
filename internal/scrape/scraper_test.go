package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-messaging/internal/resilience"
)

func TestFetchPage_ReturnsExtractedText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `<html><body><h1>Acme</h1><p>We make anvils.</p></body></html>`)
	}))
	defer srv.Close()

	s := New(nil, Options{UserAgent: "test-agent", Retry: testRetry()})
	text, err := s.FetchPage(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, text, "We make anvils.")
	assert.NotContains(t, text, "<p>")
}

func TestFetchPage_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><body><p>recovered content here</p></body></html>`)
	}))
	defer srv.Close()

	s := New(nil, Options{Retry: resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}})
	text, err := s.FetchPage(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, text, "recovered content here")
	assert.Equal(t, int64(3), calls.Load())
}

func TestFetchPage_PermanentStatusNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(nil, Options{Retry: resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}})
	_, err := s.FetchPage(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestFetchPage_EmptyPageIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><script>only()</script></body></html>`)
	}))
	defer srv.Close()

	s := New(nil, Options{Retry: testRetry()})
	_, err := s.FetchPage(context.Background(), srv.URL)
	assert.Error(t, err)
}

// trackingPermits counts permit acquisitions.
type trackingPermits struct {
	acquired atomic.Int64
}

func (p *trackingPermits) AcquireNetwork(ctx context.Context) (func(), error) {
	p.acquired.Add(1)
	return func() {}, nil
}

func TestFetchPage_HoldsNetworkPermit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>permit held content</p></body></html>`)
	}))
	defer srv.Close()

	permits := &trackingPermits{}
	s := New(permits, Options{Retry: testRetry()})
	_, err := s.FetchPage(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, int64(1), permits.acquired.Load())
}
