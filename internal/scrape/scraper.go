// Package scrape fetches company website content: homepage, sitemap
// discovery, and selected page text extraction.
package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-messaging/internal/resilience"
)

// Permits grants network-call slots. *limits.Governor satisfies it.
type Permits interface {
	AcquireNetwork(ctx context.Context) (func(), error)
}

// Options configures a Scraper.
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	RequestsPerSec float64
	Retry          resilience.RetryConfig
}

// Scraper fetches pages politely: every request holds a network permit and
// passes a shared rate limiter before going out.
type Scraper struct {
	http    *http.Client
	limiter *rate.Limiter
	permits Permits
	opts    Options
}

// New creates a Scraper. permits may be nil (no permit accounting, tests).
func New(permits Permits, opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 8
	}
	return &Scraper{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		permits: permits,
		opts:    opts,
	}
}

// FetchPage GETs a URL and returns its extracted readable text. Transient
// failures are retried with backoff; a page that never yields usable text
// returns an error the caller may drop without failing the branch.
func (s *Scraper) FetchPage(ctx context.Context, pageURL string) (string, error) {
	cfg := s.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("scrape", "fetch_page")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		html, err := s.get(ctx, pageURL)
		if err != nil {
			return "", err
		}
		text := ExtractText(pageURL, html)
		if strings.TrimSpace(text) == "" {
			return "", eris.Errorf("scrape: no readable text at %s", pageURL)
		}
		return text, nil
	})
}

// get performs one rate-limited, permit-holding GET and returns the raw body.
func (s *Scraper) get(ctx context.Context, pageURL string) (string, error) {
	var release func()
	if s.permits != nil {
		var err error
		release, err = s.permits.AcquireNetwork(ctx)
		if err != nil {
			return "", eris.Wrap(err, "scrape: acquire network permit")
		}
	} else {
		release = func() {}
	}
	defer release()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "scrape: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: create request %s", pageURL)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "scrape: get %s", pageURL)
	}
	defer resp.Body.Close()

	// Cap reads at 5 MB; marketing pages past that are not worth the tokens.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", eris.Wrapf(err, "scrape: read body %s", pageURL)
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", resilience.NewTransientError(
			eris.Errorf("scrape: status %d for %s", resp.StatusCode, pageURL),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("scrape: status %d for %s", resp.StatusCode, pageURL)
	}

	return string(body), nil
}
