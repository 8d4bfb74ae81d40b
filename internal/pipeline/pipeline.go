// Package pipeline drives prospect batches through gathering, brief
// synthesis, and messaging synthesis under shared concurrency ceilings.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-messaging/internal/config"
	"github.com/sells-group/prospect-messaging/internal/limits"
	"github.com/sells-group/prospect-messaging/internal/model"
	"github.com/sells-group/prospect-messaging/internal/resilience"
	"github.com/sells-group/prospect-messaging/internal/scrape"
	"github.com/sells-group/prospect-messaging/internal/store"
	"github.com/sells-group/prospect-messaging/pkg/anthropic"
	"github.com/sells-group/prospect-messaging/pkg/brightdata"
)

// Pipeline orchestrates the full messaging run for a batch of prospects.
type Pipeline struct {
	cfg        *config.Config
	gov        *limits.Governor
	cache      *store.Gateway
	runs       store.Store // nil when run tracking is unavailable
	anthropic  anthropic.Client
	brightdata brightdata.Client
	scraper    *scrape.Scraper
	breaker    *resilience.CircuitBreaker
	retry      resilience.RetryConfig

	// callTimeout bounds each network/generation call; exceeding it counts
	// as a transient failure against that call's attempt budget.
	callTimeout time.Duration

	usageMu sync.Mutex
	usage   anthropic.TokenUsage

	// reprocess skips the cache short-circuit and re-runs the synthesis
	// stages over cached context.
	reprocess bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReprocess re-runs synthesis stages even for cached prospects, reusing
// cached gathered context instead of re-fetching.
func WithReprocess(reprocess bool) Option {
	return func(p *Pipeline) {
		p.reprocess = reprocess
	}
}

// WithScraper overrides the scraper (tests).
func WithScraper(s *scrape.Scraper) Option {
	return func(p *Pipeline) {
		p.scraper = s
	}
}

// New creates a Pipeline with all dependencies. st may be nil, in which case
// caching degrades to always-miss and runs are not recorded.
func New(
	cfg *config.Config,
	st store.Store,
	aiClient anthropic.Client,
	bdClient brightdata.Client,
	opts ...Option,
) *Pipeline {
	gov := limits.New(
		cfg.Pipeline.MaxConcurrentProspects,
		cfg.Pipeline.MaxConcurrentHTTP,
		cfg.Pipeline.MaxConcurrentLLM,
	)

	p := &Pipeline{
		cfg:        cfg,
		gov:        gov,
		cache:      store.NewGateway(st),
		runs:       st,
		anthropic:  aiClient,
		brightdata: bdClient,
		breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		retry: resilience.FromConfig(
			cfg.Retry.MaxAttempts,
			cfg.Retry.InitialBackoffMs,
			cfg.Retry.MaxBackoffMs,
			cfg.Retry.Multiplier,
			cfg.Retry.JitterFraction,
		),
		callTimeout: time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
	}
	if p.callTimeout <= 0 {
		p.callTimeout = 30 * time.Second
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.scraper == nil {
		p.scraper = scrape.New(gov, scrape.Options{
			UserAgent:      cfg.Scrape.UserAgent,
			Timeout:        p.callTimeout,
			RequestsPerSec: cfg.Scrape.RequestsPerSec,
			Retry:          p.retry,
		})
	}

	return p
}

// BatchResult is the terminal output of one batch run. Successes and
// Failures preserve the input record order; every input row appears in
// exactly one of them.
type BatchResult struct {
	RunID     string
	Outcomes  []model.Outcome
	Successes []model.Outcome
	Failures  []model.Outcome
	Usage     anthropic.TokenUsage
}

// Run executes the batch: profile prefetch, then all prospect pipelines
// concurrently. One prospect's failure never aborts its siblings; the only
// batch-level errors are startup-class (run bookkeeping aside, which is
// warn-only).
func (p *Pipeline) Run(ctx context.Context, inputFile string, prospects []model.Prospect) (*BatchResult, error) {
	log := zap.L().With(zap.Int("prospects", len(prospects)))
	log.Info("pipeline: starting batch", zap.Bool("reprocess", p.reprocess))

	result := &BatchResult{}

	if p.runs != nil {
		run, err := p.runs.CreateRun(ctx, inputFile, len(prospects))
		if err != nil {
			log.Warn("pipeline: create run record failed", zap.Error(err))
		} else {
			result.RunID = run.ID
		}
	}

	// Phase 1: batch profile prefetch. Reprocess mode reuses cached
	// profiles, so the expensive collection is skipped entirely.
	profiles := map[string]brightdata.ProfileRecord{}
	if !p.reprocess {
		profiles = p.prefetchProfiles(ctx, prospects)
	}

	// Phase 2: per-prospect pipelines.
	outcomes := make([]model.Outcome, len(prospects))
	g, gCtx := errgroup.WithContext(ctx)

	for i, prospect := range prospects {
		g.Go(func() error {
			outcomes[i] = p.processOne(gCtx, prospect, profiles)
			return nil
		})
	}
	_ = g.Wait()

	// Outcomes are indexed by input position, so splitting in slice order
	// preserves the input ordering within each collection.
	for _, o := range outcomes {
		if o.Failed() {
			result.Failures = append(result.Failures, o)
		} else {
			result.Successes = append(result.Successes, o)
		}
	}
	result.Outcomes = outcomes

	p.usageMu.Lock()
	result.Usage = p.usage
	p.usageMu.Unlock()

	if p.runs != nil && result.RunID != "" {
		if err := p.runs.FinishRun(ctx, result.RunID, len(result.Successes), len(result.Failures), model.RunStatusComplete); err != nil {
			log.Warn("pipeline: finish run record failed", zap.Error(err))
		}
	}

	log.Info("pipeline: batch complete",
		zap.Int("succeeded", len(result.Successes)),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// prefetchProfiles collects LinkedIn profiles for every prospect that has a
// usable URL and no complete cache entry. Collection failure degrades to an
// empty map; the profile branch simply contributes nothing.
func (p *Pipeline) prefetchProfiles(ctx context.Context, prospects []model.Prospect) map[string]brightdata.ProfileRecord {
	if p.brightdata == nil {
		return map[string]brightdata.ProfileRecord{}
	}

	var urls []string
	for _, pr := range prospects {
		if !pr.HasLinkedIn() {
			continue
		}
		// Cached records short-circuit in processOne and never touch the
		// profile map, so collecting for them would be wasted network.
		if p.cache.Lookup(ctx, pr.CacheKey()).Complete() {
			continue
		}
		urls = append(urls, pr.LinkedInURL)
	}
	if len(urls) == 0 {
		return map[string]brightdata.ProfileRecord{}
	}

	profiles, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (map[string]brightdata.ProfileRecord, error) {
		return brightdata.CollectProfiles(ctx, p.brightdata, urls, brightdata.CollectorOptions{})
	})
	if err != nil {
		zap.L().Error("pipeline: profile prefetch failed, proceeding without profiles", zap.Error(err))
		return map[string]brightdata.ProfileRecord{}
	}
	return profiles
}

// processOne runs the full pipeline for a single prospect and always returns
// a terminal outcome. Panics are converted to a failure for this record only.
func (p *Pipeline) processOne(ctx context.Context, prospect model.Prospect, profiles map[string]brightdata.ProfileRecord) (out model.Outcome) {
	out = model.Outcome{Prospect: prospect}
	log := zap.L().With(
		zap.String("company", prospect.CompanyName),
		zap.String("website", prospect.CacheKey()),
	)

	// stage tracks where the pipeline currently is so a recovered panic is
	// attributed to the stage that raised it.
	stage := model.StageGathering
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: prospect panicked", zap.Any("panic", r))
			out.Failure = &model.Failure{
				Stage:   stage,
				Message: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	release, err := p.gov.AcquireProspect(ctx)
	if err != nil {
		out.Failure = &model.Failure{Stage: model.StageGathering, Message: err.Error()}
		return out
	}
	defer release()

	key := prospect.CacheKey()
	cached := p.cache.Lookup(ctx, key)

	// Cache hit short-circuits the whole pipeline unless reprocessing.
	if !p.reprocess && cached.Complete() {
		log.Info("pipeline: cache hit")
		out.Brief = cached.Brief
		out.Messaging = cached.Messaging
		out.FromCache = true
		return out
	}

	// ---- Gathering ----
	var bundle *model.ContextBundle
	if p.reprocess && cached != nil && cached.Bundle != nil {
		bundle = cached.Bundle
	} else {
		bundle = p.gather(ctx, prospect, profiles)
	}
	if bundle.Empty() {
		log.Warn("pipeline: no context from either source")
		out.Failure = &model.Failure{
			Stage:   model.StageGathering,
			Message: "no profile data and no website content available",
		}
		return out
	}

	// ---- Brief synthesis ----
	stage = model.StageBrief
	brief, err := p.synthesizeBrief(ctx, prospect, bundle)
	if err != nil {
		log.Error("pipeline: brief synthesis failed", zap.Error(err))
		out.Failure = &model.Failure{Stage: model.StageBrief, Message: eris.ToString(err, false)}
		return out
	}

	// ---- Messaging synthesis ----
	stage = model.StageMessaging
	messaging, err := p.synthesizeMessaging(ctx, brief)
	if err != nil {
		log.Error("pipeline: messaging synthesis failed", zap.Error(err))
		out.Failure = &model.Failure{Stage: model.StageMessaging, Message: eris.ToString(err, false)}
		return out
	}

	out.Brief = brief
	out.Messaging = messaging

	// Write-through: a whole new entry per successful pass, last write wins.
	p.cache.Store(ctx, &model.CacheEntry{
		Key:       key,
		Prospect:  prospect,
		Bundle:    bundle,
		Brief:     brief,
		Messaging: messaging,
	})

	log.Info("pipeline: prospect complete")
	return out
}

// generate makes one generation call under a generation permit, a per-call
// timeout, and the retry policy.
func (p *Pipeline) generate(ctx context.Context, stage, modelID, system, user string) (*anthropic.MessageResponse, error) {
	return p.generateWith(ctx, stage, modelID, system, user, nil)
}

// generateWith is generate plus an optional validation of the response text.
// The validation runs inside the retry loop, so a MalformedError from it
// burns an attempt and triggers a fresh generation just like a transient
// network failure would.
func (p *Pipeline) generateWith(ctx context.Context, stage, modelID, system, user string, validate func(text string) error) (*anthropic.MessageResponse, error) {
	cfg := p.retry
	cfg.OnRetry = resilience.RetryLogger("anthropic", stage)
	cfg.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) ||
			resilience.IsTransientHTTPStatus(anthropic.StatusCode(err))
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		var resp *anthropic.MessageResponse
		err := p.gov.WithGeneration(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
			defer cancel()

			var callErr error
			resp, callErr = p.anthropic.CreateMessage(callCtx, anthropic.MessageRequest{
				Model:     modelID,
				MaxTokens: p.cfg.Anthropic.MaxTokens,
				System:    anthropic.BuildCachedSystemBlocks(system),
				Messages:  []anthropic.Message{{Role: "user", Content: user}},
			})
			return callErr
		})
		if err != nil {
			return nil, err
		}
		resp.Usage.LogCost(modelID, stage)

		p.usageMu.Lock()
		p.usage.Add(resp.Usage)
		p.usageMu.Unlock()

		if validate != nil {
			if vErr := validate(resp.Text()); vErr != nil {
				return nil, vErr
			}
		}
		return resp, nil
	})
}
