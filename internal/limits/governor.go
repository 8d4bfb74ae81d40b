// Package limits owns the three shared concurrency ceilings for a batch run:
// prospect pipelines, outbound HTTP calls, and generation calls. Every unit
// of work acquires its permit before touching the resource and releases it on
// all exit paths.
package limits

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Governor holds the three counting-permit pools. Permits are acquired in a
// fixed order — prospect slot at pipeline entry, then network or generation
// slots inside leaf calls — and no caller ever holds two classes in a way
// that could cycle.
type Governor struct {
	prospects  *semaphore.Weighted
	network    *semaphore.Weighted
	generation *semaphore.Weighted
}

// New creates a Governor with the given ceilings. Non-positive ceilings fall
// back to 1 so a misconfigured pool still makes progress.
func New(maxProspects, maxNetwork, maxGeneration int64) *Governor {
	return &Governor{
		prospects:  semaphore.NewWeighted(atLeastOne(maxProspects)),
		network:    semaphore.NewWeighted(atLeastOne(maxNetwork)),
		generation: semaphore.NewWeighted(atLeastOne(maxGeneration)),
	}
}

func atLeastOne(n int64) int64 {
	if n < 1 {
		return 1
	}
	return n
}

// AcquireProspect blocks until a prospect slot is free. The returned release
// function must be deferred immediately.
func (g *Governor) AcquireProspect(ctx context.Context) (func(), error) {
	return acquire(ctx, g.prospects)
}

// AcquireNetwork blocks until a network slot is free.
func (g *Governor) AcquireNetwork(ctx context.Context) (func(), error) {
	return acquire(ctx, g.network)
}

// AcquireGeneration blocks until a generation slot is free.
func (g *Governor) AcquireGeneration(ctx context.Context) (func(), error) {
	return acquire(ctx, g.generation)
}

func acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	return func() { sem.Release(1) }, nil
}

// WithNetwork runs fn while holding a network permit.
func (g *Governor) WithNetwork(ctx context.Context, fn func(ctx context.Context) error) error {
	return with(ctx, g.network, fn)
}

// WithGeneration runs fn while holding a generation permit.
func (g *Governor) WithGeneration(ctx context.Context, fn func(ctx context.Context) error) error {
	return with(ctx, g.generation, fn)
}

func with(ctx context.Context, sem *semaphore.Weighted, fn func(ctx context.Context) error) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)
	return fn(ctx)
}
