package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-messaging/internal/model"
)

// Gateway wraps a Store fail-open: caching is a performance optimization,
// never a correctness dependency, so a degraded backend turns lookups into
// misses and drops writes with a warning instead of failing the record.
// A nil Store yields an always-miss gateway.
type Gateway struct {
	store Store
}

// NewGateway creates a fail-open gateway over st. st may be nil.
func NewGateway(st Store) *Gateway {
	return &Gateway{store: st}
}

// Lookup returns the cached entry for key, or nil on miss or backend error.
func (g *Gateway) Lookup(ctx context.Context, key string) *model.CacheEntry {
	if g.store == nil || key == "" {
		return nil
	}
	entry, err := g.store.GetProspect(ctx, key)
	if err != nil {
		zap.L().Warn("cache lookup failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	return entry
}

// Store upserts the whole entry; backend errors are logged and dropped.
func (g *Gateway) Store(ctx context.Context, entry *model.CacheEntry) {
	if g.store == nil || entry == nil || entry.Key == "" {
		return
	}
	if err := g.store.PutProspect(ctx, entry); err != nil {
		zap.L().Warn("cache write failed, dropping entry",
			zap.String("key", entry.Key),
			zap.Error(err),
		)
	}
}
