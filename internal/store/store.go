// Package store persists prospect cache entries and batch run records,
// backed by SQLite or Postgres.
package store

import (
	"context"

	"github.com/sells-group/prospect-messaging/internal/model"
)

// Store defines the persistence interface for the messaging pipeline.
//
// Prospect cache semantics: GetProspect is a point read returning (nil, nil)
// on miss; PutProspect is a whole-entry upsert keyed on the normalized
// website — last write wins, no merge.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, inputFile string, total int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, completed, failed int, status model.RunStatus) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Prospect cache
	GetProspect(ctx context.Context, key string) (*model.CacheEntry, error)
	PutProspect(ctx context.Context, entry *model.CacheEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
