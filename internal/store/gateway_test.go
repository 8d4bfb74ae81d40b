package store

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-messaging/internal/model"
)

// brokenStore fails every operation, standing in for a down backend.
type brokenStore struct {
	gets int
	puts int
}

func (b *brokenStore) CreateRun(context.Context, string, int) (*model.Run, error) {
	return nil, eris.New("db down")
}
func (b *brokenStore) FinishRun(context.Context, string, int, int, model.RunStatus) error {
	return eris.New("db down")
}
func (b *brokenStore) ListRuns(context.Context, int) ([]model.Run, error) {
	return nil, eris.New("db down")
}
func (b *brokenStore) GetProspect(context.Context, string) (*model.CacheEntry, error) {
	b.gets++
	return nil, eris.New("db down")
}
func (b *brokenStore) PutProspect(context.Context, *model.CacheEntry) error {
	b.puts++
	return eris.New("db down")
}
func (b *brokenStore) Migrate(context.Context) error { return nil }
func (b *brokenStore) Close() error                  { return nil }

func TestGateway_LookupFailOpen(t *testing.T) {
	broken := &brokenStore{}
	g := NewGateway(broken)

	entry := g.Lookup(context.Background(), "https://acme.com")
	assert.Nil(t, entry)
	assert.Equal(t, 1, broken.gets)
}

func TestGateway_StoreDropsOnError(t *testing.T) {
	broken := &brokenStore{}
	g := NewGateway(broken)

	// Must not panic or surface the error.
	g.Store(context.Background(), &model.CacheEntry{Key: "https://acme.com"})
	assert.Equal(t, 1, broken.puts)
}

func TestGateway_NilStoreAlwaysMisses(t *testing.T) {
	g := NewGateway(nil)
	assert.Nil(t, g.Lookup(context.Background(), "https://acme.com"))
	g.Store(context.Background(), &model.CacheEntry{Key: "https://acme.com"})
}

func TestGateway_RealBackendRoundtrip(t *testing.T) {
	st := newTestSQLite(t)
	g := NewGateway(st)
	ctx := context.Background()

	require.Nil(t, g.Lookup(ctx, "https://acme.com"))

	g.Store(ctx, &model.CacheEntry{
		Key:   "https://acme.com",
		Brief: &model.ProspectBrief{CompanyName: "Acme"},
	})

	got := g.Lookup(ctx, "https://acme.com")
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Brief.CompanyName)
}

func TestGateway_EmptyKeySkipsBackend(t *testing.T) {
	broken := &brokenStore{}
	g := NewGateway(broken)

	assert.Nil(t, g.Lookup(context.Background(), ""))
	g.Store(context.Background(), &model.CacheEntry{})
	assert.Zero(t, broken.gets)
	assert.Zero(t, broken.puts)
}
