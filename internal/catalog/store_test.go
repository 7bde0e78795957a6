package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/avvvet/storebuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `[
  {"id": 1, "name": "Dell XPS 13", "quantity": 3, "category": "laptop", "price": 1200, "brand": "Dell", "description": "Ultrabook"},
  {"id": 2, "name": "HP Spectre", "quantity": 0, "category": "laptop", "price": 1400, "brand": "HP", "description": "Convertible"},
  {"id": 3, "name": "Logitech MX Master", "quantity": 10, "category": "accessory", "price": 99.5, "brand": "Logitech", "description": "Mouse"}
]`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newLoadedStore(t *testing.T, body string) (*Store, *FileSnapshot) {
	t.Helper()
	snap := NewFileSnapshot(writeCatalog(t, body))
	store := NewStore(snap)
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	return store, snap
}

func TestStore_LoadDerivesPriceTier(t *testing.T) {
	store, _ := newLoadedStore(t, sampleCatalog)

	all := store.All()
	require.Len(t, all, 3)
	assert.Equal(t, models.TierMidRange, all[0].PriceCategory)
	assert.Equal(t, models.TierBudget, all[2].PriceCategory)
}

func TestStore_LoadLegacyLayoutAndMissingPrice(t *testing.T) {
	store, _ := newLoadedStore(t, `{"computers": [{"id": 7, "brand": "Acer", "quantity": 2}]}`)

	p, err := store.FindByID(7)
	require.NoError(t, err)
	assert.Nil(t, p.Price)
	assert.Equal(t, models.TierUnknown, p.PriceCategory)
}

func TestStore_LoadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(NewFileSnapshot(filepath.Join(t.TempDir(), "missing.json"))).Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotIO)

	_, err = NewStore(NewFileSnapshot(writeCatalog(t, "not json"))).Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotParse)

	_, err = NewStore(NewFileSnapshot(writeCatalog(t, `[{"id":1},{"id":1}]`))).Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotParse)

	_, err = NewStore(NewFileSnapshot(writeCatalog(t, `[{"id":1,"quantity":-1}]`))).Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotParse)
}

func TestStore_FindByNameSubstring(t *testing.T) {
	store, _ := newLoadedStore(t, sampleCatalog)

	p, err := store.FindByNameSubstring("dell")
	require.NoError(t, err)
	assert.Equal(t, "Dell XPS 13", p.Name)

	_, err = store.FindByNameSubstring("lenovo")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByNameSubstring("  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FindByNameAndBrand(t *testing.T) {
	store, _ := newLoadedStore(t, sampleCatalog)

	p, err := store.FindByName("hp spectre")
	require.NoError(t, err)
	assert.Equal(t, 2, p.ID)

	_, err = store.FindByName("hp")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = store.FindByBrand("LOGITECH")
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)
}

func TestStore_FilterPreservesOrder(t *testing.T) {
	store, _ := newLoadedStore(t, sampleCatalog)

	got := store.Filter(func(p models.Product) bool { return p.Category == "laptop" })
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)

	assert.Len(t, store.InStock(), 2)
}

func TestStore_DecrementStock_Insufficient(t *testing.T) {
	store, snap := newLoadedStore(t, sampleCatalog)
	ctx := context.Background()

	_, err := store.DecrementStock(ctx, 1, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	p, _ := store.FindByID(1)
	assert.Equal(t, 3, p.Quantity)

	persisted, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, persisted[0].Quantity)
}

func TestStore_DecrementStock_PersistsOnlyTarget(t *testing.T) {
	store, snap := newLoadedStore(t, sampleCatalog)
	ctx := context.Background()
	before := store.All()

	p, err := store.DecrementStock(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Quantity)

	persisted, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, len(before))
	for i := range before {
		want := before[i]
		if want.ID == 1 {
			want.Quantity -= 2
		}
		assert.Equal(t, want, persisted[i])
	}
}

func TestStore_DecrementStock_NotFoundAndInvalid(t *testing.T) {
	store, _ := newLoadedStore(t, sampleCatalog)
	ctx := context.Background()

	_, err := store.DecrementStock(ctx, 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.DecrementStock(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestStore_DecrementStock_ConcurrentNoOversell(t *testing.T) {
	store, snap := newLoadedStore(t, sampleCatalog)
	ctx := context.Background()

	// 3 in stock, two buyers of 2 each: exactly one may win
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.DecrementStock(ctx, 1, 2)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	persisted, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, persisted[0].Quantity)
}

func TestStore_DecrementStock_ManyBuyers(t *testing.T) {
	store, _ := newLoadedStore(t, sampleCatalog)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.DecrementStock(ctx, 3, 1); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, sold)
	p, _ := store.FindByID(3)
	assert.Equal(t, 0, p.Quantity)
}

type failingSnapshot struct {
	Snapshotter
}

func (failingSnapshot) Save(ctx context.Context, products []models.Product) error {
	return ErrSnapshotIO
}

func TestStore_DecrementStock_PersistFailureLeavesStock(t *testing.T) {
	path := writeCatalog(t, sampleCatalog)
	store := NewStore(failingSnapshot{Snapshotter: NewFileSnapshot(path)})
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	_, err = store.DecrementStock(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrSnapshotIO)

	p, _ := store.FindByID(1)
	assert.Equal(t, 3, p.Quantity)
}

func TestFileSnapshot_SaveCreatesDirectoryAndNoTempLeft(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	snap := NewFileSnapshot(filepath.Join(dir, "inventory.json"))

	err := snap.Save(context.Background(), []models.Product{{ID: 1, Name: "A", Quantity: 1}})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inventory.json", entries[0].Name())
}
