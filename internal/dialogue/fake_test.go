package dialogue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/avvvet/storebuddy/internal/catalog"
	"github.com/avvvet/storebuddy/internal/classifier"
	"github.com/avvvet/storebuddy/internal/models"
	"github.com/stretchr/testify/require"
)

// fakeClassifier returns canned results; unset funcs fail as unavailable.
type fakeClassifier struct {
	classify      func(message string) (models.Classification, error)
	answer        func(message string) (string, error)
	redirect      func(message string) (string, error)
	pick          func(request string, candidates []string) (string, error)
	complete      func(fuzzy string, names []string) (string, error)
	lastMentioned func(history []models.Message) (string, error)

	mu         sync.Mutex
	histories  [][]models.Message
	sessionIDs []string
}

func (f *fakeClassifier) record(ctx context.Context, history []models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, history)
	f.sessionIDs = append(f.sessionIDs, classifier.SessionIDFrom(ctx))
}

func (f *fakeClassifier) Classify(ctx context.Context, message string, history []models.Message, _ []models.Product) (models.Classification, error) {
	f.record(ctx, history)
	if f.classify == nil {
		return models.Unclassified(), classifier.ErrUnavailable
	}
	return f.classify(message)
}

func (f *fakeClassifier) Answer(ctx context.Context, message string, _ []models.Message, _ []models.Product) (string, error) {
	if f.answer == nil {
		return "", classifier.ErrUnavailable
	}
	return f.answer(message)
}

func (f *fakeClassifier) Redirect(ctx context.Context, message string, _ []models.Message, _ []models.Product) (string, error) {
	if f.redirect == nil {
		return "", classifier.ErrUnavailable
	}
	return f.redirect(message)
}

func (f *fakeClassifier) PickSuggestion(ctx context.Context, request string, candidates []string) (string, error) {
	if f.pick == nil {
		return "", classifier.ErrUnavailable
	}
	return f.pick(request, candidates)
}

func (f *fakeClassifier) CompleteName(ctx context.Context, fuzzy string, names []string) (string, error) {
	if f.complete == nil {
		return "", classifier.ErrUnavailable
	}
	return f.complete(fuzzy, names)
}

func (f *fakeClassifier) LastMentioned(ctx context.Context, history []models.Message) (string, error) {
	if f.lastMentioned == nil {
		return "", classifier.ErrUnavailable
	}
	return f.lastMentioned(history)
}

func classifyAs(intent models.Intent, entities models.Entities) func(string) (models.Classification, error) {
	return func(string) (models.Classification, error) {
		return models.Classification{Intent: intent, Entities: entities}, nil
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.StockEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event models.StockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func storeCatalog() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Dell XPS 13", Category: "laptop", Brand: "Dell", Quantity: 3, Price: models.Float64Ptr(1200), Description: "Ultraligera de 13 pulgadas"},
		{ID: 2, Name: "HP Spectre", Category: "laptop", Brand: "HP", Quantity: 0, Price: models.Float64Ptr(1400), Description: "Convertible premium"},
		{ID: 3, Name: "Logitech MX Master", Category: "mouse", Brand: "Logitech", Quantity: 10, Price: models.Float64Ptr(99.5), Description: "Mouse ergonómico"},
		{ID: 4, Name: "Lenovo IdeaPad", Category: "laptop", Brand: "Lenovo", Quantity: 5, Price: models.Float64Ptr(450), Description: "Laptop económica"},
	}
}

// newStore writes products to a temp snapshot and loads it.
func newStore(t *testing.T, products []models.Product) (*catalog.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.json")
	data, err := json.Marshal(products)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	store := catalog.NewStore(catalog.NewFileSnapshot(path))
	_, err = store.Load(context.Background())
	require.NoError(t, err)
	return store, path
}

func persisted(t *testing.T, path string) []models.Product {
	t.Helper()
	products, err := catalog.NewFileSnapshot(path).Load(context.Background())
	require.NoError(t, err)
	return products
}
