package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/storebuddy/internal/models"
	"go.uber.org/zap"
)

const lockKey = "catalog"

// Store owns the product catalog. Reads are served from memory; every
// stock decrement is persisted through the Snapshotter before it becomes
// visible.
type Store struct {
	snap Snapshotter

	mu       sync.RWMutex // guards products and index
	products []models.Product
	index    map[int]int

	writeMu sync.Mutex // serializes read-check-decrement-persist

	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLocker enables the cross-process lock around stock decrements.
func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(s *Store) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty store; call Load before serving.
func NewStore(snap Snapshotter, opts ...Option) *Store {
	s := &Store{
		snap:    snap,
		index:   make(map[int]int),
		lockTTL: 10 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the snapshot and replaces the in-memory catalog.
func (s *Store) Load(ctx context.Context) ([]models.Product, error) {
	products, err := s.snap.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.replace(products)
	s.logger.Debug("catalog loaded", zap.Int("products", len(products)))
	return cloneProducts(products), nil
}

func (s *Store) replace(products []models.Product) {
	index := make(map[int]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	s.mu.Lock()
	s.products = products
	s.index = index
	s.mu.Unlock()
}

// All returns a copy of the catalog in stored order.
func (s *Store) All() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// FindByID returns the product with the given id.
func (s *Store) FindByID(id int) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return s.products[i], nil
}

// FindByNameSubstring returns the first product, in catalog order, whose
// name contains text case-insensitively.
func (s *Store) FindByNameSubstring(text string) (models.Product, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return models.Product{}, ErrNotFound
	}
	return s.first(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
}

// FindByName returns the first product whose name equals name case-insensitively.
func (s *Store) FindByName(name string) (models.Product, error) {
	name = strings.TrimSpace(name)
	return s.first(func(p models.Product) bool {
		return strings.EqualFold(p.Name, name)
	})
}

// FindByBrand returns the first product whose brand equals brand case-insensitively.
func (s *Store) FindByBrand(brand string) (models.Product, error) {
	return s.first(func(p models.Product) bool {
		return strings.EqualFold(p.Brand, brand)
	})
}

func (s *Store) first(match func(models.Product) bool) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if match(p) {
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

// Filter returns the products accepted by pred, preserving catalog order.
func (s *Store) Filter(pred func(models.Product) bool) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0)
	for _, p := range s.products {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// InStock returns every product with quantity above zero.
func (s *Store) InStock() []models.Product {
	return s.Filter(models.Product.InStock)
}

// DecrementStock removes amount units of product id and persists the
// catalog before returning. On any failure the catalog is left unchanged.
func (s *Store) DecrementStock(ctx context.Context, id, amount int) (models.Product, error) {
	if amount <= 0 {
		return models.Product{}, ErrInvalidQuantity
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, lockKey, s.lockTTL)
		if err != nil {
			return models.Product{}, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release catalog lock (will expire via TTL)", zap.Error(err))
			}
		}()

		// another process may have written since our last read
		if _, err := s.Load(ctx); err != nil {
			return models.Product{}, fmt.Errorf("failed to refresh catalog: %w", err)
		}
	}

	current := s.All()
	i := -1
	for j, p := range current {
		if p.ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		return models.Product{}, ErrNotFound
	}
	if current[i].Quantity < amount {
		return current[i], ErrInsufficientStock
	}

	current[i].Quantity -= amount
	if err := s.snap.Save(ctx, current); err != nil {
		s.logger.Error("failed to persist catalog, stock unchanged",
			zap.Int("product_id", id), zap.Int("amount", amount), zap.Error(err))
		return models.Product{}, err
	}
	s.replace(current)

	s.logger.Info("stock decremented",
		zap.Int("product_id", id),
		zap.Int("amount", amount),
		zap.Int("remaining", current[i].Quantity))
	return current[i], nil
}

func cloneProducts(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	copy(out, in)
	return out
}
