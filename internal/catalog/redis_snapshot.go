package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/storebuddy/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshot implements Snapshotter using a single Redis key
type RedisSnapshot struct {
	client *redis.Client
	key    string
}

// NewRedisClient parses the URL and checks the connection
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisSnapshot creates a Redis-backed snapshot stored under key
func NewRedisSnapshot(client *redis.Client, key string) *RedisSnapshot {
	if key == "" {
		key = "catalog:snapshot"
	}
	return &RedisSnapshot{client: client, key: key}
}

// Load reads the catalog JSON from Redis
func (r *RedisSnapshot) Load(ctx context.Context) ([]models.Product, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: key %s does not exist", ErrSnapshotIO, r.key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load catalog from Redis: %v", ErrSnapshotIO, err)
	}
	return decodeCatalog(data)
}

// Save replaces the catalog JSON in one SET, which Redis applies atomically
func (r *RedisSnapshot) Save(ctx context.Context, products []models.Product) error {
	data, err := encodeCatalog(products)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: failed to save catalog to Redis: %v", ErrSnapshotIO, err)
	}
	return nil
}

// Seed copies a catalog from another snapshot when the Redis key is empty.
func (r *RedisSnapshot) Seed(ctx context.Context, from Snapshotter) (bool, error) {
	exists, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to check catalog key: %v", ErrSnapshotIO, err)
	}
	if exists > 0 {
		return false, nil
	}
	products, err := from.Load(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Save(ctx, products); err != nil {
		return false, err
	}
	return true, nil
}
