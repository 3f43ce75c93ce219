// Package cache implements the Redis cache-aside layer for listings.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"listings/metrics"
	"listings/models"
)

const (
	// DefaultPrefix namespaces every key written by the listings cache
	DefaultPrefix = "property_listings:"
	// AllPropertiesKey holds the full listing collection
	AllPropertiesKey = "all_properties"

	defaultTTL = time.Hour
)

// Options configures a PropertyCache
type Options struct {
	Prefix    string
	ListTTL   time.Duration
	DetailTTL time.Duration
}

// PropertyCache stores listings in Redis, msgpack-encoded
type PropertyCache struct {
	client    redis.UniversalClient
	prefix    string
	listTTL   time.Duration
	detailTTL time.Duration
}

// NewClient builds the go-redis client used for caching and health checks
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// New wraps client. Zero options take the defaults.
func New(client redis.UniversalClient, opts Options) *PropertyCache {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.ListTTL <= 0 {
		opts.ListTTL = defaultTTL
	}
	if opts.DetailTTL <= 0 {
		opts.DetailTTL = defaultTTL
	}
	return &PropertyCache{
		client:    client,
		prefix:    opts.Prefix,
		listTTL:   opts.ListTTL,
		detailTTL: opts.DetailTTL,
	}
}

// Prefix returns the key namespace
func (c *PropertyCache) Prefix() string {
	return c.prefix
}

// Key returns the full Redis key for name
func (c *PropertyCache) Key(name string) string {
	return c.prefix + name
}

// DetailKey returns the cache key name of a single listing
func DetailKey(id int64) string {
	return "property_" + strconv.FormatInt(id, 10)
}

// GetAll returns the cached listing collection. ok is false on a miss.
func (c *PropertyCache) GetAll(ctx context.Context) (properties []models.Property, ok bool, err error) {
	ok, err = c.get(ctx, c.Key(AllPropertiesKey), &properties)
	recordLookup("list", ok, err)
	return properties, ok, err
}

// SetAll stores the listing collection for the list TTL
func (c *PropertyCache) SetAll(ctx context.Context, properties []models.Property) error {
	if properties == nil {
		properties = []models.Property{}
	}
	return c.set(ctx, c.Key(AllPropertiesKey), properties, c.listTTL)
}

// Clear drops the cached collection. Clearing an absent key is not an error.
func (c *PropertyCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.Key(AllPropertiesKey)).Err(); err != nil {
		return fmt.Errorf("failed to clear properties cache: %w", err)
	}
	metrics.IncrementCacheInvalidation()
	return nil
}

// IsCached reports whether the collection is currently cached
func (c *PropertyCache) IsCached(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, c.Key(AllPropertiesKey)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check properties cache: %w", err)
	}
	return n > 0, nil
}

// CachedCount returns the number of cached listings, or ok=false when nothing is cached
func (c *PropertyCache) CachedCount(ctx context.Context) (count int, ok bool, err error) {
	var properties []models.Property
	ok, err = c.get(ctx, c.Key(AllPropertiesKey), &properties)
	if err != nil || !ok {
		return 0, false, err
	}
	return len(properties), true, nil
}

// GetProperty returns a cached listing. ok is false on a miss.
func (c *PropertyCache) GetProperty(ctx context.Context, id int64) (*models.Property, bool, error) {
	var p models.Property
	ok, err := c.get(ctx, c.Key(DetailKey(id)), &p)
	recordLookup("detail", ok, err)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

// SetProperty stores a single listing for the detail TTL
func (c *PropertyCache) SetProperty(ctx context.Context, p *models.Property) error {
	return c.set(ctx, c.Key(DetailKey(p.ID)), p, c.detailTTL)
}

// DeleteProperty drops a single cached listing
func (c *PropertyCache) DeleteProperty(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, c.Key(DetailKey(id))).Err(); err != nil {
		return fmt.Errorf("failed to delete cached property %d: %w", id, err)
	}
	return nil
}

// Invalidate drops the collection and, when id > 0, that listing's detail entry
func (c *PropertyCache) Invalidate(ctx context.Context, id int64) error {
	keys := []string{c.Key(AllPropertiesKey)}
	if id > 0 {
		keys = append(keys, c.Key(DetailKey(id)))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate properties cache: %w", err)
	}
	metrics.IncrementCacheInvalidation()
	return nil
}

func (c *PropertyCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := msgpack.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *PropertyCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func recordLookup(kind string, hit bool, err error) {
	switch {
	case err != nil:
		metrics.RecordCacheLookup(kind, "error")
	case hit:
		metrics.RecordCacheLookup(kind, "hit")
	default:
		metrics.RecordCacheLookup(kind, "miss")
	}
}
