package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bunnyexe1/AUTHENTIX/internal/domain/entity"
	"github.com/redis/go-redis/v9"
)

const catalogCacheKeyPrefix = "catalog:listing:"

// CatalogCache is a best-effort read cache for catalog records. A miss or
// a cache failure is never an error for the caller; the catalog store and,
// behind it, the ledger remain the real read path.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

func catalogKey(listingID uint64) string {
	return fmt.Sprintf("%s%d", catalogCacheKeyPrefix, listingID)
}

// Get returns the cached record, or nil on a miss.
func (c *CatalogCache) Get(ctx context.Context, listingID uint64) (*entity.CatalogRecord, error) {
	data, err := c.client.Get(ctx, catalogKey(listingID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached record for listing %d: %w", listingID, err)
	}

	var record entity.CatalogRecord
	if err := json.Unmarshal(data, &record); err != nil {
		_ = c.Delete(ctx, listingID)
		return nil, fmt.Errorf("failed to unmarshal cached record for listing %d: %w", listingID, err)
	}
	return &record, nil
}

func (c *CatalogCache) Set(ctx context.Context, record *entity.CatalogRecord) error {
	if record == nil || record.ListingID == nil {
		return errors.New("cannot cache a record without a listing id")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record for listing %d: %w", *record.ListingID, err)
	}
	return c.client.Set(ctx, catalogKey(*record.ListingID), data, c.ttl).Err()
}

func (c *CatalogCache) Delete(ctx context.Context, listingID uint64) error {
	return c.client.Del(ctx, catalogKey(listingID)).Err()
}
