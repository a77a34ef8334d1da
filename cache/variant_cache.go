package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashermasroor/SlowRvbBass/model"

	"github.com/go-redis/redis/v8"
)

// cachedVariant is the Redis representation; unlike the API shape it keeps the local path.
type cachedVariant struct {
	ID         string                 `json:"id"`
	SourceID   string                 `json:"sourceId"`
	Params     model.EffectParameters `json:"params"`
	LocalPath  string                 `json:"localPath"`
	DurableRef string                 `json:"durableRef"`
	Duration   float32                `json:"duration"`
	CreatedAt  time.Time              `json:"createdAt"`
	PlacedAt   *time.Time             `json:"placedAt,omitempty"`
}

// VariantCache stores variant records as JSON under variant:<id>.
type VariantCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVariantCache creates a cache over client. A non-positive ttl keeps keys forever.
func NewVariantCache(client *redis.Client, ttl time.Duration) *VariantCache {
	if ttl < 0 {
		ttl = 0
	}
	return &VariantCache{client: client, ttl: ttl}
}

// GetVariantKey builds the Redis key for a variant id.
func GetVariantKey(id string) string {
	return "variant:" + id
}

// GetVariant returns the cached record, or nil on a miss.
func (c *VariantCache) GetVariant(ctx context.Context, id string) (*model.Variant, error) {
	raw, err := c.client.Get(ctx, GetVariantKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get variant %s from cache: %w", id, err)
	}

	var cv cachedVariant
	if err := json.Unmarshal(raw, &cv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached variant %s: %w", id, err)
	}
	return &model.Variant{
		ID:         cv.ID,
		SourceID:   cv.SourceID,
		Params:     cv.Params,
		LocalPath:  cv.LocalPath,
		DurableRef: cv.DurableRef,
		Duration:   cv.Duration,
		CreatedAt:  cv.CreatedAt,
		PlacedAt:   cv.PlacedAt,
	}, nil
}

// SetVariant stores v with the configured TTL.
func (c *VariantCache) SetVariant(ctx context.Context, v *model.Variant) error {
	data, err := json.Marshal(cachedVariant{
		ID:         v.ID,
		SourceID:   v.SourceID,
		Params:     v.Params,
		LocalPath:  v.LocalPath,
		DurableRef: v.DurableRef,
		Duration:   v.Duration,
		CreatedAt:  v.CreatedAt,
		PlacedAt:   v.PlacedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal variant %s: %w", v.ID, err)
	}
	if err := c.client.Set(ctx, GetVariantKey(v.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache variant %s: %w", v.ID, err)
	}
	return nil
}

// DeleteVariant drops the cached record; deleting a missing key is not an error.
func (c *VariantCache) DeleteVariant(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, GetVariantKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached variant %s: %w", id, err)
	}
	return nil
}
