package repository

import (
	"context"
	"time"

	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"
)

// VariantCache is the subset of the Redis variant cache the repository uses.
type VariantCache interface {
	GetVariant(ctx context.Context, id string) (*model.Variant, error)
	SetVariant(ctx context.Context, v *model.Variant) error
	DeleteVariant(ctx context.Context, id string) error
}

// cachedAssetRepository puts a read-through cache in front of placed variant
// lookups. Cache errors are logged and the database answers instead.
type cachedAssetRepository struct {
	AssetRepository
	cache VariantCache
}

// NewCachedAssetRepository wraps repo with cache. A nil cache returns repo unchanged.
func NewCachedAssetRepository(repo AssetRepository, cache VariantCache) AssetRepository {
	if cache == nil {
		return repo
	}
	return &cachedAssetRepository{AssetRepository: repo, cache: cache}
}

func (r *cachedAssetRepository) GetVariant(ctx context.Context, id string) (*model.Variant, error) {
	if v, err := r.cache.GetVariant(ctx, id); err != nil {
		logger.Warn("Variant cache read failed", logger.String("variantId", id), logger.ErrorField(err))
	} else if v != nil {
		return v, nil
	}

	v, err := r.AssetRepository.GetVariant(ctx, id)
	if err != nil || v == nil {
		return v, err
	}
	// Only placed records are immutable enough to cache.
	if v.IsPlaced() {
		if err := r.cache.SetVariant(ctx, v); err != nil {
			logger.Warn("Variant cache write failed", logger.String("variantId", id), logger.ErrorField(err))
		}
	}
	return v, nil
}

func (r *cachedAssetRepository) SaveVariant(ctx context.Context, v *model.Variant) error {
	if err := r.AssetRepository.SaveVariant(ctx, v); err != nil {
		return err
	}
	r.invalidate(ctx, v.ID)
	return nil
}

func (r *cachedAssetRepository) MarkPlaced(ctx context.Context, id, durableRef string, placedAt time.Time) error {
	if err := r.AssetRepository.MarkPlaced(ctx, id, durableRef, placedAt); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedAssetRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.DeleteVariant(ctx, id); err != nil {
		logger.Warn("Variant cache invalidation failed", logger.String("variantId", id), logger.ErrorField(err))
	}
}
