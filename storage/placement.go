package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"
	"github.com/ashermasroor/SlowRvbBass/repository"
)

// Placement decides where a processed variant lives and answers where to read it from.
// The local cache is written first; the durable copy becomes authoritative once the
// catalog records it.
type Placement struct {
	local   *LocalCache
	durable DurableStore
	repo    repository.AssetRepository
	now     func() time.Time
}

// NewPlacement wires the two storage tiers to the catalog.
func NewPlacement(local *LocalCache, durable DurableStore, repo repository.AssetRepository) *Placement {
	return &Placement{local: local, durable: durable, repo: repo, now: time.Now}
}

// Local exposes the local tier.
func (p *Placement) Local() *LocalCache {
	return p.local
}

// Place stores data for v in both tiers and records the result. A variant whose
// placement is already recorded is not uploaded again. On upload failure the local
// copy and an unplaced record are kept and an ErrDurableUpload error is returned,
// unless a concurrent request placed the variant in the meantime.
func (p *Placement) Place(ctx context.Context, v *model.Variant, data []byte) (model.StorageLocation, error) {
	existing, err := p.repo.GetVariant(ctx, v.ID)
	if err != nil {
		return model.StorageLocation{}, err
	}

	path, err := p.local.Write(v.ID, data)
	if err != nil {
		return model.StorageLocation{}, err
	}
	v.LocalPath = path
	if existing.IsPlaced() {
		logger.Info("Variant already placed, refreshed local copy", logger.String("variantId", v.ID))
		return p.adopt(v, existing), nil
	}

	v.DurableRef = ""
	v.PlacedAt = nil
	if err := p.repo.SaveVariant(ctx, v); err != nil {
		if rmErr := p.local.Remove(v.ID); rmErr != nil {
			logger.Warn("Failed to remove unrecorded local copy", logger.String("variantId", v.ID), logger.ErrorField(rmErr))
		}
		v.LocalPath = ""
		return model.StorageLocation{}, fmt.Errorf("record variant %s: %w", v.ID, err)
	}

	name := v.ObjectName()
	if err := p.durable.Upload(ctx, name, data, model.CodecMP3.ContentType()); err != nil {
		if current, getErr := p.repo.GetVariant(ctx, v.ID); getErr == nil && current.IsPlaced() {
			logger.Warn("Durable upload failed but variant was placed concurrently",
				logger.String("variantId", v.ID),
				logger.ErrorField(err))
			return p.adopt(v, current), nil
		}
		logger.Error("Durable upload failed, keeping local copy",
			logger.String("variantId", v.ID),
			logger.String("object", name),
			logger.ErrorField(err))
		return model.LocalLocation(path), fmt.Errorf("%w: %s: %v", model.ErrDurableUpload, name, err)
	}

	placedAt := p.now()
	if err := p.repo.MarkPlaced(ctx, v.ID, name, placedAt); err != nil {
		return model.StorageLocation{}, fmt.Errorf("record placement of %s: %w", v.ID, err)
	}
	v.DurableRef = name
	v.PlacedAt = &placedAt

	logger.Info("Variant placed",
		logger.String("variantId", v.ID),
		logger.String("object", name),
		logger.Int("bytes", len(data)))
	return model.DurableLocation(p.durable.PublicURL(name)), nil
}

// adopt copies the recorded placement onto v.
func (p *Placement) adopt(v, recorded *model.Variant) model.StorageLocation {
	v.DurableRef = recorded.DurableRef
	v.PlacedAt = recorded.PlacedAt
	return model.DurableLocation(p.durable.PublicURL(recorded.DurableRef))
}

// Resolve returns the local copy when present, otherwise the durable URL of a placed
// variant. The durable object is not checked remotely.
func (p *Placement) Resolve(ctx context.Context, variantID string) (model.StorageLocation, error) {
	if path, ok := p.local.Lookup(variantID); ok {
		return model.LocalLocation(path), nil
	}
	v, err := p.repo.GetVariant(ctx, variantID)
	if err != nil {
		return model.StorageLocation{}, err
	}
	if !v.IsPlaced() {
		return model.StorageLocation{}, fmt.Errorf("variant %s: %w", variantID, model.ErrAssetNotFound)
	}
	return model.DurableLocation(p.durable.PublicURL(v.DurableRef)), nil
}

// PublicURL returns the durable URL for a variant id.
func (p *Placement) PublicURL(variantID string) string {
	return p.durable.PublicURL(model.VariantObjectName(variantID))
}
