// Package processing orchestrates the upload, effect and retrieval flows on top of
// acquisition, the effect compiler, the transcoder and storage placement.
package processing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashermasroor/SlowRvbBass/core/audio"
	"github.com/ashermasroor/SlowRvbBass/core/effects"
	"github.com/ashermasroor/SlowRvbBass/core/identity"
	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"
	"github.com/ashermasroor/SlowRvbBass/repository"
	"github.com/ashermasroor/SlowRvbBass/storage"
)

// SourceAcquirer fetches and normalizes audio from an origin URL.
type SourceAcquirer interface {
	Acquire(ctx context.Context, rawURL string) (*model.SourceAsset, error)
}

// Service runs the request-level flows. It holds no per-request state; concurrent
// identical requests may both do the work and converge on the same result.
type Service struct {
	acquirer   SourceAcquirer
	processor  audio.Processor
	repo       repository.AssetRepository
	placement  *storage.Placement
	scratchDir string
}

// NewService creates a Service. scratchDir holds transcoder output before placement.
func NewService(acquirer SourceAcquirer, processor audio.Processor, repo repository.AssetRepository, placement *storage.Placement, scratchDir string) *Service {
	return &Service{
		acquirer:   acquirer,
		processor:  processor,
		repo:       repo,
		placement:  placement,
		scratchDir: scratchDir,
	}
}

// Upload acquires rawURL and records the new source asset.
func (s *Service) Upload(ctx context.Context, rawURL string) (*model.SourceAsset, error) {
	asset, err := s.acquirer.Acquire(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveSource(ctx, asset); err != nil {
		return nil, fmt.Errorf("record source %s: %w", asset.ID, err)
	}
	return asset, nil
}

// ApplyEffects returns the placed variant for (sourceID, params), producing it when
// needed. A variant that is already placed is returned without further work, and an
// unplaced local copy left by a failed upload is uploaded again without re-encoding.
func (s *Service) ApplyEffects(ctx context.Context, sourceID string, params model.EffectParameters) (*model.Variant, error) {
	src, err := s.source(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	params, err = effects.Prepare(params)
	if err != nil {
		return nil, err
	}
	id := identity.DeriveVariantID(src.ID, params)

	existing, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsPlaced() {
		logger.Info("Variant already placed", logger.String("variantId", id))
		if path, ok := s.placement.Local().Lookup(id); ok {
			existing.LocalPath = path
		} else {
			existing.LocalPath = ""
		}
		return existing, nil
	}

	v := existing
	if v == nil {
		v = &model.Variant{ID: id, SourceID: src.ID, Params: params, CreatedAt: time.Now()}
	}

	if path, ok := s.placement.Local().Lookup(id); ok {
		logger.Info("Retrying placement of local copy", logger.String("variantId", id))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read local copy of %s: %w", id, err)
		}
		if _, err := s.placement.Place(ctx, v, data); err != nil {
			return nil, err
		}
		return v, nil
	}

	data, duration, err := s.render(ctx, src, params, id)
	if err != nil {
		return nil, err
	}
	v.Duration = duration
	if _, err := s.placement.Place(ctx, v, data); err != nil {
		return nil, err
	}
	return v, nil
}

// Stream resolves where variantID can be read from.
func (s *Service) Stream(ctx context.Context, variantID string) (model.StorageLocation, error) {
	if !identity.IsVariantID(variantID) {
		return model.StorageLocation{}, fmt.Errorf("variant %q: %w", variantID, model.ErrAssetNotFound)
	}
	return s.placement.Resolve(ctx, variantID)
}

// Download returns the variant with LocalPath pointing at a local copy, regenerating
// it from the retained source when the local copy is gone.
func (s *Service) Download(ctx context.Context, variantID string) (*model.Variant, error) {
	if !identity.IsVariantID(variantID) {
		return nil, fmt.Errorf("variant %q: %w", variantID, model.ErrAssetNotFound)
	}

	v, err := s.repo.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if path, ok := s.placement.Local().Lookup(variantID); ok {
		if v == nil {
			v = &model.Variant{ID: variantID}
		}
		v.LocalPath = path
		return v, nil
	}
	if v == nil {
		sourceID, ok := identity.SourceOf(variantID)
		if !ok {
			return nil, fmt.Errorf("variant %s: %w", variantID, model.ErrAssetNotFound)
		}
		// The no-op variant of a retained source can always be rebuilt.
		v = &model.Variant{ID: variantID, SourceID: sourceID, Params: model.DefaultEffectParameters()}
	}

	src, err := s.source(ctx, v.SourceID)
	if err != nil {
		return nil, err
	}
	stages, err := effects.Compile(v.Params)
	if err != nil {
		return nil, err
	}
	out := s.placement.Local().Path(variantID)
	logger.Info("Regenerating variant from source",
		logger.String("variantId", variantID),
		logger.String("sourceId", src.ID))
	if err := s.processor.Transcode(ctx, src.LocalPath, stages, out); err != nil {
		return nil, err
	}

	v.LocalPath = out
	if err := s.repo.SaveVariant(ctx, v); err != nil {
		logger.Warn("Failed to record regenerated local copy", logger.String("variantId", variantID), logger.ErrorField(err))
	}
	return v, nil
}

// source loads a source record and checks its audio is still on disk.
func (s *Service) source(ctx context.Context, sourceID string) (*model.SourceAsset, error) {
	if !identity.IsSourceID(sourceID) {
		return nil, fmt.Errorf("source %q: %w", sourceID, model.ErrAssetNotFound)
	}
	src, err := s.repo.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("source %s: %w", sourceID, model.ErrAssetNotFound)
	}
	if _, err := os.Stat(src.LocalPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("source %s audio is gone: %w", sourceID, model.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("stat source %s: %w", sourceID, err)
	}
	return src, nil
}

// render compiles and transcodes params against src into a scratch file and returns its bytes.
func (s *Service) render(ctx context.Context, src *model.SourceAsset, params model.EffectParameters, id string) ([]byte, float32, error) {
	stages, err := effects.Compile(params)
	if err != nil {
		return nil, 0, err
	}
	if err := os.MkdirAll(s.scratchDir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("create scratch dir: %w", err)
	}
	f, err := os.CreateTemp(s.scratchDir, id+"-*"+model.CodecMP3.Ext())
	if err != nil {
		return nil, 0, fmt.Errorf("create scratch file: %w", err)
	}
	scratch := f.Name()
	f.Close()
	defer os.Remove(scratch)

	logger.Info("Applying effects",
		logger.String("variantId", id),
		logger.String("sourceId", src.ID),
		logger.String("params", params.String()),
		logger.String("graph", effects.Render(stages)))

	if err := s.processor.Transcode(ctx, src.LocalPath, stages, scratch); err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(scratch)
	if err != nil {
		return nil, 0, fmt.Errorf("read transcoded %s: %w", filepath.Base(scratch), err)
	}

	duration, err := s.processor.GetAudioDuration(ctx, scratch)
	if err != nil {
		logger.Warn("Could not probe variant duration", logger.String("variantId", id), logger.ErrorField(err))
		duration = 0
	}
	return data, duration, nil
}

// PublicURL is the durable URL a variant id is, or will be, served from.
func (s *Service) PublicURL(variantID string) string {
	return s.placement.PublicURL(variantID)
}
