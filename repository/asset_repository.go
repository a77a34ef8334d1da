package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"
)

// AssetRepository defines the interface for catalog operations on sources and variants.
// Lookups of unknown ids return (nil, nil).
type AssetRepository interface {
	SaveSource(ctx context.Context, src *model.SourceAsset) error
	GetSource(ctx context.Context, id string) (*model.SourceAsset, error)
	SaveVariant(ctx context.Context, v *model.Variant) error
	GetVariant(ctx context.Context, id string) (*model.Variant, error)
	MarkPlaced(ctx context.Context, id, durableRef string, placedAt time.Time) error
	ListVariantsBySource(ctx context.Context, sourceID string) ([]*model.Variant, error)
}

// sqlAssetRepository implements AssetRepository over database/sql. The statements
// stick to syntax shared by SQLite and MySQL.
type sqlAssetRepository struct {
	DB *sql.DB
}

// NewSQLAssetRepository creates a new instance of sqlAssetRepository.
func NewSQLAssetRepository(conn *sql.DB) AssetRepository {
	return &sqlAssetRepository{DB: conn}
}

// SaveSource inserts or replaces a source record.
func (r *sqlAssetRepository) SaveSource(ctx context.Context, src *model.SourceAsset) error {
	query := `REPLACE INTO source_assets (id, origin_url, provider, local_path, codec, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	_, err := r.DB.ExecContext(ctx, query,
		src.ID, src.OriginURL, string(src.Provider), src.LocalPath, string(src.Codec), toMillis(src.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to execute SaveSource for %s: %w", src.ID, err)
	}
	logger.Debug("Source recorded", logger.String("sourceId", src.ID), logger.String("provider", string(src.Provider)))
	return nil
}

// GetSource retrieves a source by id.
func (r *sqlAssetRepository) GetSource(ctx context.Context, id string) (*model.SourceAsset, error) {
	query := `SELECT id, origin_url, provider, local_path, codec, created_at FROM source_assets WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, id)

	src := &model.SourceAsset{}
	var provider, codec string
	var createdAt int64
	err := row.Scan(&src.ID, &src.OriginURL, &provider, &src.LocalPath, &codec, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan source by ID %s: %w", id, err)
	}
	src.Provider = model.Provider(provider)
	src.Codec = model.Codec(codec)
	src.CreatedAt = fromMillis(createdAt)
	return src, nil
}

// SaveVariant inserts a variant record or updates an existing one. A recorded
// placement is never cleared: once durable_ref is set, only MarkPlaced changes it.
func (r *sqlAssetRepository) SaveVariant(ctx context.Context, v *model.Variant) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	var placedAt sql.NullInt64
	if v.PlacedAt != nil {
		placedAt = sql.NullInt64{Int64: toMillis(*v.PlacedAt), Valid: true}
	}

	exists, err := r.variantExists(ctx, v.ID)
	if err != nil {
		return err
	}
	if !exists {
		insert := `INSERT INTO variants (id, source_id, speed, reverb, bass_boost, local_path, durable_ref, duration, created_at, placed_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, insertErr := r.DB.ExecContext(ctx, insert,
			v.ID, v.SourceID, v.Params.Speed, v.Params.Reverb, boolToInt(v.Params.BassBoost),
			v.LocalPath, v.DurableRef, float64(v.Duration), toMillis(v.CreatedAt), placedAt)
		if insertErr == nil {
			return nil
		}
		// A concurrent writer may have inserted the row first.
		if exists, err = r.variantExists(ctx, v.ID); err != nil || !exists {
			return fmt.Errorf("failed to execute SaveVariant for %s: %w", v.ID, insertErr)
		}
	}

	// durable_ref is assigned before placed_at so that MySQL, which evaluates SET
	// left to right, still sees the old placed_at.
	update := `UPDATE variants SET source_id = ?, speed = ?, reverb = ?, bass_boost = ?, local_path = ?, duration = ?,
	                  durable_ref = CASE WHEN placed_at IS NULL THEN ? ELSE durable_ref END,
	                  placed_at = COALESCE(placed_at, ?)
	           WHERE id = ?`
	_, err = r.DB.ExecContext(ctx, update,
		v.SourceID, v.Params.Speed, v.Params.Reverb, boolToInt(v.Params.BassBoost), v.LocalPath, float64(v.Duration),
		v.DurableRef, placedAt, v.ID)
	if err != nil {
		return fmt.Errorf("failed to execute SaveVariant for %s: %w", v.ID, err)
	}
	return nil
}

func (r *sqlAssetRepository) variantExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM variants WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check variant %s: %w", id, err)
	}
	return true, nil
}

// GetVariant retrieves a variant by id.
func (r *sqlAssetRepository) GetVariant(ctx context.Context, id string) (*model.Variant, error) {
	query := `SELECT id, source_id, speed, reverb, bass_boost, local_path, durable_ref, duration, created_at, placed_at
	          FROM variants WHERE id = ?`
	v, err := scanVariant(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan variant by ID %s: %w", id, err)
	}
	return v, nil
}

// MarkPlaced records that the durable store confirmed the upload.
func (r *sqlAssetRepository) MarkPlaced(ctx context.Context, id, durableRef string, placedAt time.Time) error {
	query := `UPDATE variants SET durable_ref = ?, placed_at = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, durableRef, toMillis(placedAt), id)
	if err != nil {
		return fmt.Errorf("failed to execute MarkPlaced for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for MarkPlaced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("variant %s: %w", id, model.ErrAssetNotFound)
	}
	return nil
}

// ListVariantsBySource returns every variant derived from sourceID, oldest first.
func (r *sqlAssetRepository) ListVariantsBySource(ctx context.Context, sourceID string) ([]*model.Variant, error) {
	query := `SELECT id, source_id, speed, reverb, bass_boost, local_path, durable_ref, duration, created_at, placed_at
	          FROM variants WHERE source_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants for source %s: %w", sourceID, err)
	}
	defer rows.Close()

	var variants []*model.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant row: %w", err)
		}
		variants = append(variants, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variant rows: %w", err)
	}
	return variants, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVariant(row rowScanner) (*model.Variant, error) {
	v := &model.Variant{}
	var bass int
	var duration float64
	var createdAt int64
	var placedAt sql.NullInt64
	err := row.Scan(&v.ID, &v.SourceID, &v.Params.Speed, &v.Params.Reverb, &bass,
		&v.LocalPath, &v.DurableRef, &duration, &createdAt, &placedAt)
	if err != nil {
		return nil, err
	}
	v.Params.BassBoost = bass != 0
	v.Duration = float32(duration)
	v.CreatedAt = fromMillis(createdAt)
	if placedAt.Valid {
		t := fromMillis(placedAt.Int64)
		v.PlacedAt = &t
	}
	return v, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
