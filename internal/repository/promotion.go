package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chezmonami/marketplace-server/internal/model"
)

type PromotionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Promotion, error)
	FindActive(ctx context.Context, at time.Time) ([]model.Promotion, error)
	FindActiveByStructure(ctx context.Context, structureID string, at time.Time) ([]model.Promotion, error)
	FindByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Promotion, error)
	Create(ctx context.Context, params model.CreatePromotionParams) (*model.Promotion, error)
	Update(ctx context.Context, id string, params model.UpdatePromotionParams) (*model.Promotion, error)
	Delete(ctx context.Context, id string) error
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PromotionRepository
}

type promotionRepo struct {
	db sqlxDB
}

func NewPromotionRepository(db *sqlx.DB) PromotionRepository {
	return &promotionRepo{db: db}
}

func (r *promotionRepo) WithTx(tx *sqlx.Tx) PromotionRepository {
	return &promotionRepo{db: tx}
}

func (r *promotionRepo) FindByID(ctx context.Context, id string) (*model.Promotion, error) {
	var promotion model.Promotion
	err := r.db.GetContext(ctx, &promotion, `
		SELECT * FROM promotions WHERE id = $1
	`, id)
	return HandleNotFound(&promotion, err)
}

func (r *promotionRepo) FindActive(ctx context.Context, at time.Time) ([]model.Promotion, error) {
	var promotions []model.Promotion
	err := r.db.SelectContext(ctx, &promotions, `
		SELECT * FROM promotions
		WHERE starts_at <= $1 AND ends_at > $1
		ORDER BY ends_at ASC
	`, at)
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *promotionRepo) FindActiveByStructure(ctx context.Context, structureID string, at time.Time) ([]model.Promotion, error) {
	var promotions []model.Promotion
	err := r.db.SelectContext(ctx, &promotions, `
		SELECT * FROM promotions
		WHERE structure_id = $1 AND starts_at <= $2 AND ends_at > $2
		ORDER BY ends_at ASC
	`, structureID, at)
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *promotionRepo) FindByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Promotion, error) {
	var promotions []model.Promotion
	err := r.db.SelectContext(ctx, &promotions, `
		SELECT * FROM promotions
		WHERE structure_id = $1
		ORDER BY starts_at DESC
		LIMIT $2 OFFSET $3
	`, structureID, limit, offset)
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *promotionRepo) Create(ctx context.Context, params model.CreatePromotionParams) (*model.Promotion, error) {
	var promotion model.Promotion
	err := r.db.GetContext(ctx, &promotion, `
		INSERT INTO promotions (structure_id, label, kind, value, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.StructureID, params.Label, params.Kind, params.Value, params.StartsAt, params.EndsAt)
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *promotionRepo) Update(ctx context.Context, id string, params model.UpdatePromotionParams) (*model.Promotion, error) {
	var promotion model.Promotion
	err := r.db.GetContext(ctx, &promotion, `
		UPDATE promotions SET
			label = COALESCE($2, label),
			kind = COALESCE($3, kind),
			value = COALESCE($4, value),
			starts_at = COALESCE($5, starts_at),
			ends_at = COALESCE($6, ends_at),
			updated_at = $7
		WHERE id = $1
		RETURNING *
	`, id, params.Label, params.Kind, params.Value, params.StartsAt, params.EndsAt, time.Now())
	return HandleNotFound(&promotion, err)
}

func (r *promotionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	return err
}

func (r *promotionRepo) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM promotions WHERE ends_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
