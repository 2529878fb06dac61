package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chezmonami/marketplace-server/internal/model"
)

type AnnonceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Annonce, error)
	FindPublished(ctx context.Context, limit, offset int) ([]model.Annonce, error)
	FindByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Annonce, error)
	Create(ctx context.Context, params model.CreateAnnonceParams, status model.AnnonceStatus, expiresAt time.Time) (*model.Annonce, error)
	Update(ctx context.Context, id string, params model.UpdateAnnonceParams) (*model.Annonce, error)
	Delete(ctx context.Context, id string) error
	// MarkExpired flips published annonces past their deadline and
	// returns the ids it touched.
	MarkExpired(ctx context.Context, now time.Time) ([]string, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AnnonceRepository
}

type annonceRepo struct {
	db sqlxDB
}

func NewAnnonceRepository(db *sqlx.DB) AnnonceRepository {
	return &annonceRepo{db: db}
}

func (r *annonceRepo) WithTx(tx *sqlx.Tx) AnnonceRepository {
	return &annonceRepo{db: tx}
}

func (r *annonceRepo) FindByID(ctx context.Context, id string) (*model.Annonce, error) {
	var annonce model.Annonce
	err := r.db.GetContext(ctx, &annonce, `
		SELECT * FROM annonces WHERE id = $1
	`, id)
	return HandleNotFound(&annonce, err)
}

func (r *annonceRepo) FindPublished(ctx context.Context, limit, offset int) ([]model.Annonce, error) {
	var annonces []model.Annonce
	err := r.db.SelectContext(ctx, &annonces, `
		SELECT * FROM annonces
		WHERE status = 'published' AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return annonces, nil
}

func (r *annonceRepo) FindByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Annonce, error) {
	var annonces []model.Annonce
	err := r.db.SelectContext(ctx, &annonces, `
		SELECT * FROM annonces
		WHERE structure_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, structureID, limit, offset)
	if err != nil {
		return nil, err
	}
	return annonces, nil
}

func (r *annonceRepo) Create(ctx context.Context, params model.CreateAnnonceParams, status model.AnnonceStatus, expiresAt time.Time) (*model.Annonce, error) {
	var annonce model.Annonce
	err := r.db.GetContext(ctx, &annonce, `
		INSERT INTO annonces (structure_id, title, body, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.StructureID, params.Title, params.Body, status, expiresAt)
	if err != nil {
		return nil, err
	}
	return &annonce, nil
}

func (r *annonceRepo) Update(ctx context.Context, id string, params model.UpdateAnnonceParams) (*model.Annonce, error) {
	var annonce model.Annonce
	err := r.db.GetContext(ctx, &annonce, `
		UPDATE annonces SET
			title = COALESCE($2, title),
			body = COALESCE($3, body),
			status = COALESCE($4, status),
			expires_at = COALESCE($5, expires_at),
			updated_at = $6
		WHERE id = $1
		RETURNING *
	`, id, params.Title, params.Body, params.Status, params.ExpiresAt, time.Now())
	return HandleNotFound(&annonce, err)
}

func (r *annonceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM annonces WHERE id = $1`, id)
	return err
}

func (r *annonceRepo) MarkExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		UPDATE annonces SET status = 'expired', updated_at = $1
		WHERE status = 'published' AND expires_at <= $1
		RETURNING id
	`, now)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *annonceRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM annonces
		WHERE status = 'expired' AND expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
