package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chezmonami/marketplace-server/internal/model"
)

type StructureRepository interface {
	FindByID(ctx context.Context, id string) (*model.Structure, error)
	FindBySlug(ctx context.Context, slug string) (*model.Structure, error)
	FindAll(ctx context.Context, onlyActive bool, limit, offset int) ([]model.Structure, error)
	FindByCategory(ctx context.Context, category model.StructureCategory, limit, offset int) ([]model.Structure, error)
	Create(ctx context.Context, params model.CreateStructureParams) (*model.Structure, error)
	Update(ctx context.Context, id string, params model.UpdateStructureParams) (*model.Structure, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) StructureRepository
}

type structureRepo struct {
	db sqlxDB
}

func NewStructureRepository(db *sqlx.DB) StructureRepository {
	return &structureRepo{db: db}
}

func (r *structureRepo) WithTx(tx *sqlx.Tx) StructureRepository {
	return &structureRepo{db: tx}
}

func (r *structureRepo) FindByID(ctx context.Context, id string) (*model.Structure, error) {
	var structure model.Structure
	err := r.db.GetContext(ctx, &structure, `
		SELECT * FROM structures WHERE id = $1
	`, id)
	return HandleNotFound(&structure, err)
}

func (r *structureRepo) FindBySlug(ctx context.Context, slug string) (*model.Structure, error) {
	var structure model.Structure
	err := r.db.GetContext(ctx, &structure, `
		SELECT * FROM structures WHERE slug = $1
	`, slug)
	return HandleNotFound(&structure, err)
}

func (r *structureRepo) FindAll(ctx context.Context, onlyActive bool, limit, offset int) ([]model.Structure, error) {
	var structures []model.Structure
	err := r.db.SelectContext(ctx, &structures, `
		SELECT * FROM structures
		WHERE ($1 = false OR active = true)
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`, onlyActive, limit, offset)
	if err != nil {
		return nil, err
	}
	return structures, nil
}

func (r *structureRepo) FindByCategory(ctx context.Context, category model.StructureCategory, limit, offset int) ([]model.Structure, error) {
	var structures []model.Structure
	err := r.db.SelectContext(ctx, &structures, `
		SELECT * FROM structures
		WHERE category = $1 AND active = true
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`, category, limit, offset)
	if err != nil {
		return nil, err
	}
	return structures, nil
}

func (r *structureRepo) Create(ctx context.Context, params model.CreateStructureParams) (*model.Structure, error) {
	var structure model.Structure
	err := r.db.GetContext(ctx, &structure, `
		INSERT INTO structures (slug, name, category, description, city, phone, active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING *
	`, params.Slug, params.Name, params.Category, params.Description, params.City, params.Phone)
	if err != nil {
		return nil, err
	}
	return &structure, nil
}

func (r *structureRepo) Update(ctx context.Context, id string, params model.UpdateStructureParams) (*model.Structure, error) {
	var structure model.Structure
	err := r.db.GetContext(ctx, &structure, `
		UPDATE structures SET
			name = COALESCE($2, name),
			category = COALESCE($3, category),
			description = COALESCE($4, description),
			city = COALESCE($5, city),
			phone = COALESCE($6, phone),
			active = COALESCE($7, active),
			updated_at = $8
		WHERE id = $1
		RETURNING *
	`, id, params.Name, params.Category, params.Description, params.City, params.Phone, params.Active, time.Now())
	return HandleNotFound(&structure, err)
}

func (r *structureRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM structures WHERE id = $1`, id)
	return err
}

func (r *structureRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM structures`)
	return count, err
}
