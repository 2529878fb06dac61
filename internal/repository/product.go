package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chezmonami/marketplace-server/internal/model"
)

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindByStructure(ctx context.Context, structureID string, onlyActive bool, limit, offset int) ([]model.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	Create(ctx context.Context, params model.CreateProductParams) (*model.Product, error)
	Update(ctx context.Context, id string, params model.UpdateProductParams) (*model.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error)
	Delete(ctx context.Context, id string) error
	DeleteByStructure(ctx context.Context, structureID string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ProductRepository
}

type productRepo struct {
	db sqlxDB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(tx *sqlx.Tx) ProductRepository {
	return &productRepo{db: tx}
}

func (r *productRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		SELECT * FROM products WHERE id = $1
	`, id)
	return HandleNotFound(&product, err)
}

func (r *productRepo) FindByStructure(ctx context.Context, structureID string, onlyActive bool, limit, offset int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT * FROM products
		WHERE structure_id = $1 AND ($2 = false OR active = true)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`, structureID, onlyActive, limit, offset)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var products []model.Product
	err = r.db.SelectContext(ctx, &products, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) Create(ctx context.Context, params model.CreateProductParams) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		INSERT INTO products (structure_id, name, description, price, stock, variants, active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING *
	`, params.StructureID, params.Name, params.Description, params.Price, params.Stock, params.Variants)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, id string, params model.UpdateProductParams) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			stock = COALESCE($5, stock),
			variants = COALESCE($6, variants),
			active = COALESCE($7, active),
			updated_at = $8
		WHERE id = $1
		RETURNING *
	`, id, params.Name, params.Description, params.Price, params.Stock, params.Variants, params.Active, time.Now())
	return HandleNotFound(&product, err)
}

func (r *productRepo) AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		UPDATE products SET
			stock = GREATEST(stock + $2, 0),
			updated_at = $3
		WHERE id = $1
		RETURNING *
	`, id, delta, time.Now())
	return HandleNotFound(&product, err)
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *productRepo) DeleteByStructure(ctx context.Context, structureID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE structure_id = $1`, structureID)
	return err
}
