package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chezmonami/marketplace-server/internal/model"
)

type AdminRepository interface {
	FindByID(ctx context.Context, id string) (*model.Admin, error)
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.Admin, error)
	Create(ctx context.Context, params model.CreateAdminParams) (*model.Admin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, mustChange bool) (*model.Admin, error)
	TouchLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AdminRepository
}

type adminRepo struct {
	db sqlxDB
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) WithTx(tx *sqlx.Tx) AdminRepository {
	return &adminRepo{db: tx}
}

func (r *adminRepo) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins WHERE id = $1
	`, id)
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins WHERE LOWER(email) = LOWER($1)
	`, email)
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Admin, error) {
	var admins []model.Admin
	err := r.db.SelectContext(ctx, &admins, `
		SELECT * FROM admins
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *adminRepo) Create(ctx context.Context, params model.CreateAdminParams) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		INSERT INTO admins (email, name, password_hash, role, must_change_password)
		VALUES ($1, $2, $3, $4, true)
		RETURNING *
	`, params.Email, params.Name, params.PasswordHash, params.Role)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepo) UpdatePassword(ctx context.Context, id, passwordHash string, mustChange bool) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		UPDATE admins SET
			password_hash = $2,
			must_change_password = $3,
			updated_at = $4
		WHERE id = $1
		RETURNING *
	`, id, passwordHash, mustChange, time.Now())
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins SET last_login_at = $2 WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *adminRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	return err
}

func (r *adminRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`)
	return count, err
}
