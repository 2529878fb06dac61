package model

import (
	"time"
)

type Admin struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	Name               string     `db:"name" json:"nom"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Role               AdminRole  `db:"role" json:"role"`
	MustChangePassword bool       `db:"must_change_password" json:"doit_changer_mdp"`
	LastLoginAt        *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

type CreateAdminParams struct {
	Email        string    `json:"email" validate:"required,email"`
	Name         string    `json:"nom" validate:"required,max=160"`
	Password     string    `json:"password" validate:"required,min=12"`
	Role         AdminRole `json:"role" validate:"required,oneof=admin super_admin"`
	PasswordHash string    `json:"-"`
}
