package model

import (
	"time"
)

// Structure is a local business hosted on the marketplace. Public
// payloads keep the French field names the storefront expects.
type Structure struct {
	ID          string            `db:"id" json:"id"`
	Slug        string            `db:"slug" json:"slug"`
	Name        string            `db:"name" json:"nom"`
	Category    StructureCategory `db:"category" json:"categorie"`
	Description *string           `db:"description" json:"description,omitempty"`
	City        *string           `db:"city" json:"ville,omitempty"`
	Phone       *string           `db:"phone" json:"telephone,omitempty"`
	Active      bool              `db:"active" json:"actif"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

type CreateStructureParams struct {
	Slug        string            `json:"slug" validate:"required,max=80"`
	Name        string            `json:"nom" validate:"required,max=160"`
	Category    StructureCategory `json:"categorie" validate:"required,oneof=restaurant commerce artisan service"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	City        *string           `json:"ville" validate:"omitempty,max=120"`
	Phone       *string           `json:"telephone" validate:"omitempty,max=30"`
}

type UpdateStructureParams struct {
	Name        *string            `json:"nom" validate:"omitempty,max=160"`
	Category    *StructureCategory `json:"categorie" validate:"omitempty,oneof=restaurant commerce artisan service"`
	Description *string            `json:"description" validate:"omitempty,max=2000"`
	City        *string            `json:"ville" validate:"omitempty,max=120"`
	Phone       *string            `json:"telephone" validate:"omitempty,max=30"`
	Active      *bool              `json:"actif"`
}
