package model

import (
	"encoding/json"
	"time"
)

type Product struct {
	ID          string          `db:"id" json:"id"`
	StructureID string          `db:"structure_id" json:"structureId"`
	Name        string          `db:"name" json:"nom"`
	Description *string         `db:"description" json:"description,omitempty"`
	// Unit price in centimes.
	Price     int64           `db:"price" json:"prix"`
	Stock     int             `db:"stock" json:"stock"`
	Variants  json.RawMessage `db:"variants" json:"variantes,omitempty"`
	Active    bool            `db:"active" json:"actif"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

type CreateProductParams struct {
	StructureID string          `json:"structureId" validate:"required,uuid4"`
	Name        string          `json:"nom" validate:"required,max=160"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Price       int64           `json:"prix" validate:"required,gt=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Variants    json.RawMessage `json:"variantes"`
}

type UpdateProductParams struct {
	Name        *string         `json:"nom" validate:"omitempty,max=160"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Price       *int64          `json:"prix" validate:"omitempty,gt=0"`
	Stock       *int            `json:"stock" validate:"omitempty,gte=0"`
	Variants    json.RawMessage `json:"variantes"`
	Active      *bool           `json:"actif"`
}
