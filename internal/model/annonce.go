package model

import (
	"time"
)

// Annonce is a time-limited classified ad posted by a structure.
type Annonce struct {
	ID          string        `db:"id" json:"id"`
	StructureID string        `db:"structure_id" json:"structureId"`
	Title       string        `db:"title" json:"titre"`
	Body        string        `db:"body" json:"contenu"`
	Status      AnnonceStatus `db:"status" json:"statut"`
	ExpiresAt   time.Time     `db:"expires_at" json:"expireLe"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreateAnnonceParams struct {
	StructureID string     `json:"structureId" validate:"required,uuid4"`
	Title       string     `json:"titre" validate:"required,max=200"`
	Body        string     `json:"contenu" validate:"required,max=5000"`
	ExpiresAt   *time.Time `json:"expireLe"`
}

type UpdateAnnonceParams struct {
	Title     *string        `json:"titre" validate:"omitempty,max=200"`
	Body      *string        `json:"contenu" validate:"omitempty,max=5000"`
	Status    *AnnonceStatus `json:"statut" validate:"omitempty,oneof=draft published expired"`
	ExpiresAt *time.Time     `json:"expireLe"`
}
