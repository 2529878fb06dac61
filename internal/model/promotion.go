package model

import (
	"time"
)

// Promotion discounts a structure's catalog for a bounded period.
// Percent promotions carry a 1-100 value, amount promotions a value
// in centimes.
type Promotion struct {
	ID          string        `db:"id" json:"id"`
	StructureID string        `db:"structure_id" json:"structureId"`
	Label       string        `db:"label" json:"libelle"`
	Kind        PromotionKind `db:"kind" json:"type"`
	Value       int64         `db:"value" json:"valeur"`
	StartsAt    time.Time     `db:"starts_at" json:"debuteLe"`
	EndsAt      time.Time     `db:"ends_at" json:"termineLe"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// ActiveAt reports whether the promotion applies at the given instant.
func (p Promotion) ActiveAt(at time.Time) bool {
	return !at.Before(p.StartsAt) && at.Before(p.EndsAt)
}

type CreatePromotionParams struct {
	StructureID string        `json:"structureId" validate:"required,uuid4"`
	Label       string        `json:"libelle" validate:"required,max=200"`
	Kind        PromotionKind `json:"type" validate:"required,oneof=percent amount"`
	Value       int64         `json:"valeur" validate:"required,gt=0"`
	StartsAt    time.Time     `json:"debuteLe" validate:"required"`
	EndsAt      time.Time     `json:"termineLe" validate:"required,gtfield=StartsAt"`
}

type UpdatePromotionParams struct {
	Label    *string        `json:"libelle" validate:"omitempty,max=200"`
	Kind     *PromotionKind `json:"type" validate:"omitempty,oneof=percent amount"`
	Value    *int64         `json:"valeur" validate:"omitempty,gt=0"`
	StartsAt *time.Time     `json:"debuteLe"`
	EndsAt   *time.Time     `json:"termineLe"`
}
