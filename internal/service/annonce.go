package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/events"
	"github.com/chezmonami/marketplace-server/internal/model"
	"github.com/chezmonami/marketplace-server/internal/repository"
	"github.com/chezmonami/marketplace-server/internal/util"
)

// DefaultAnnonceLifetime applies when a create request carries no
// explicit deadline.
const DefaultAnnonceLifetime = 30 * 24 * time.Hour

// Notifier publishes application events to a scope's subscribers.
type Notifier interface {
	PublishJSON(ctx context.Context, scope, eventType string, payload any) error
}

type AnnonceService struct {
	annonceRepo   repository.AnnonceRepository
	structureRepo repository.StructureRepository
	notifier      Notifier
	validate      *validator.Validate
}

func NewAnnonceService(
	annonceRepo repository.AnnonceRepository,
	structureRepo repository.StructureRepository,
	notifier Notifier,
) *AnnonceService {
	return &AnnonceService{
		annonceRepo:   annonceRepo,
		structureRepo: structureRepo,
		notifier:      notifier,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *AnnonceService) ListPublished(ctx context.Context, limit, offset int) ([]model.Annonce, error) {
	annonces, err := s.annonceRepo.FindPublished(ctx, limit, offset)
	if err != nil {
		return nil, errors.Database(err)
	}
	return annonces, nil
}

func (s *AnnonceService) ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Annonce, error) {
	if !util.IsValidUUID(structureID) {
		return nil, errors.InvalidInput("structureId", "malformed id")
	}
	annonces, err := s.annonceRepo.FindByStructure(ctx, structureID, limit, offset)
	if err != nil {
		return nil, errors.Database(err)
	}
	return annonces, nil
}

func (s *AnnonceService) Get(ctx context.Context, id string) (*model.Annonce, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	annonce, err := s.annonceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Database(err)
	}
	if annonce == nil {
		return nil, errors.NotFound("annonce")
	}
	return annonce, nil
}

func (s *AnnonceService) Create(ctx context.Context, params model.CreateAnnonceParams) (*model.Annonce, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}

	structure, err := s.structureRepo.FindByID(ctx, params.StructureID)
	if err != nil {
		return nil, errors.Database(err)
	}
	if structure == nil {
		return nil, errors.NotFound("structure")
	}

	expiresAt := time.Now().Add(DefaultAnnonceLifetime)
	if params.ExpiresAt != nil {
		if params.ExpiresAt.Before(time.Now()) {
			return nil, errors.InvalidInput("expireLe", "deadline already passed")
		}
		expiresAt = *params.ExpiresAt
	}

	annonce, err := s.annonceRepo.Create(ctx, params, model.AnnonceStatusPublished, expiresAt)
	if err != nil {
		return nil, errors.Database(err)
	}

	s.publish(ctx, events.TypeAnnonceCreated, annonce)
	return annonce, nil
}

func (s *AnnonceService) Update(ctx context.Context, id string, params model.UpdateAnnonceParams) (*model.Annonce, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	annonce, err := s.annonceRepo.Update(ctx, id, params)
	if err != nil {
		return nil, errors.Database(err)
	}
	if annonce == nil {
		return nil, errors.NotFound("annonce")
	}
	return annonce, nil
}

func (s *AnnonceService) Delete(ctx context.Context, id string) error {
	if !util.IsValidUUID(id) {
		return errors.InvalidInput("id", "malformed id")
	}
	annonce, err := s.annonceRepo.FindByID(ctx, id)
	if err != nil {
		return errors.Database(err)
	}
	if annonce == nil {
		return errors.NotFound("annonce")
	}
	return s.annonceRepo.Delete(ctx, id)
}

// ExpireDue flips published annonces past their deadline and notifies
// public subscribers for each. Called by the cleanup job.
func (s *AnnonceService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.annonceRepo.MarkExpired(ctx, now)
	if err != nil {
		return 0, errors.Database(err)
	}
	for _, id := range ids {
		s.publish(ctx, events.TypeAnnonceExpired, map[string]string{"id": id})
	}
	return len(ids), nil
}

func (s *AnnonceService) publish(ctx context.Context, eventType string, payload any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(ctx, events.PublicScope, eventType, payload); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("failed to publish annonce event")
	}
}
