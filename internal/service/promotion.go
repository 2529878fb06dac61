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

type PromotionService struct {
	promotionRepo repository.PromotionRepository
	structureRepo repository.StructureRepository
	notifier      Notifier
	validate      *validator.Validate
}

func NewPromotionService(
	promotionRepo repository.PromotionRepository,
	structureRepo repository.StructureRepository,
	notifier Notifier,
) *PromotionService {
	return &PromotionService{
		promotionRepo: promotionRepo,
		structureRepo: structureRepo,
		notifier:      notifier,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *PromotionService) ListActive(ctx context.Context) ([]model.Promotion, error) {
	promotions, err := s.promotionRepo.FindActive(ctx, time.Now())
	if err != nil {
		return nil, errors.Database(err)
	}
	return promotions, nil
}

func (s *PromotionService) ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]model.Promotion, error) {
	if !util.IsValidUUID(structureID) {
		return nil, errors.InvalidInput("structureId", "malformed id")
	}
	promotions, err := s.promotionRepo.FindByStructure(ctx, structureID, limit, offset)
	if err != nil {
		return nil, errors.Database(err)
	}
	return promotions, nil
}

func (s *PromotionService) Create(ctx context.Context, params model.CreatePromotionParams) (*model.Promotion, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if params.Kind == model.PromotionKindPercent && params.Value > 100 {
		return nil, errors.InvalidInput("valeur", "percent discounts cap at 100")
	}

	structure, err := s.structureRepo.FindByID(ctx, params.StructureID)
	if err != nil {
		return nil, errors.Database(err)
	}
	if structure == nil {
		return nil, errors.NotFound("structure")
	}

	promotion, err := s.promotionRepo.Create(ctx, params)
	if err != nil {
		return nil, errors.Database(err)
	}

	s.publish(ctx, promotion)
	return promotion, nil
}

func (s *PromotionService) Update(ctx context.Context, id string, params model.UpdatePromotionParams) (*model.Promotion, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	promotion, err := s.promotionRepo.Update(ctx, id, params)
	if err != nil {
		return nil, errors.Database(err)
	}
	if promotion == nil {
		return nil, errors.NotFound("promotion")
	}
	if promotion.EndsAt.Before(promotion.StartsAt) {
		return nil, errors.InvalidInput("termineLe", "ends before it starts")
	}

	s.publish(ctx, promotion)
	return promotion, nil
}

func (s *PromotionService) Delete(ctx context.Context, id string) error {
	if !util.IsValidUUID(id) {
		return errors.InvalidInput("id", "malformed id")
	}
	promotion, err := s.promotionRepo.FindByID(ctx, id)
	if err != nil {
		return errors.Database(err)
	}
	if promotion == nil {
		return errors.NotFound("promotion")
	}
	if err := s.promotionRepo.Delete(ctx, id); err != nil {
		return errors.Database(err)
	}

	s.publish(ctx, promotion)
	return nil
}

func (s *PromotionService) publish(ctx context.Context, promotion *model.Promotion) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(ctx, events.PublicScope, events.TypePromotionChanged, promotion); err != nil {
		log.Warn().Err(err).Msg("failed to publish promotion event")
	}
}
