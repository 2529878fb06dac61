package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/database"
	"github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/model"
	"github.com/chezmonami/marketplace-server/internal/repository"
	"github.com/chezmonami/marketplace-server/internal/util"
)

// TxRunner runs a function inside a database transaction.
// *database.DB satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// CatalogService serves structures and their products, with active
// promotions folded into the public product listings.
type CatalogService struct {
	db            TxRunner
	structureRepo repository.StructureRepository
	productRepo   repository.ProductRepository
	promotionRepo repository.PromotionRepository
	validate      *validator.Validate
}

func NewCatalogService(
	db TxRunner,
	structureRepo repository.StructureRepository,
	productRepo repository.ProductRepository,
	promotionRepo repository.PromotionRepository,
) *CatalogService {
	return &CatalogService{
		db:            db,
		structureRepo: structureRepo,
		productRepo:   productRepo,
		promotionRepo: promotionRepo,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// PricedProduct is a product with any active promotion applied.
// PromoPrice is nil when no promotion covers the structure.
type PricedProduct struct {
	model.Product
	PromoPrice *int64 `json:"prixPromo,omitempty"`
}

func (s *CatalogService) ListStructures(ctx context.Context, category string, limit, offset int) ([]model.Structure, error) {
	if category != "" {
		if !util.IsValidEnum(category, []string{"restaurant", "commerce", "artisan", "service"}) {
			return nil, errors.InvalidInput("categorie", "unknown category")
		}
		structures, err := s.structureRepo.FindByCategory(ctx, model.StructureCategory(category), limit, offset)
		if err != nil {
			return nil, errors.Database(err)
		}
		return structures, nil
	}

	structures, err := s.structureRepo.FindAll(ctx, true, limit, offset)
	if err != nil {
		return nil, errors.Database(err)
	}
	return structures, nil
}

func (s *CatalogService) GetStructureBySlug(ctx context.Context, slug string) (*model.Structure, error) {
	if !util.IsValidSlug(slug) {
		return nil, errors.InvalidInput("slug", "malformed slug")
	}
	structure, err := s.structureRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, errors.Database(err)
	}
	if structure == nil || !structure.Active {
		return nil, errors.NotFound("structure")
	}
	return structure, nil
}

// ListProducts returns the active products of a structure with the
// best active promotion applied to each price.
func (s *CatalogService) ListProducts(ctx context.Context, structureID string, limit, offset int) ([]PricedProduct, error) {
	if !util.IsValidUUID(structureID) {
		return nil, errors.InvalidInput("structureId", "malformed id")
	}

	products, err := s.productRepo.FindByStructure(ctx, structureID, true, limit, offset)
	if err != nil {
		return nil, errors.Database(err)
	}

	promotions, err := s.promotionRepo.FindActiveByStructure(ctx, structureID, time.Now())
	if err != nil {
		return nil, errors.Database(err)
	}

	priced := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		pp := PricedProduct{Product: p}
		if discounted, ok := bestPrice(p.Price, promotions); ok {
			pp.PromoPrice = &discounted
		}
		priced = append(priced, pp)
	}
	return priced, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Database(err)
	}
	if product == nil {
		return nil, errors.NotFound("product")
	}
	return product, nil
}

func (s *CatalogService) CreateStructure(ctx context.Context, params model.CreateStructureParams) (*model.Structure, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if !util.IsValidSlug(params.Slug) {
		return nil, errors.InvalidInput("slug", "lowercase letters, digits and hyphens only")
	}

	existing, err := s.structureRepo.FindBySlug(ctx, params.Slug)
	if err != nil {
		return nil, errors.Database(err)
	}
	if existing != nil {
		return nil, errors.AlreadyExists("structure")
	}

	structure, err := s.structureRepo.Create(ctx, params)
	if err != nil {
		return nil, errors.Database(err)
	}
	return structure, nil
}

func (s *CatalogService) UpdateStructure(ctx context.Context, id string, params model.UpdateStructureParams) (*model.Structure, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	structure, err := s.structureRepo.Update(ctx, id, params)
	if err != nil {
		return nil, errors.Database(err)
	}
	if structure == nil {
		return nil, errors.NotFound("structure")
	}
	return structure, nil
}

func (s *CatalogService) DeleteStructure(ctx context.Context, id string) error {
	if !util.IsValidUUID(id) {
		return errors.InvalidInput("id", "malformed id")
	}
	structure, err := s.structureRepo.FindByID(ctx, id)
	if err != nil {
		return errors.Database(err)
	}
	if structure == nil {
		return errors.NotFound("structure")
	}

	// Products must not outlive their structure; delete both in one
	// transaction so a failure leaves the catalog intact.
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.productRepo.WithTx(tx).DeleteByStructure(ctx, id); err != nil {
			return err
		}
		return s.structureRepo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return errors.Database(err)
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, params model.CreateProductParams) (*model.Product, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if len(params.Variants) > 0 {
		params.Variants = normalizeVariantsJSON(params.Variants)
	}

	structure, err := s.structureRepo.FindByID(ctx, params.StructureID)
	if err != nil {
		return nil, errors.Database(err)
	}
	if structure == nil {
		return nil, errors.NotFound("structure")
	}

	product, err := s.productRepo.Create(ctx, params)
	if err != nil {
		return nil, errors.Database(err)
	}
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, params model.UpdateProductParams) (*model.Product, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	if len(params.Variants) > 0 {
		params.Variants = normalizeVariantsJSON(params.Variants)
	}
	product, err := s.productRepo.Update(ctx, id, params)
	if err != nil {
		return nil, errors.Database(err)
	}
	if product == nil {
		return nil, errors.NotFound("product")
	}
	return product, nil
}

// AdjustStock applies a signed delta to a product's stock level.
// Stock never goes below zero.
func (s *CatalogService) AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error) {
	if !util.IsValidUUID(id) {
		return nil, errors.InvalidInput("id", "malformed id")
	}
	product, err := s.productRepo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, errors.Database(err)
	}
	if product == nil {
		return nil, errors.NotFound("product")
	}
	return product, nil
}

// CartLineCheck compares one stored cart line against the live catalog.
type CartLineCheck struct {
	ProductID    string `json:"produitId"`
	Quantity     int    `json:"quantite"`
	StoredPrice  int64  `json:"prixPanier"`
	CurrentPrice int64  `json:"prixActuel"`
	InStock      bool   `json:"enStock"`
	Available    bool   `json:"disponible"`
}

// CheckCart re-reads each cart line's product. Lines whose product was
// removed or deactivated come back unavailable; price drift is reported
// so the client can refresh the frozen line.
func (s *CatalogService) CheckCart(ctx context.Context, items []cart.LineItem) ([]CartLineCheck, error) {
	if len(items) == 0 {
		return []CartLineCheck{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Database(err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	checks := make([]CartLineCheck, 0, len(items))
	for _, item := range items {
		check := CartLineCheck{
			ProductID:   item.ID,
			Quantity:    item.Quantity,
			StoredPrice: item.UnitPrice,
		}
		if p, ok := byID[item.ID]; ok && p.Active {
			check.Available = true
			check.CurrentPrice = p.Price
			check.InStock = p.Stock >= item.Quantity
		}
		checks = append(checks, check)
	}
	return checks, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if !util.IsValidUUID(id) {
		return errors.InvalidInput("id", "malformed id")
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return errors.Database(err)
	}
	if product == nil {
		return errors.NotFound("product")
	}
	return s.productRepo.Delete(ctx, id)
}

// bestPrice applies the deepest applicable discount. Percent values
// are 1-100, amount values are centimes; prices never go below zero.
func bestPrice(price int64, promotions []model.Promotion) (int64, bool) {
	best := price
	for _, promo := range promotions {
		var discounted int64
		switch promo.Kind {
		case model.PromotionKindPercent:
			discounted = price - price*promo.Value/100
		case model.PromotionKindAmount:
			discounted = price - promo.Value
		default:
			continue
		}
		if discounted < 0 {
			discounted = 0
		}
		if discounted < best {
			best = discounted
		}
	}
	return best, best != price
}
