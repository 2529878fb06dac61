package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/database"
	apperrors "github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/model"
	"github.com/chezmonami/marketplace-server/internal/repository"
)

func TestBestPrice(t *testing.T) {
	now := time.Now()
	window := func(kind model.PromotionKind, value int64) model.Promotion {
		return model.Promotion{
			Kind:     kind,
			Value:    value,
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(time.Hour),
		}
	}

	t.Run("no promotions leaves the price alone", func(t *testing.T) {
		price, discounted := bestPrice(2500, nil)
		assert.Equal(t, int64(2500), price)
		assert.False(t, discounted)
	})

	t.Run("percent discount", func(t *testing.T) {
		price, discounted := bestPrice(2000, []model.Promotion{window(model.PromotionKindPercent, 25)})
		assert.Equal(t, int64(1500), price)
		assert.True(t, discounted)
	})

	t.Run("amount discount", func(t *testing.T) {
		price, discounted := bestPrice(2000, []model.Promotion{window(model.PromotionKindAmount, 300)})
		assert.Equal(t, int64(1700), price)
		assert.True(t, discounted)
	})

	t.Run("deepest discount wins", func(t *testing.T) {
		price, _ := bestPrice(2000, []model.Promotion{
			window(model.PromotionKindPercent, 10),
			window(model.PromotionKindAmount, 500),
		})
		assert.Equal(t, int64(1500), price)
	})

	t.Run("price never drops below zero", func(t *testing.T) {
		price, discounted := bestPrice(200, []model.Promotion{window(model.PromotionKindAmount, 500)})
		assert.Equal(t, int64(0), price)
		assert.True(t, discounted)
	})
}

func TestNormalizeVariantsJSON(t *testing.T) {
	t.Run("legacy shape is rewritten to the canonical one", func(t *testing.T) {
		raw := json.RawMessage(`{"taille":{"type":"taille","valeur":"M","stock":3}}`)

		out := normalizeVariantsJSON(raw)

		var decoded map[string]map[string]any
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Equal(t, "taille", decoded["taille"]["variantType"])
		assert.Equal(t, "M", decoded["taille"]["value"])
		assert.Equal(t, float64(3), decoded["taille"]["stock"])
	})

	t.Run("unparseable blob is kept as-is", func(t *testing.T) {
		raw := json.RawMessage(`["not","a","map"]`)
		assert.Equal(t, raw, normalizeVariantsJSON(raw))
	})
}

type stubProductRepo struct {
	products []model.Product

	deletedStructures []string
	deleteErr         error
}

func (r *stubProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *stubProductRepo) FindByStructure(ctx context.Context, structureID string, onlyActive bool, limit, offset int) ([]model.Product, error) {
	return r.products, nil
}

func (r *stubProductRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *stubProductRepo) Create(ctx context.Context, params model.CreateProductParams) (*model.Product, error) {
	return nil, nil
}

func (r *stubProductRepo) Update(ctx context.Context, id string, params model.UpdateProductParams) (*model.Product, error) {
	return nil, nil
}

func (r *stubProductRepo) AdjustStock(ctx context.Context, id string, delta int) (*model.Product, error) {
	return nil, nil
}

func (r *stubProductRepo) Delete(ctx context.Context, id string) error { return nil }

func (r *stubProductRepo) DeleteByStructure(ctx context.Context, structureID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deletedStructures = append(r.deletedStructures, structureID)
	return nil
}

func (r *stubProductRepo) WithTx(tx *sqlx.Tx) repository.ProductRepository { return r }

func TestCheckCart(t *testing.T) {
	repo := &stubProductRepo{products: []model.Product{
		{ID: "p1", Price: 1000, Stock: 5, Active: true},
		{ID: "p2", Price: 800, Stock: 1, Active: true},
		{ID: "p3", Price: 500, Active: false},
	}}
	svc := &CatalogService{productRepo: repo}

	items := []cart.LineItem{
		{ID: "p1", UnitPrice: 900, Quantity: 2},
		{ID: "p2", UnitPrice: 800, Quantity: 3},
		{ID: "p3", UnitPrice: 500, Quantity: 1},
		{ID: "gone", UnitPrice: 100, Quantity: 1},
	}

	checks, err := svc.CheckCart(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, checks, 4)

	t.Run("reports price drift", func(t *testing.T) {
		assert.True(t, checks[0].Available)
		assert.True(t, checks[0].InStock)
		assert.Equal(t, int64(900), checks[0].StoredPrice)
		assert.Equal(t, int64(1000), checks[0].CurrentPrice)
	})

	t.Run("flags insufficient stock", func(t *testing.T) {
		assert.True(t, checks[1].Available)
		assert.False(t, checks[1].InStock)
	})

	t.Run("deactivated product is unavailable", func(t *testing.T) {
		assert.False(t, checks[2].Available)
	})

	t.Run("unknown product is unavailable", func(t *testing.T) {
		assert.False(t, checks[3].Available)
	})

	t.Run("empty cart checks clean", func(t *testing.T) {
		empty, err := svc.CheckCart(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

type stubStructureRepo struct {
	structure *model.Structure
	deleted   []string
}

func (r *stubStructureRepo) FindByID(ctx context.Context, id string) (*model.Structure, error) {
	return r.structure, nil
}

func (r *stubStructureRepo) FindBySlug(ctx context.Context, slug string) (*model.Structure, error) {
	return r.structure, nil
}

func (r *stubStructureRepo) FindAll(ctx context.Context, onlyActive bool, limit, offset int) ([]model.Structure, error) {
	return nil, nil
}

func (r *stubStructureRepo) FindByCategory(ctx context.Context, category model.StructureCategory, limit, offset int) ([]model.Structure, error) {
	return nil, nil
}

func (r *stubStructureRepo) Create(ctx context.Context, params model.CreateStructureParams) (*model.Structure, error) {
	return nil, nil
}

func (r *stubStructureRepo) Update(ctx context.Context, id string, params model.UpdateStructureParams) (*model.Structure, error) {
	return nil, nil
}

func (r *stubStructureRepo) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubStructureRepo) Count(ctx context.Context) (int, error) { return 0, nil }

func (r *stubStructureRepo) WithTx(tx *sqlx.Tx) repository.StructureRepository { return r }

// fakeTxRunner runs the function directly, counting invocations.
type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

func TestDeleteStructure(t *testing.T) {
	const id = "550e8400-e29b-41d4-a716-446655440000"
	ctx := context.Background()

	t.Run("removes the structure and its products in one transaction", func(t *testing.T) {
		tx := &fakeTxRunner{}
		products := &stubProductRepo{}
		structures := &stubStructureRepo{structure: &model.Structure{ID: id}}
		svc := &CatalogService{db: tx, structureRepo: structures, productRepo: products}

		require.NoError(t, svc.DeleteStructure(ctx, id))

		assert.Equal(t, 1, tx.calls)
		assert.Equal(t, []string{id}, products.deletedStructures)
		assert.Equal(t, []string{id}, structures.deleted)
	})

	t.Run("product delete failure aborts the structure delete", func(t *testing.T) {
		tx := &fakeTxRunner{}
		products := &stubProductRepo{deleteErr: assert.AnError}
		structures := &stubStructureRepo{structure: &model.Structure{ID: id}}
		svc := &CatalogService{db: tx, structureRepo: structures, productRepo: products}

		err := svc.DeleteStructure(ctx, id)

		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDatabase, appErr.Code)
		assert.Empty(t, structures.deleted)
	})

	t.Run("unknown structure never opens a transaction", func(t *testing.T) {
		tx := &fakeTxRunner{}
		svc := &CatalogService{db: tx, structureRepo: &stubStructureRepo{}, productRepo: &stubProductRepo{}}

		err := svc.DeleteStructure(ctx, id)

		require.Error(t, err)
		assert.Equal(t, 0, tx.calls)
	})
}
