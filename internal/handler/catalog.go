package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chezmonami/marketplace-server/internal/service"
)

// CatalogHandler serves the public storefront: structures, products,
// published annonces and active promotions.
type CatalogHandler struct {
	catalog    *service.CatalogService
	annonces   *service.AnnonceService
	promotions *service.PromotionService
	analytics  *service.AnalyticsService
}

func NewCatalogHandler(
	catalog *service.CatalogService,
	annonces *service.AnnonceService,
	promotions *service.PromotionService,
	analytics *service.AnalyticsService,
) *CatalogHandler {
	return &CatalogHandler{
		catalog:    catalog,
		annonces:   annonces,
		promotions: promotions,
		analytics:  analytics,
	}
}

func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/structures", h.ListStructures)
	r.Get("/structures/{slug}", h.GetStructure)
	r.Get("/structures/{slug}/produits", h.ListProducts)
	r.Get("/produits/{id}", h.GetProduct)
	r.Get("/annonces", h.ListAnnonces)
	r.Get("/promotions", h.ListPromotions)

	return r
}

func (h *CatalogHandler) ListStructures(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	structures, err := h.catalog.ListStructures(r.Context(), r.URL.Query().Get("categorie"), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"structures": structures})
}

func (h *CatalogHandler) GetStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := h.catalog.GetStructureBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.analytics.RecordView(r.Context(), "structure", structure.ID)
	writeJSON(w, http.StatusOK, structure)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	structure, err := h.catalog.GetStructureBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	p := ParsePagination(r)
	products, err := h.catalog.ListProducts(r.Context(), structure.ID, p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"produits": products})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.analytics.RecordView(r.Context(), "produit", product.ID)
	writeJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) ListAnnonces(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	annonces, err := h.annonces.ListPublished(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"annonces": annonces})
}

func (h *CatalogHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.promotions.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotions": promotions})
}
