package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chezmonami/marketplace-server/internal/audit"
	"github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/middleware"
	"github.com/chezmonami/marketplace-server/internal/model"
	"github.com/chezmonami/marketplace-server/internal/service"
	"github.com/chezmonami/marketplace-server/internal/session"
)

type AdminHandler struct {
	adminService     *service.AdminService
	catalog          *service.CatalogService
	annonces         *service.AnnonceService
	promotions       *service.PromotionService
	analytics        *service.AnalyticsService
	registry         *session.Registry
	guardMiddleware  func(http.Handler) http.Handler
	loginRateLimiter *middleware.LoginRateLimiter
	isProduction     bool
}

func NewAdminHandler(
	adminService *service.AdminService,
	catalog *service.CatalogService,
	annonces *service.AnnonceService,
	promotions *service.PromotionService,
	analytics *service.AnalyticsService,
	registry *session.Registry,
	guardMiddleware func(http.Handler) http.Handler,
	isProduction bool,
) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		catalog:          catalog,
		annonces:         annonces,
		promotions:       promotions,
		analytics:        analytics,
		registry:         registry,
		guardMiddleware:  guardMiddleware,
		loginRateLimiter: middleware.NewLoginRateLimiter(),
		isProduction:     isProduction,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginRateLimiter.Handler).Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.guardMiddleware)

		r.Get("/session", h.Session)
		r.Post("/session/activity", h.Activity)
		r.Post("/password", h.ChangePassword)
		r.Get("/stats", h.Stats)

		// Structures
		r.Post("/structures", h.CreateStructure)
		r.Put("/structures/{id}", h.UpdateStructure)
		r.Delete("/structures/{id}", h.DeleteStructure)
		r.Get("/structures/{id}/vues", h.StructureViews)

		// Products
		r.Post("/produits", h.CreateProduct)
		r.Put("/produits/{id}", h.UpdateProduct)
		r.Post("/produits/{id}/stock", h.AdjustStock)
		r.Delete("/produits/{id}", h.DeleteProduct)

		// Annonces
		r.Get("/annonces", h.ListAnnonces)
		r.Post("/annonces", h.CreateAnnonce)
		r.Put("/annonces/{id}", h.UpdateAnnonce)
		r.Delete("/annonces/{id}", h.DeleteAnnonce)

		// Promotions
		r.Get("/promotions", h.ListPromotions)
		r.Post("/promotions", h.CreatePromotion)
		r.Put("/promotions/{id}", h.UpdatePromotion)
		r.Delete("/promotions/{id}", h.DeletePromotion)

		// Admin accounts
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperAdmin)
			r.Get("/admins", h.ListAdmins)
			r.Post("/admins", h.CreateAdmin)
			r.Delete("/admins/{id}", h.DeleteAdmin)
		})
	})

	return r
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, errors.MissingRequired("email and password"))
		return
	}

	result, err := h.adminService.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, middleware.AdminSessionCookie, result.Token, "/", h.isProduction)
	writeJSON(w, http.StatusOK, map[string]any{
		"admin": result.Admin,
	})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminSessionCookie); err == nil && cookie.Value != "" {
		h.adminService.Logout(r.Context(), h.adminService.ScopeForToken(cookie.Value))
	}

	middleware.ClearSessionCookie(w, middleware.AdminSessionCookie, "/")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Session reports the signed-in admin and the time left before the
// nearest ceiling.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	scope := middleware.GetScope(r.Context())

	var remainingMs int64
	if guard, ok := h.registry.Get(scope); ok {
		if status := guard.Check(r.Context()); status.Valid {
			remainingMs = status.Remaining.Milliseconds()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"admin":       identity,
		"remainingMs": remainingMs,
	})
}

// Activity records a user interaction, resetting the inactivity clock.
// Only genuine interaction kinds qualify.
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}

	kind := session.ActivityKind(req.Kind)
	if !session.QualifiesActivity(kind) {
		writeError(w, errors.InvalidInput("kind", "not a qualifying activity"))
		return
	}

	scope := middleware.GetScope(r.Context())
	if guard, ok := h.registry.Get(scope); ok {
		guard.TouchActivity(r.Context(), kind)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if err := h.adminService.ChangePassword(r.Context(), identity.ID, req.Current, req.Next); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Structures

func (h *AdminHandler) CreateStructure(w http.ResponseWriter, r *http.Request) {
	var params model.CreateStructureParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	structure, err := h.catalog.CreateStructure(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.Log(r.Context(), audit.Event{
		Type:    audit.EventStructureCreate,
		AdminID: middleware.GetIdentity(r.Context()).ID,
		Details: map[string]interface{}{"structureId": structure.ID},
	})
	writeJSON(w, http.StatusCreated, structure)
}

func (h *AdminHandler) UpdateStructure(w http.ResponseWriter, r *http.Request) {
	var params model.UpdateStructureParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	structure, err := h.catalog.UpdateStructure(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

func (h *AdminHandler) DeleteStructure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.catalog.DeleteStructure(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	audit.Log(r.Context(), audit.Event{
		Type:    audit.EventStructureDelete,
		AdminID: middleware.GetIdentity(r.Context()).ID,
		Details: map[string]interface{}{"structureId": id},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// StructureViews reports the trailing view counter for a structure.
func (h *AdminHandler) StructureViews(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("jours"))
	if days < 1 || days > 90 {
		days = 7
	}

	views, err := h.analytics.ViewsFor(r.Context(), "structure", chi.URLParam(r, "id"), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vues": views, "jours": days})
}

// Products

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var params model.CreateProductParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var params model.UpdateProductParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// AdjustStock applies a signed delta to a product's stock, for
// receiving deliveries or writing off breakage.
func (h *AdminHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		writeError(w, errors.InvalidInput("delta", "must be a non-zero integer"))
		return
	}

	product, err := h.catalog.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Annonces

func (h *AdminHandler) ListAnnonces(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	structureID := r.URL.Query().Get("structureId")
	if structureID == "" {
		writeError(w, errors.MissingRequired("structureId"))
		return
	}
	annonces, err := h.annonces.ListByStructure(r.Context(), structureID, p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"annonces": annonces})
}

func (h *AdminHandler) CreateAnnonce(w http.ResponseWriter, r *http.Request) {
	var params model.CreateAnnonceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	annonce, err := h.annonces.Create(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, annonce)
}

func (h *AdminHandler) UpdateAnnonce(w http.ResponseWriter, r *http.Request) {
	var params model.UpdateAnnonceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	annonce, err := h.annonces.Update(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, annonce)
}

func (h *AdminHandler) DeleteAnnonce(w http.ResponseWriter, r *http.Request) {
	if err := h.annonces.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Promotions

func (h *AdminHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	structureID := r.URL.Query().Get("structureId")
	if structureID == "" {
		writeError(w, errors.MissingRequired("structureId"))
		return
	}
	promotions, err := h.promotions.ListByStructure(r.Context(), structureID, p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotions": promotions})
}

func (h *AdminHandler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var params model.CreatePromotionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	promotion, err := h.promotions.Create(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, promotion)
}

func (h *AdminHandler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var params model.UpdatePromotionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	promotion, err := h.promotions.Update(r.Context(), chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promotion)
}

func (h *AdminHandler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promotions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Admin accounts

func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	admins, err := h.adminService.ListAdmins(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"admins": admins})
}

func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var params model.CreateAdminParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	admin, err := h.adminService.CreateAdmin(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

func (h *AdminHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if err := h.adminService.DeleteAdmin(r.Context(), identity.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
