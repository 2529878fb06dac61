package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/events"
	"github.com/chezmonami/marketplace-server/internal/middleware"
	"github.com/chezmonami/marketplace-server/internal/service"
)

// CartHandler exposes the device-scoped cart. Every mutation answers
// with the full cart state and fans a cart_changed event out to the
// device's other contexts.
type CartHandler struct {
	manager  *cart.Manager
	notifier service.Notifier
	catalog  *service.CatalogService
}

func NewCartHandler(manager *cart.Manager, notifier service.Notifier, catalog *service.CatalogService) *CartHandler {
	return &CartHandler{manager: manager, notifier: notifier, catalog: catalog}
}

func (h *CartHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Get)
	r.Get("/verification", h.Verify)
	r.Post("/items", h.AddItem)
	r.Put("/items/{index}", h.SetQuantity)
	r.Delete("/items/{index}", h.RemoveItem)
	r.Delete("/", h.Clear)

	return r
}

func (h *CartHandler) store(r *http.Request) *cart.Store {
	scope := middleware.GetDeviceID(r.Context())
	return h.manager.Store(r.Context(), scope)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cartPayload(h.store(r)))
}

// Verify re-prices the stored cart against the live catalog so the
// client can surface removed products and price drift before checkout.
func (h *CartHandler) Verify(w http.ResponseWriter, r *http.Request) {
	checks, err := h.catalog.CheckCart(r.Context(), h.store(r).Items())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lignes": checks})
}

type addItemRequest struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	UnitPrice        int64                     `json:"unitPrice"`
	Quantity         int                       `json:"quantity"`
	SelectedVariants map[string]map[string]any `json:"selectedVariants"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.ID == "" {
		writeError(w, errors.MissingRequired("id"))
		return
	}

	store := h.store(r)
	store.Add(r.Context(), cart.LineItem{
		ID:               req.ID,
		Name:             req.Name,
		UnitPrice:        req.UnitPrice,
		Quantity:         req.Quantity,
		SelectedVariants: cart.NormalizeVariants(req.SelectedVariants),
	})

	h.notifyChanged(r, store)
	writeJSON(w, http.StatusOK, cartPayload(store))
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, errors.InvalidInput("index", "must be an integer"))
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}

	store := h.store(r)
	store.SetQuantity(r.Context(), index, req.Quantity)

	h.notifyChanged(r, store)
	writeJSON(w, http.StatusOK, cartPayload(store))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, errors.InvalidInput("index", "must be an integer"))
		return
	}

	store := h.store(r)
	store.Remove(r.Context(), index)

	h.notifyChanged(r, store)
	writeJSON(w, http.StatusOK, cartPayload(store))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.Clear(r.Context())

	h.notifyChanged(r, store)
	writeJSON(w, http.StatusOK, cartPayload(store))
}

func (h *CartHandler) notifyChanged(r *http.Request, store *cart.Store) {
	if h.notifier == nil {
		return
	}
	scope := middleware.GetDeviceID(r.Context())
	payload := map[string]any{"count": store.Count(), "total": store.Total()}
	if err := h.notifier.PublishJSON(r.Context(), scope, events.TypeCartChanged, payload); err != nil {
		log.Warn().Err(err).Str("scope", scope).Msg("failed to publish cart event")
	}
}
