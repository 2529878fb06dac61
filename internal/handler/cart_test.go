package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/middleware"
	"github.com/chezmonami/marketplace-server/internal/storage"
)

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) PublishJSON(ctx context.Context, scope, eventType string, payload any) error {
	n.events = append(n.events, scope+"/"+eventType)
	return nil
}

type cartResponse struct {
	Items []cart.LineItem `json:"items"`
	Total int64           `json:"total"`
	Count int             `json:"count"`
}

func newCartServer(t *testing.T) (http.Handler, *recordingNotifier) {
	t.Helper()

	manager := cart.NewManager(func(scope string) cart.ContextStorage {
		return storage.NewMemoryStore().Handle()
	})
	t.Cleanup(manager.Close)

	notifier := &recordingNotifier{}
	h := NewCartHandler(manager, notifier, nil)

	r := chi.NewRouter()
	r.Use(middleware.NewDeviceMiddleware(false).Handler)
	r.Mount("/api/panier", h.Routes())
	return r, notifier
}

func doCart(t *testing.T, server http.Handler, method, path, body string) (*httptest.ResponseRecorder, cartResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(middleware.DeviceHeader, "8f14e45f-ceea-4f3a-87f0-9f2c257f6c7e")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var resp cartResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestCartHandler(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		server, _ := newCartServer(t)

		rec, resp := doCart(t, server, http.MethodGet, "/api/panier/", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, resp.Items)
		assert.Zero(t, resp.Total)
		assert.Zero(t, resp.Count)
	})

	t.Run("adding the same product twice merges quantities", func(t *testing.T) {
		server, notifier := newCartServer(t)

		doCart(t, server, http.MethodPost, "/api/panier/items",
			`{"id":"p1","name":"Croissant","unitPrice":150,"quantity":2}`)
		rec, resp := doCart(t, server, http.MethodPost, "/api/panier/items",
			`{"id":"p1","name":"Croissant","unitPrice":150,"quantity":3}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, 5, resp.Items[0].Quantity)
		assert.Equal(t, int64(750), resp.Total)
		assert.Equal(t, 5, resp.Count)
		assert.Len(t, notifier.events, 2)
		assert.Equal(t, "8f14e45f-ceea-4f3a-87f0-9f2c257f6c7e/cart_changed", notifier.events[0])
	})

	t.Run("variants are normalized from the legacy shape", func(t *testing.T) {
		server, _ := newCartServer(t)

		_, resp := doCart(t, server, http.MethodPost, "/api/panier/items",
			`{"id":"p1","name":"Tarte","unitPrice":900,"selectedVariants":{"taille":{"type":"taille","valeur":"grande","stock":4}}}`)

		require.Len(t, resp.Items, 1)
		assert.Equal(t, 1, resp.Items[0].Quantity)
		v, ok := resp.Items[0].SelectedVariants["taille"]
		require.True(t, ok)
		assert.Equal(t, "grande", v.Value)
		assert.Equal(t, 4, v.Stock)
	})

	t.Run("set quantity to zero removes the line", func(t *testing.T) {
		server, _ := newCartServer(t)

		doCart(t, server, http.MethodPost, "/api/panier/items",
			`{"id":"p1","name":"Quiche","unitPrice":450,"quantity":2}`)
		rec, resp := doCart(t, server, http.MethodPut, "/api/panier/items/0", `{"quantity":0}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, resp.Items)
	})

	t.Run("removing an out of range index leaves the cart alone", func(t *testing.T) {
		server, _ := newCartServer(t)

		doCart(t, server, http.MethodPost, "/api/panier/items",
			`{"id":"p1","name":"Quiche","unitPrice":450}`)
		rec, resp := doCart(t, server, http.MethodDelete, "/api/panier/items/5", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, resp.Items, 1)
	})

	t.Run("clear empties the cart", func(t *testing.T) {
		server, _ := newCartServer(t)

		doCart(t, server, http.MethodPost, "/api/panier/items",
			`{"id":"p1","name":"Quiche","unitPrice":450}`)
		rec, resp := doCart(t, server, http.MethodDelete, "/api/panier/", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, resp.Items)
		assert.Zero(t, resp.Count)
	})

	t.Run("item without an id is rejected", func(t *testing.T) {
		server, _ := newCartServer(t)

		rec, _ := doCart(t, server, http.MethodPost, "/api/panier/items", `{"name":"Quiche"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
