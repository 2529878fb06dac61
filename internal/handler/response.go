package handler

import (
	"net/http"

	"github.com/chezmonami/marketplace-server/internal/cart"
	"github.com/chezmonami/marketplace-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// cartPayload is the cart answer every cart route returns: the lines
// plus the derived totals.
func cartPayload(store *cart.Store) map[string]any {
	return map[string]any{
		"items": store.Items(),
		"total": store.Total(),
		"count": store.Count(),
	}
}
