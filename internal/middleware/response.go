package middleware

import (
	"net/http"

	"github.com/chezmonami/marketplace-server/internal/httputil"
)

type contextKey string

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
