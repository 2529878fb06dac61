package service

import (
	"encoding/json"

	"github.com/chezmonami/marketplace-server/internal/cart"
)

// normalizeVariantsJSON rewrites a submitted variant blob into the
// canonical {variantType, value, stock} shape. Blobs that do not parse
// as a variant map are stored untouched.
func normalizeVariantsJSON(raw json.RawMessage) json.RawMessage {
	var shapes map[string]map[string]any
	if err := json.Unmarshal(raw, &shapes); err != nil {
		return raw
	}
	out, err := json.Marshal(cart.NormalizeVariants(shapes))
	if err != nil {
		return raw
	}
	return out
}
