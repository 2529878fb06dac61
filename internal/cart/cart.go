// Package cart implements the shopper cart: a persisted list of line
// items owned by one store per device, kept in sync across contexts
// through storage change notifications.
package cart

import (
	"encoding/json"
	"strconv"
)

// StorageKey is the fixed key the cart list is persisted under.
const StorageKey = "cart"

// Variant is the normalized form of a chosen product option.
type Variant struct {
	VariantType string `json:"variantType"`
	Value       string `json:"value"`
	Stock       int    `json:"stock"`
}

// LineItem is one row in the cart: a product snapshot plus chosen
// options and quantity. Name and UnitPrice are frozen at add time,
// not live-synced to catalog changes.
type LineItem struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	UnitPrice        int64              `json:"unitPrice"`
	Quantity         int                `json:"quantity"`
	SelectedVariants map[string]Variant `json:"selectedVariants,omitempty"`
}

// NormalizeVariants flattens the loosely shaped variant objects accepted
// at the API boundary into tagged Variant records. Historical payloads
// use either {type, valeur, stock} or {variantType, value, stock};
// entries with no recognizable value are dropped.
func NormalizeVariants(raw map[string]map[string]any) map[string]Variant {
	if len(raw) == 0 {
		return nil
	}

	out := make(map[string]Variant, len(raw))
	for variantType, fields := range raw {
		v, ok := normalizeVariant(variantType, fields)
		if !ok {
			continue
		}
		out[variantType] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeVariant(variantType string, fields map[string]any) (Variant, bool) {
	v := Variant{VariantType: variantType}

	if t, ok := stringField(fields, "variantType", "type"); ok && t != "" {
		v.VariantType = t
	}

	value, ok := stringField(fields, "value", "valeur")
	if !ok || value == "" {
		return Variant{}, false
	}
	v.Value = value

	if stock, ok := intField(fields, "stock"); ok {
		v.Stock = stock
	}

	return v, true
}

func stringField(fields map[string]any, names ...string) (string, bool) {
	for _, name := range names {
		if raw, ok := fields[name]; ok {
			if s, ok := raw.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func intField(fields map[string]any, names ...string) (int, bool) {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		switch n := raw.(type) {
		case float64:
			return int(n), true
		case int:
			return n, true
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i), true
			}
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// decodeItems parses a persisted cart payload. Malformed JSON yields an
// empty cart rather than an error; the stored value is best effort.
func decodeItems(value string) []LineItem {
	if value == "" {
		return nil
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil
	}
	return items
}
