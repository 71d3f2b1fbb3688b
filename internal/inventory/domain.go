// Package inventory coordinates material stock reservations. Creating an
// event-material line item and decrementing the material's stock happen in a
// single transaction, so a failed insert can never leave stock reserved
// without a corresponding line item.
package inventory

import "errors"

var (
	// ErrInsufficientStock indicates the material has less stock than requested.
	ErrInsufficientStock = errors.New("estoque insuficiente")
	// ErrInvalidQuantity indicates a negative or non-numeric quantity.
	ErrInvalidQuantity = errors.New("quantidade inválida")
	// ErrMaterialNotFound indicates the referenced material does not exist.
	ErrMaterialNotFound = errors.New("material não encontrado")
	// ErrLineItemNotFound indicates the line item does not exist.
	ErrLineItemNotFound = errors.New("line item not found")
)

// quantityOf extracts the reserved quantity from a line item body. A missing
// quantity means no stock movement.
func quantityOf(body map[string]any) (float64, error) {
	raw, ok := body["quantity"]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case float64:
		if v < 0 {
			return 0, ErrInvalidQuantity
		}
		return v, nil
	case int:
		if v < 0 {
			return 0, ErrInvalidQuantity
		}
		return float64(v), nil
	default:
		return 0, ErrInvalidQuantity
	}
}
