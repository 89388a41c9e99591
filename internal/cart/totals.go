package cart

import "github.com/tastebite/storefront/internal/money"

// Totals are derived from the line items on every read. They are never stored;
// any mutation makes the previous value stale.
type Totals struct {
	Subtotal    float64
	DeliveryFee float64
	Total       float64
}

// Derive computes subtotal, delivery fee and total for a set of line items.
// The delivery fee is a flat policy constant, waived only when the cart is
// empty.
func Derive(items []LineItem, deliveryFee float64) Totals {
	subtotal := money.Sum(items, func(item LineItem) float64 {
		return item.UnitPrice * float64(item.Quantity)
	})

	fee := 0.0
	if subtotal > 0 {
		fee = deliveryFee
	}

	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal + fee,
	}
}
