package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Totals is the money breakdown persisted on an order.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeTotals derives the order totals from its lines:
//
//	subtotal = sum(line totals) - discount
//	total    = subtotal + tax + shipping
//
// Tax, shipping and discount are taken from the order as stored. Each line is
// repriced from its quantity and unit price so stale line totals never leak in.
func ComputeTotals(order *models.Order, items []models.OrderItem) Totals {
	lines := decimal.Zero
	for i := range items {
		item := items[i]
		item.Reprice()
		lines = lines.Add(item.TotalPrice)
	}
	subtotal := lines.Sub(order.DiscountAmount).Round(2)
	total := subtotal.Add(order.TaxAmount).Add(order.ShippingCost).Round(2)
	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      order.TaxAmount,
		ShippingCost:   order.ShippingCost,
		DiscountAmount: order.DiscountAmount,
		TotalAmount:    total,
	}
}

// Apply copies the totals onto the order.
func (t Totals) Apply(order *models.Order) {
	order.Subtotal = t.Subtotal
	order.TaxAmount = t.TaxAmount
	order.ShippingCost = t.ShippingCost
	order.DiscountAmount = t.DiscountAmount
	order.TotalAmount = t.TotalAmount
}

func (t Totals) columns() map[string]any {
	return map[string]any{
		"subtotal":        t.Subtotal,
		"tax_amount":      t.TaxAmount,
		"shipping_cost":   t.ShippingCost,
		"discount_amount": t.DiscountAmount,
		"total_amount":    t.TotalAmount,
	}
}
