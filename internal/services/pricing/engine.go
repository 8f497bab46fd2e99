// Package pricing derives order totals from line items, applied promotions
// and the restaurant tax rate. All arithmetic is exact decimal.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived money fields of an order
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Engine computes totals with a fixed tax rate snapshot
type Engine struct {
	taxRate decimal.Decimal
}

func NewEngine(taxRate decimal.Decimal) *Engine {
	return &Engine{taxRate: taxRate}
}

func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// Compute returns subtotal = Σ(unit_price × quantity), the promotion
// discount capped at the subtotal, and total = (subtotal − discount) × (1 + tax).
func (e *Engine) Compute(lines []models.OrderLine, promotions []models.Promotion) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Amount())
	}

	discount := Discount(subtotal, promotions)
	taxable := subtotal.Sub(discount)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    taxable.Add(taxable.Mul(e.taxRate)),
	}
}

// Discount sums percentage promotions taken on the subtotal and fixed
// promotions, never exceeding the subtotal.
func Discount(subtotal decimal.Decimal, promotions []models.Promotion) decimal.Decimal {
	discount := decimal.Zero
	for _, promo := range promotions {
		switch promo.Kind {
		case models.PromotionPercentage:
			discount = discount.Add(subtotal.Mul(promo.Value).Div(hundred))
		case models.PromotionFixed:
			discount = discount.Add(promo.Value)
		}
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// Recalculate reloads the order's lines and applied promotions inside tx,
// writes the derived totals onto order and persists it. It must run after
// every line or promotion change.
func (e *Engine) Recalculate(ctx context.Context, tx store.Tx, order *models.Order) error {
	lines, err := tx.Lines().ListByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load lines of order %d: %w", order.ID, err)
	}

	links, err := tx.OrderPromotions().ListByOrder(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load promotions of order %d: %w", order.ID, err)
	}
	var promotions []models.Promotion
	if len(links) > 0 {
		ids := make([]int64, 0, len(links))
		for _, link := range links {
			ids = append(ids, link.PromotionID)
		}
		promotions, err = tx.Promotions().ListByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load promotions of order %d: %w", order.ID, err)
		}
	}

	totals := e.Compute(lines, promotions)
	order.Subtotal = totals.Subtotal
	order.Discount = totals.Discount
	order.Total = totals.Total
	order.Lines = lines

	if err := tx.Orders().Update(ctx, *order); err != nil {
		return fmt.Errorf("failed to save totals of order %d: %w", order.ID, err)
	}
	return nil
}
