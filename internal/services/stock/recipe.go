package stock

import (
	"context"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/store"
)

// Consume withdraws recipe quantities for portions servings of a menu item.
// Ingredients are processed in recipe order; any shortfall fails the whole
// transaction.
func (l *Ledger) Consume(ctx context.Context, tx store.Tx, pending *notification.Pending, recipe []models.RecipeItem, portions int, reason string) error {
	if portions <= 0 {
		return nil
	}
	for _, item := range recipe {
		amount := item.Quantity.Mul(decimal.NewFromInt(int64(portions)))
		if !amount.IsPositive() {
			continue
		}
		if _, err := l.Withdraw(ctx, tx, pending, item.IngredientID, amount, reason); err != nil {
			return err
		}
	}
	return nil
}

// Restock returns recipe quantities for portions servings
func (l *Ledger) Restock(ctx context.Context, tx store.Tx, recipe []models.RecipeItem, portions int, reason string) error {
	if portions <= 0 {
		return nil
	}
	for _, item := range recipe {
		amount := item.Quantity.Mul(decimal.NewFromInt(int64(portions)))
		if !amount.IsPositive() {
			continue
		}
		if _, err := l.Add(ctx, tx, item.IngredientID, amount, reason); err != nil {
			return err
		}
	}
	return nil
}
