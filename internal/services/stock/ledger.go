// Package stock keeps ingredient quantities and their append-only movement
// ledger, and raises FAIBLE/RUPTURE alerts after withdrawals.
package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/store"
)

// maxSwapAttempts bounds the compare-and-swap loop of a single withdrawal
const maxSwapAttempts = 5

type Ledger struct {
	store     store.Store
	publisher notification.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewLedger(st store.Store, pub notification.Publisher, log *logger.Logger) *Ledger {
	return &Ledger{
		store:     st,
		publisher: pub,
		logger:    log,
		now:       time.Now,
	}
}

// AddQuantity increases stock and records an inbound movement
func (l *Ledger) AddQuantity(ctx context.Context, ingredientID int64, amount decimal.Decimal, reason string) (models.Ingredient, error) {
	var ingredient models.Ingredient
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		ingredient, err = l.Add(ctx, tx, ingredientID, amount, reason)
		return err
	})
	if err != nil {
		return models.Ingredient{}, err
	}

	l.logger.Info("stock_added", "Stock added", logger.RequestID(ctx), map[string]interface{}{
		"ingredient_id": ingredientID,
		"amount":        amount.String(),
		"quantity":      ingredient.Quantity.String(),
	})
	return ingredient, nil
}

// WithdrawQuantity decreases stock, records an outbound movement and
// publishes at most one alert once the change is committed.
func (l *Ledger) WithdrawQuantity(ctx context.Context, ingredientID int64, amount decimal.Decimal, reason string) (models.Ingredient, error) {
	var (
		ingredient models.Ingredient
		pending    notification.Pending
	)
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		ingredient, err = l.Withdraw(ctx, tx, &pending, ingredientID, amount, reason)
		return err
	})
	if err != nil {
		return models.Ingredient{}, err
	}

	l.logger.Info("stock_withdrawn", "Stock withdrawn", logger.RequestID(ctx), map[string]interface{}{
		"ingredient_id": ingredientID,
		"amount":        amount.String(),
		"quantity":      ingredient.Quantity.String(),
	})
	pending.Flush(ctx, l.publisher, l.logger)
	return ingredient, nil
}

// Add is the transaction-scoped form of AddQuantity
func (l *Ledger) Add(ctx context.Context, tx store.Tx, ingredientID int64, amount decimal.Decimal, reason string) (models.Ingredient, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return models.Ingredient{}, err
	}

	ingredient, err := l.swap(ctx, tx, ingredientID, func(current models.Ingredient) (decimal.Decimal, error) {
		return current.Quantity.Add(amount), nil
	})
	if err != nil {
		return models.Ingredient{}, err
	}

	if err := l.record(ctx, tx, ingredientID, models.MovementIn, amount, reason); err != nil {
		return models.Ingredient{}, err
	}
	return ingredient, nil
}

// Withdraw is the transaction-scoped form of WithdrawQuantity. The alert, if
// any, is queued on pending and must be flushed after commit.
func (l *Ledger) Withdraw(ctx context.Context, tx store.Tx, pending *notification.Pending, ingredientID int64, amount decimal.Decimal, reason string) (models.Ingredient, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return models.Ingredient{}, err
	}

	ingredient, err := l.swap(ctx, tx, ingredientID, func(current models.Ingredient) (decimal.Decimal, error) {
		if amount.GreaterThan(current.Quantity) {
			return decimal.Zero, apperr.InvalidStatef("insufficient stock for %s: requested %s, available %s",
				current.Name, amount, current.Quantity)
		}
		return current.Quantity.Sub(amount), nil
	})
	if err != nil {
		return models.Ingredient{}, err
	}

	if err := l.record(ctx, tx, ingredientID, models.MovementOut, amount, reason); err != nil {
		return models.Ingredient{}, err
	}

	if alert, ok := l.alertFor(ingredient); ok {
		if err := pending.Add(models.EventStockAlert, notification.TopicStockAlerts, alert); err != nil {
			return models.Ingredient{}, apperr.Wrap(err, "failed to build stock alert")
		}
		l.logger.Warn("stock_alert", fmt.Sprintf("Stock %s for %s", alert.Level, alert.Name), logger.RequestID(ctx), map[string]interface{}{
			"ingredient_id": ingredient.ID,
			"quantity":      ingredient.Quantity.String(),
			"threshold":     ingredient.AlertThreshold.String(),
		})
	}
	return ingredient, nil
}

// swap reads the ingredient under lock, computes its next quantity and
// writes it back only if nobody changed it in between.
func (l *Ledger) swap(ctx context.Context, tx store.Tx, ingredientID int64, next func(models.Ingredient) (decimal.Decimal, error)) (models.Ingredient, error) {
	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		current, err := tx.Ingredients().GetForUpdate(ctx, ingredientID)
		if errors.Is(err, store.ErrNotFound) {
			return models.Ingredient{}, apperr.NotFoundf("ingredient %d not found", ingredientID)
		}
		if err != nil {
			return models.Ingredient{}, apperr.Wrap(err, "failed to load ingredient")
		}

		quantity, err := next(current)
		if err != nil {
			return models.Ingredient{}, err
		}

		swapped, err := tx.Ingredients().CompareAndSwapQuantity(ctx, ingredientID, current.Quantity, quantity)
		if err != nil {
			return models.Ingredient{}, apperr.Wrap(err, "failed to update ingredient quantity")
		}
		if swapped {
			current.Quantity = quantity
			current.UpdatedAt = l.now().UTC()
			return current, nil
		}

		l.logger.Debug("stock_swap_retry", "Ingredient quantity changed concurrently, retrying", logger.RequestID(ctx), map[string]interface{}{
			"ingredient_id": ingredientID,
			"attempt":       attempt,
		})
	}
	return models.Ingredient{}, apperr.InvalidStatef("ingredient %d is being modified concurrently, try again", ingredientID)
}

func (l *Ledger) record(ctx context.Context, tx store.Tx, ingredientID int64, kind models.MovementKind, amount decimal.Decimal, reason string) error {
	movement := &models.StockMovement{
		IngredientID: ingredientID,
		Kind:         kind,
		Quantity:     amount,
		Reason:       reason,
		CreatedAt:    l.now().UTC(),
	}
	if err := tx.Movements().Append(ctx, movement); err != nil {
		return apperr.Wrap(err, "failed to record stock movement")
	}
	return nil
}

// alertFor decides the single alert a post-withdrawal quantity deserves.
// Exactly zero wins over the threshold check.
func (l *Ledger) alertFor(ingredient models.Ingredient) (models.StockAlert, bool) {
	var level models.AlertLevel
	switch {
	case ingredient.Quantity.IsZero():
		level = models.AlertOut
	case ingredient.Quantity.LessThanOrEqual(ingredient.AlertThreshold):
		level = models.AlertLow
	default:
		return models.StockAlert{}, false
	}

	return models.StockAlert{
		IngredientID: ingredient.ID,
		Name:         ingredient.Name,
		Level:        level,
		Quantity:     ingredient.Quantity,
		Threshold:    ingredient.AlertThreshold,
		Unit:         ingredient.Unit,
		RaisedAt:     l.now().UTC(),
	}, true
}
