package stock

import (
	"context"
	"errors"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

func (l *Ledger) Ingredient(ctx context.Context, id int64) (models.Ingredient, error) {
	var ingredient models.Ingredient
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		ingredient, err = tx.Ingredients().Get(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Ingredient{}, apperr.NotFoundf("ingredient %d not found", id)
	}
	if err != nil {
		return models.Ingredient{}, apperr.Wrap(err, "failed to load ingredient")
	}
	return ingredient, nil
}

func (l *Ledger) Ingredients(ctx context.Context) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		ingredients, err = tx.Ingredients().List(ctx)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list ingredients")
	}
	return ingredients, nil
}

// Movements queries the ledger by ingredient, kind and date range
func (l *Ledger) Movements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		movements, err = tx.Movements().Find(ctx, filter)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to query stock movements")
	}
	return movements, nil
}
