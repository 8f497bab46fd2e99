package order

import (
	"context"
	"errors"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

// Get returns the order with its lines
func (m *Manager) Get(ctx context.Context, orderID int64) (models.Order, error) {
	var order models.Order
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if order, err = tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		order.Lines, err = tx.Lines().ListByOrder(ctx, orderID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to load order")
	}
	return order, nil
}

// Find queries orders by status, table, server and creation date
func (m *Manager) Find(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		found, err := tx.Orders().Find(ctx, filter)
		if err != nil {
			return err
		}
		for i := range found {
			if found[i].Lines, err = tx.Lines().ListByOrder(ctx, found[i].ID); err != nil {
				return err
			}
		}
		orders = found
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to query orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// History returns the status log of an order, oldest first
func (m *Manager) History(ctx context.Context, orderID int64) ([]models.StatusChange, error) {
	var changes []models.StatusChange
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		var err error
		changes, err = tx.StatusLog().ListByOrder(ctx, orderID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to load order history")
	}
	return changes, nil
}
