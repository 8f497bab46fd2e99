package order

import (
	"context"
	"errors"
	"fmt"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/store"
)

// AddLine appends a menu item at its current price, consumes its recipe
// from stock and reprices the order.
func (m *Manager) AddLine(ctx context.Context, orderID int64, req models.AddLineRequest) (models.Order, error) {
	if err := req.Validate(); err != nil {
		return models.Order{}, err
	}

	item, err := m.catalog.MenuItem(ctx, req.MenuItemID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.NotFoundf("menu item %d not found", req.MenuItemID)
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to look up menu item")
	}
	if !item.Available {
		return models.Order{}, apperr.InvalidStatef("item not available")
	}

	recipe, err := m.catalog.Recipe(ctx, item.ID)
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to load recipe")
	}

	var (
		order   models.Order
		line    models.OrderLine
		pending notification.Pending
	)
	err = m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if order, err = m.lockEditable(ctx, tx, orderID); err != nil {
			return err
		}

		line = models.OrderLine{
			OrderID:    orderID,
			MenuItemID: item.ID,
			Quantity:   req.Quantity,
			UnitPrice:  item.Price,
			Note:       req.Note,
			CreatedAt:  m.now().UTC(),
		}
		if err := tx.Lines().Insert(ctx, &line); err != nil {
			return apperr.Wrap(err, "failed to save order line")
		}

		reason := fmt.Sprintf("order %d: %s x%d", orderID, item.Name, req.Quantity)
		if err := m.stock.Consume(ctx, tx, &pending, recipe, req.Quantity, reason); err != nil {
			return err
		}
		return m.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	m.logger.Info("line_added", fmt.Sprintf("Added %s to order %d", item.Name, orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":     orderID,
		"line_id":      line.ID,
		"menu_item_id": item.ID,
		"quantity":     req.Quantity,
		"unit_price":   item.Price.String(),
		"total":        order.Total.String(),
	})
	pending.Flush(ctx, m.publisher, m.logger)
	return order, nil
}

// UpdateLineQuantity changes a line's quantity. Increases consume the extra
// portions from stock, decreases return them.
func (m *Manager) UpdateLineQuantity(ctx context.Context, lineID int64, quantity int) (models.Order, error) {
	if err := models.ValidateQuantity(quantity); err != nil {
		return models.Order{}, err
	}

	var (
		order   models.Order
		old     int
		pending notification.Pending
	)
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var (
			line models.OrderLine
			err  error
		)
		if order, line, err = m.lockLine(ctx, tx, lineID); err != nil {
			return err
		}
		old = line.Quantity

		if err := tx.Lines().UpdateQuantity(ctx, lineID, quantity); err != nil {
			return lineErr(err, lineID, "failed to update order line")
		}
		if err := m.adjustStock(ctx, tx, &pending, line, quantity-old); err != nil {
			return err
		}
		return m.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	m.logger.Info("line_updated", fmt.Sprintf("Line %d quantity changed from %d to %d", lineID, old, quantity), logger.RequestID(ctx), map[string]interface{}{
		"order_id": order.ID,
		"line_id":  lineID,
		"total":    order.Total.String(),
	})
	pending.Flush(ctx, m.publisher, m.logger)
	return order, nil
}

// RemoveLine deletes one line and returns its ingredients to stock
func (m *Manager) RemoveLine(ctx context.Context, lineID int64) (models.Order, error) {
	var (
		order   models.Order
		pending notification.Pending
	)
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var (
			line models.OrderLine
			err  error
		)
		if order, line, err = m.lockLine(ctx, tx, lineID); err != nil {
			return err
		}

		if err := tx.Lines().Delete(ctx, lineID); err != nil {
			return lineErr(err, lineID, "failed to delete order line")
		}
		if err := m.adjustStock(ctx, tx, &pending, line, -line.Quantity); err != nil {
			return err
		}
		return m.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	m.logger.Info("line_removed", fmt.Sprintf("Line %d removed from order %d", lineID, order.ID), logger.RequestID(ctx), map[string]interface{}{
		"order_id": order.ID,
		"line_id":  lineID,
	})
	pending.Flush(ctx, m.publisher, m.logger)
	return order, nil
}

// RemoveAllLines clears the order, leaving zero totals
func (m *Manager) RemoveAllLines(ctx context.Context, orderID int64) (models.Order, error) {
	var (
		order   models.Order
		removed int
		pending notification.Pending
	)
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if order, err = m.lockEditable(ctx, tx, orderID); err != nil {
			return err
		}

		lines, err := tx.Lines().ListByOrder(ctx, orderID)
		if err != nil {
			return apperr.Wrap(err, "failed to load order lines")
		}
		removed = len(lines)
		for _, line := range lines {
			if err := m.adjustStock(ctx, tx, &pending, line, -line.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Lines().DeleteByOrder(ctx, orderID); err != nil {
			return apperr.Wrap(err, "failed to delete order lines")
		}
		return m.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	m.logger.Info("lines_cleared", fmt.Sprintf("All lines removed from order %d", orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID,
		"removed":  removed,
	})
	pending.Flush(ctx, m.publisher, m.logger)
	return order, nil
}

// adjustStock consumes delta portions of the line's recipe when positive
// and returns them when negative.
func (m *Manager) adjustStock(ctx context.Context, tx store.Tx, pending *notification.Pending, line models.OrderLine, delta int) error {
	if delta == 0 {
		return nil
	}
	recipe, err := m.catalog.Recipe(ctx, line.MenuItemID)
	if err != nil {
		return apperr.Wrap(err, "failed to load recipe")
	}
	if len(recipe) == 0 {
		return nil
	}

	reason := fmt.Sprintf("order %d: line %d adjusted by %d", line.OrderID, line.ID, delta)
	if delta > 0 {
		return m.stock.Consume(ctx, tx, pending, recipe, delta, reason)
	}
	return m.stock.Restock(ctx, tx, recipe, -delta, reason)
}

func (m *Manager) reprice(ctx context.Context, tx store.Tx, pending *notification.Pending, order *models.Order) error {
	order.UpdatedAt = m.now().UTC()
	if err := m.pricing.Recalculate(ctx, tx, order); err != nil {
		return apperr.Wrap(err, "failed to recompute order totals")
	}
	return m.notifyUpdated(pending, *order)
}

func (m *Manager) lockEditable(ctx context.Context, tx store.Tx, orderID int64) (models.Order, error) {
	order, err := m.lock(ctx, tx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if err := editable(order.Status); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// lockLine locks the line's order, then reads the line again so that the
// quantity it returns cannot be changed by another transaction before commit
func (m *Manager) lockLine(ctx context.Context, tx store.Tx, lineID int64) (models.Order, models.OrderLine, error) {
	line, err := m.loadLine(ctx, tx, lineID)
	if err != nil {
		return models.Order{}, models.OrderLine{}, err
	}
	order, err := m.lockEditable(ctx, tx, line.OrderID)
	if err != nil {
		return models.Order{}, models.OrderLine{}, err
	}
	if line, err = m.loadLine(ctx, tx, lineID); err != nil {
		return models.Order{}, models.OrderLine{}, err
	}
	return order, line, nil
}

func (m *Manager) loadLine(ctx context.Context, tx store.Tx, lineID int64) (models.OrderLine, error) {
	line, err := tx.Lines().Get(ctx, lineID)
	if err != nil {
		return models.OrderLine{}, lineErr(err, lineID, "failed to load order line")
	}
	return line, nil
}

func lineErr(err error, lineID int64, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundf("order line %d not found", lineID)
	}
	return apperr.Wrap(err, msg)
}
