package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/services/pricing"
	"restaurant-pos/internal/services/promotion"
	"restaurant-pos/internal/services/stock"
	"restaurant-pos/internal/store"
)

// Manager owns the order lifecycle. Every mutation runs in one store
// transaction and its notifications are published only after commit.
type Manager struct {
	store      store.Store
	catalog    store.Catalog
	pricing    *pricing.Engine
	stock      *stock.Ledger
	promotions *promotion.Service
	publisher  notification.Publisher
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewManager(
	st store.Store,
	catalog store.Catalog,
	engine *pricing.Engine,
	ledger *stock.Ledger,
	promotions *promotion.Service,
	pub notification.Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Manager {
	return &Manager{
		store:      st,
		catalog:    catalog,
		pricing:    engine,
		stock:      ledger,
		promotions: promotions,
		publisher:  pub,
		logger:     log,
		metrics:    m,
		now:        time.Now,
	}
}

// CreateOrder opens a PLACED order with no lines
func (m *Manager) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (models.Order, error) {
	kind, err := req.Validate()
	if err != nil {
		return models.Order{}, err
	}

	if err := m.checkServer(ctx, req.ServerID); err != nil {
		return models.Order{}, err
	}
	if kind == models.DineIn {
		exists, err := m.catalog.TableExists(ctx, *req.TableID)
		if err != nil {
			return models.Order{}, apperr.Wrap(err, "failed to look up table")
		}
		if !exists {
			return models.Order{}, apperr.NotFoundf("table %d not found", *req.TableID)
		}
	}

	now := m.now().UTC()
	order := models.Order{
		Kind:      kind,
		TableID:   req.TableID,
		ServerID:  req.ServerID,
		Status:    models.StatusPlaced,
		CreatedAt: now,
		UpdatedAt: now,
		Lines:     []models.OrderLine{},
	}

	var pending notification.Pending
	err = m.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Orders().Insert(ctx, &order); err != nil {
			return apperr.Wrap(err, "failed to save order")
		}
		change := models.StatusChange{
			OrderID:   order.ID,
			To:        models.StatusPlaced,
			ChangedBy: fmt.Sprintf("staff:%d", req.ServerID),
			ChangedAt: now,
		}
		if err := tx.StatusLog().Append(ctx, change); err != nil {
			return apperr.Wrap(err, "failed to record order status")
		}
		return m.notifyUpdated(&pending, order)
	})
	if err != nil {
		return models.Order{}, err
	}

	m.logger.Info("order_created", fmt.Sprintf("Order %d created", order.ID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":  order.ID,
		"kind":      string(order.Kind),
		"server_id": order.ServerID,
	})
	m.metrics.StatusTransition(string(models.StatusPlaced))
	pending.Flush(ctx, m.publisher, m.logger)
	return order, nil
}

func (m *Manager) checkServer(ctx context.Context, staffID int64) error {
	staff, err := m.catalog.Staff(ctx, staffID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundf("staff member %d not found", staffID)
	}
	if err != nil {
		return apperr.Wrap(err, "failed to look up staff member")
	}
	if staff.Role != models.RoleServer {
		return apperr.Unauthorizedf("staff member %d is a %s, only servers can own orders", staffID, staff.Role)
	}
	return nil
}

// UpdateStatus applies a direct status change. READY notifies waitstaff,
// CANCELLED drops every applied promotion.
func (m *Manager) UpdateStatus(ctx context.Context, orderID int64, next models.OrderStatus, changedBy string) (models.Order, error) {
	var (
		order   models.Order
		from    models.OrderStatus
		pending notification.Pending
	)
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = m.lock(ctx, tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if err := CheckTransition(from, next); err != nil {
			return err
		}

		if next == models.StatusCancelled {
			if _, err := m.promotions.RemoveAllTx(ctx, tx, orderID); err != nil {
				return err
			}
		}
		if err := m.transition(ctx, tx, &order, next, changedBy); err != nil {
			return err
		}

		switch next {
		case models.StatusReady:
			return wrapNotify(pending.OrderReady(order))
		case models.StatusCancelled:
			return m.notifyUpdated(&pending, order)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	m.logger.Info("status_changed", fmt.Sprintf("Order %d moved from %s to %s", orderID, from, next), logger.RequestID(ctx), map[string]interface{}{
		"order_id":   orderID,
		"old_status": string(from),
		"new_status": string(next),
		"changed_by": changedBy,
	})
	m.metrics.StatusTransition(string(next))
	pending.Flush(ctx, m.publisher, m.logger)
	return order, nil
}

// transition sets the status, reprices and appends to the status log. The
// caller has already validated the move.
func (m *Manager) transition(ctx context.Context, tx store.Tx, order *models.Order, next models.OrderStatus, changedBy string) error {
	from := order.Status
	now := m.now().UTC()
	order.Status = next
	order.UpdatedAt = now

	if err := m.pricing.Recalculate(ctx, tx, order); err != nil {
		return apperr.Wrap(err, "failed to save order")
	}
	change := models.StatusChange{
		OrderID:   order.ID,
		From:      from,
		To:        next,
		ChangedBy: changedBy,
		ChangedAt: now,
	}
	if err := tx.StatusLog().Append(ctx, change); err != nil {
		return apperr.Wrap(err, "failed to record status change")
	}
	return nil
}

// MarkPaid forces an order to PAID inside the payment transaction
func (m *Manager) MarkPaid(ctx context.Context, tx store.Tx, pending *notification.Pending, orderID int64, changedBy string) (models.Order, error) {
	order, err := m.lock(ctx, tx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	switch order.Status {
	case models.StatusPaid:
		return models.Order{}, apperr.InvalidStatef("already paid")
	case models.StatusCancelled:
		return models.Order{}, apperr.InvalidStatef("cannot pay a cancelled order")
	}

	if err := m.transition(ctx, tx, &order, models.StatusPaid, changedBy); err != nil {
		return models.Order{}, err
	}
	return order, m.notifyUpdated(pending, order)
}

// Reopen moves a paid order back to PLACED once its payment is removed
func (m *Manager) Reopen(ctx context.Context, tx store.Tx, pending *notification.Pending, orderID int64, changedBy string) (models.Order, error) {
	order, err := m.lock(ctx, tx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status != models.StatusPaid {
		m.logger.Warn("order_reopen_unpaid", "Reopening an order that was not marked paid", logger.RequestID(ctx), map[string]interface{}{
			"order_id": orderID,
			"status":   string(order.Status),
		})
	}
	if order.Status == models.StatusPlaced {
		return order, nil
	}

	if err := m.transition(ctx, tx, &order, models.StatusPlaced, changedBy); err != nil {
		return models.Order{}, err
	}
	return order, m.notifyUpdated(pending, order)
}

// DeleteOrder removes an order with its lines, promotions and history.
// Ingredients consumed by its lines go back to stock.
func (m *Manager) DeleteOrder(ctx context.Context, orderID int64) error {
	var restocked int
	err := m.store.WithTx(ctx, func(tx store.Tx) error {
		order, err := m.lock(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.StatusPaid {
			return apperr.InvalidStatef("cannot delete a paid order")
		}

		lines, err := tx.Lines().ListByOrder(ctx, orderID)
		if err != nil {
			return apperr.Wrap(err, "failed to load order lines")
		}
		restocked = len(lines)
		for _, line := range lines {
			if err := m.adjustStock(ctx, tx, nil, line, -line.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Orders().Delete(ctx, orderID); err != nil {
			return apperr.Wrap(err, "failed to delete order")
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("order_deleted", fmt.Sprintf("Order %d deleted", orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id":        orderID,
		"lines_restocked": restocked,
	})
	return nil
}

func (m *Manager) lock(ctx context.Context, tx store.Tx, orderID int64) (models.Order, error) {
	order, err := tx.Orders().GetForUpdate(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to load order")
	}
	return order, nil
}

func (m *Manager) notifyUpdated(pending *notification.Pending, order models.Order) error {
	return wrapNotify(pending.OrderUpdated(order))
}

func wrapNotify(err error) error {
	return apperr.Wrap(err, "failed to build order notification")
}
