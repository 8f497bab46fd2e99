// Package promotion validates and manages promotions applied to orders.
package promotion

import (
	"context"
	"errors"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/services/pricing"
	"restaurant-pos/internal/store"
)

var (
	ErrNotActive      = apperr.InvalidStatef("promotion is not active")
	ErrExpired        = apperr.InvalidStatef("promotion has expired")
	ErrAlreadyApplied = apperr.InvalidStatef("already applied")
)

type Service struct {
	store     store.Store
	pricing   *pricing.Engine
	publisher notification.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(st store.Store, engine *pricing.Engine, pub notification.Publisher, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		pricing:   engine,
		publisher: pub,
		logger:    log,
		now:       time.Now,
	}
}

// Apply associates a promotion with an order and recomputes its totals
func (s *Service) Apply(ctx context.Context, orderID, promotionID int64) (models.Order, error) {
	var (
		order   models.Order
		pending notification.Pending
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = s.ValidateForApply(ctx, tx, orderID, promotionID)
		if err != nil {
			return err
		}
		if err := checkOpen(order, "apply a promotion to"); err != nil {
			return err
		}

		link := models.OrderPromotion{OrderID: orderID, PromotionID: promotionID, AppliedAt: s.now().UTC()}
		if err := tx.OrderPromotions().Insert(ctx, link); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyApplied
			}
			return apperr.Wrap(err, "failed to apply promotion")
		}
		return s.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("promotion_applied", "Promotion applied to order", logger.RequestID(ctx), map[string]interface{}{
		"order_id":     orderID,
		"promotion_id": promotionID,
		"discount":     order.Discount.String(),
		"total":        order.Total.String(),
	})
	pending.Flush(ctx, s.publisher, s.logger)
	return order, nil
}

// ValidateForApply runs the apply checks in order: existence, active,
// expiry, not already applied. It returns the locked order.
func (s *Service) ValidateForApply(ctx context.Context, tx store.Tx, orderID, promotionID int64) (models.Order, error) {
	promotion, err := tx.Promotions().Get(ctx, promotionID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.NotFoundf("promotion %d not found", promotionID)
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to load promotion")
	}

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return models.Order{}, err
	}

	if !promotion.Active {
		return models.Order{}, ErrNotActive
	}
	if promotion.ExpiredOn(s.now()) {
		return models.Order{}, ErrExpired
	}

	applied, err := tx.OrderPromotions().Exists(ctx, orderID, promotionID)
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to check applied promotions")
	}
	if applied {
		return models.Order{}, ErrAlreadyApplied
	}
	return order, nil
}

// Remove deletes a single association and recomputes the order's totals
func (s *Service) Remove(ctx context.Context, orderID, promotionID int64) (models.Order, error) {
	var (
		order   models.Order
		pending notification.Pending
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := checkOpen(order, "remove a promotion from"); err != nil {
			return err
		}

		err = tx.OrderPromotions().Delete(ctx, orderID, promotionID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("promotion %d is not applied to order %d", promotionID, orderID)
		}
		if err != nil {
			return apperr.Wrap(err, "failed to remove promotion")
		}
		return s.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("promotion_removed", "Promotion removed from order", logger.RequestID(ctx), map[string]interface{}{
		"order_id":     orderID,
		"promotion_id": promotionID,
	})
	pending.Flush(ctx, s.publisher, s.logger)
	return order, nil
}

// RemoveAll deletes every association of the order
func (s *Service) RemoveAll(ctx context.Context, orderID int64) (models.Order, error) {
	var (
		order   models.Order
		removed int
		pending notification.Pending
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := checkOpen(order, "remove promotions from"); err != nil {
			return err
		}
		if removed, err = s.RemoveAllTx(ctx, tx, orderID); err != nil {
			return err
		}
		if removed == 0 {
			return nil
		}
		return s.reprice(ctx, tx, &pending, &order)
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("promotions_cleared", "All promotions removed from order", logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID,
		"removed":  removed,
	})
	pending.Flush(ctx, s.publisher, s.logger)
	return order, nil
}

// RemoveAllTx is the transaction-scoped form of RemoveAll. It leaves
// repricing to the caller.
func (s *Service) RemoveAllTx(ctx context.Context, tx store.Tx, orderID int64) (int, error) {
	removed, err := tx.OrderPromotions().DeleteByOrder(ctx, orderID)
	if err != nil {
		return 0, apperr.Wrap(err, "failed to remove promotions")
	}
	return removed, nil
}

// IsApplied reports whether the pair exists
func (s *Service) IsApplied(ctx context.Context, orderID, promotionID int64) (bool, error) {
	var applied bool
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		applied, err = tx.OrderPromotions().Exists(ctx, orderID, promotionID)
		return err
	})
	if err != nil {
		return false, apperr.Wrap(err, "failed to check applied promotion")
	}
	return applied, nil
}

// Applied lists the promotions currently applied to an order
func (s *Service) Applied(ctx context.Context, orderID int64) ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		links, err := tx.OrderPromotions().ListByOrder(ctx, orderID)
		if err != nil || len(links) == 0 {
			return err
		}
		ids := make([]int64, 0, len(links))
		for _, link := range links {
			ids = append(ids, link.PromotionID)
		}
		promotions, err = tx.Promotions().ListByIDs(ctx, ids)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list applied promotions")
	}
	if promotions == nil {
		promotions = []models.Promotion{}
	}
	return promotions, nil
}

// checkOpen rejects discount changes on PAID and CANCELLED orders, whose
// totals are settled
func checkOpen(order models.Order, action string) error {
	if order.Status == models.StatusPaid || order.Status == models.StatusCancelled {
		return apperr.InvalidStatef("cannot %s a %s order", action, order.Status)
	}
	return nil
}

func (s *Service) reprice(ctx context.Context, tx store.Tx, pending *notification.Pending, order *models.Order) error {
	order.UpdatedAt = s.now().UTC()
	if err := s.pricing.Recalculate(ctx, tx, order); err != nil {
		return apperr.Wrap(err, "failed to recompute order totals")
	}
	if err := pending.OrderUpdated(*order); err != nil {
		return apperr.Wrap(err, "failed to build order notification")
	}
	return nil
}

func lockOrder(ctx context.Context, tx store.Tx, orderID int64) (models.Order, error) {
	order, err := tx.Orders().GetForUpdate(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(err, "failed to load order")
	}
	return order, nil
}
