// Package payment records payments against orders. Recording a payment is
// the only way an order reaches PAID.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/services/order"
	"restaurant-pos/internal/store"
)

// maxReferenceAttempts bounds transaction reference generation
const maxReferenceAttempts = 5

var ErrAlreadyPaid = apperr.InvalidStatef("already paid")

type Reconciler struct {
	store     store.Store
	orders    *order.Manager
	publisher notification.Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	reference func(time.Time) string
}

func NewReconciler(st store.Store, orders *order.Manager, pub notification.Publisher, log *logger.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:     st,
		orders:    orders,
		publisher: pub,
		logger:    log,
		metrics:   m,
		now:       time.Now,
		reference: NewReference,
	}
}

// NewReference formats PAY-YYYYMMDD-XXXXXXXX with a random suffix
func NewReference(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("PAY-%s-%s", at.UTC().Format("20060102"), suffix)
}

// Pay records the single payment of an order and forces it to PAID
func (r *Reconciler) Pay(ctx context.Context, orderID int64, req models.PaymentRequest) (models.Payment, error) {
	kind, err := req.Validate()
	if err != nil {
		return models.Payment{}, err
	}

	var (
		payment models.Payment
		paid    models.Order
		pending notification.Pending
	)
	err = r.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Orders().GetForUpdate(ctx, orderID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFoundf("order %d not found", orderID)
			}
			return apperr.Wrap(err, "failed to load order")
		}

		count, err := tx.Payments().CountByOrder(ctx, orderID)
		if err != nil {
			return apperr.Wrap(err, "failed to check existing payment")
		}
		if count > 0 {
			return ErrAlreadyPaid
		}

		now := r.now().UTC()
		reference, err := r.uniqueReference(ctx, tx, now)
		if err != nil {
			return err
		}

		payment = models.Payment{
			OrderID:   orderID,
			Amount:    req.Amount,
			Kind:      kind,
			Reference: reference,
			PaidAt:    now,
		}
		if err := tx.Payments().Insert(ctx, &payment); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyPaid
			}
			return apperr.Wrap(err, "failed to save payment")
		}

		paid, err = r.orders.MarkPaid(ctx, tx, &pending, orderID, "payment:"+reference)
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}

	fields := map[string]interface{}{
		"order_id":  orderID,
		"reference": payment.Reference,
		"amount":    payment.Amount.String(),
		"kind":      string(payment.Kind),
	}
	if !payment.Amount.Equal(paid.Total) {
		fields["order_total"] = paid.Total.String()
		r.logger.Warn("payment_amount_mismatch", "Payment amount differs from order total", logger.RequestID(ctx), fields)
	}
	r.logger.Info("payment_recorded", fmt.Sprintf("Order %d paid", orderID), logger.RequestID(ctx), fields)
	r.metrics.StatusTransition(string(models.StatusPaid))
	pending.Flush(ctx, r.publisher, r.logger)
	return payment, nil
}

func (r *Reconciler) uniqueReference(ctx context.Context, tx store.Tx, at time.Time) (string, error) {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		reference := r.reference(at)
		taken, err := tx.Payments().ReferenceExists(ctx, reference)
		if err != nil {
			return "", apperr.Wrap(err, "failed to check transaction reference")
		}
		if !taken {
			return reference, nil
		}
		r.logger.Debug("payment_reference_collision", "Transaction reference already used, regenerating", logger.RequestID(ctx), map[string]interface{}{
			"attempt": attempt,
		})
	}
	return "", apperr.Wrap(fmt.Errorf("no free reference after %d attempts", maxReferenceAttempts), "failed to generate transaction reference")
}

// DeletePayment removes a payment and reopens its order as PLACED
func (r *Reconciler) DeletePayment(ctx context.Context, paymentID int64) (models.Order, error) {
	var (
		reopened models.Order
		payment  models.Payment
		pending  notification.Pending
	)
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		payment, err = tx.Payments().Get(ctx, paymentID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("payment %d not found", paymentID)
		}
		if err != nil {
			return apperr.Wrap(err, "failed to load payment")
		}

		if err := tx.Payments().Delete(ctx, paymentID); err != nil {
			return apperr.Wrap(err, "failed to delete payment")
		}
		reopened, err = r.orders.Reopen(ctx, tx, &pending, payment.OrderID, "payment-reversal:"+payment.Reference)
		return err
	})
	if err != nil {
		return models.Order{}, err
	}

	r.logger.Info("payment_deleted", fmt.Sprintf("Payment %s deleted, order %d reopened", payment.Reference, payment.OrderID), logger.RequestID(ctx), map[string]interface{}{
		"payment_id": paymentID,
		"order_id":   payment.OrderID,
	})
	r.metrics.StatusTransition(string(models.StatusPlaced))
	pending.Flush(ctx, r.publisher, r.logger)
	return reopened, nil
}

// IsPaid reports whether exactly one payment exists for the order
func (r *Reconciler) IsPaid(ctx context.Context, orderID int64) (bool, error) {
	var count int
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Orders().Get(ctx, orderID); err != nil {
			return err
		}
		var err error
		count, err = tx.Payments().CountByOrder(ctx, orderID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return false, apperr.NotFoundf("order %d not found", orderID)
	}
	if err != nil {
		return false, apperr.Wrap(err, "failed to check payment")
	}
	return count == 1, nil
}

// Find queries payments by order, reference and date range
func (r *Reconciler) Find(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		payments, err = tx.Payments().Find(ctx, filter)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "failed to query payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}
