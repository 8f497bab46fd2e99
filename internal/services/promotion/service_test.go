package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification"
	"restaurant-pos/internal/services/notification/notificationtest"
	"restaurant-pos/internal/services/pricing"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/store/memory"
)

var today = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc     *Service
	store   *memory.Store
	rec     *notificationtest.Recorder
	orderID int64
	promos  map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	rec := &notificationtest.Recorder{}
	f := &fixture{store: st, rec: rec, promos: map[string]int64{}}

	promotions := map[string]models.Promotion{
		"ten":      {Name: "Ten percent", Kind: models.PromotionPercentage, Value: dec("10"), Active: true, ExpiresOn: today.AddDate(0, 1, 0)},
		"today":    {Name: "Last day", Kind: models.PromotionFixed, Value: dec("500"), Active: true, ExpiresOn: today.Truncate(24 * time.Hour)},
		"inactive": {Name: "Paused", Kind: models.PromotionFixed, Value: dec("500"), Active: false, ExpiresOn: today.AddDate(0, 1, 0)},
		"expired":  {Name: "Gone", Kind: models.PromotionFixed, Value: dec("500"), Active: true, ExpiresOn: today.AddDate(0, 0, -1)},
	}

	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		order := &models.Order{Kind: models.Takeout, ServerID: 1, Status: models.StatusPlaced}
		if err := tx.Orders().Insert(ctx, order); err != nil {
			return err
		}
		f.orderID = order.ID
		line := &models.OrderLine{OrderID: order.ID, MenuItemID: 1, Quantity: 2, UnitPrice: dec("5000")}
		if err := tx.Lines().Insert(ctx, line); err != nil {
			return err
		}
		for key, promo := range promotions {
			promo := promo
			if err := tx.Promotions().Insert(ctx, &promo); err != nil {
				return err
			}
			f.promos[key] = promo.ID
		}
		return nil
	}))

	f.svc = NewService(st, pricing.NewEngine(dec("0.1925")), rec, logger.Discard())
	f.svc.now = func() time.Time { return today }
	return f
}

func TestApply(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Apply(context.Background(), f.orderID, f.promos["ten"])
	require.NoError(t, err)
	assert.True(t, dec("10000").Equal(order.Subtotal))
	assert.True(t, dec("1000").Equal(order.Discount))
	assert.True(t, dec("10732.5").Equal(order.Total))

	events := f.rec.OnTopic(notification.TopicOrderUpdates(order))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOrderUpdated, events[0].Type)

	applied, err := f.svc.IsApplied(context.Background(), f.orderID, f.promos["ten"])
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestApplyChecks(t *testing.T) {
	tests := []struct {
		name    string
		order   func(f *fixture) int64
		promo   func(f *fixture) int64
		kind    apperr.Kind
		message string
	}{
		{
			name:  "unknown promotion",
			order: func(f *fixture) int64 { return f.orderID },
			promo: func(f *fixture) int64 { return 999 },
			kind:  apperr.NotFound, message: "not found",
		},
		{
			name:  "unknown order",
			order: func(f *fixture) int64 { return 999 },
			promo: func(f *fixture) int64 { return f.promos["ten"] },
			kind:  apperr.NotFound, message: "not found",
		},
		{
			name:  "inactive",
			order: func(f *fixture) int64 { return f.orderID },
			promo: func(f *fixture) int64 { return f.promos["inactive"] },
			kind:  apperr.InvalidState, message: "promotion is not active",
		},
		{
			name:  "expired yesterday",
			order: func(f *fixture) int64 { return f.orderID },
			promo: func(f *fixture) int64 { return f.promos["expired"] },
			kind:  apperr.InvalidState, message: "promotion has expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Apply(context.Background(), tt.order(f), tt.promo(f))
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Contains(t, err.Error(), tt.message)
			assert.Empty(t, f.rec.Events())
		})
	}
}

func TestApplyExpiringToday(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Apply(context.Background(), f.orderID, f.promos["today"])
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(order.Discount))
}

func TestApplyTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, f.orderID, f.promos["ten"])
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, f.orderID, f.promos["ten"])
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, apperr.InvalidState, apperr.KindOf(err))
}

func TestApplyToClosedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.WithTx(ctx, func(tx store.Tx) error {
		order, err := tx.Orders().Get(ctx, f.orderID)
		if err != nil {
			return err
		}
		order.Status = models.StatusCancelled
		return tx.Orders().Update(ctx, order)
	}))

	_, err := f.svc.Apply(ctx, f.orderID, f.promos["ten"])
	assert.True(t, apperr.IsKind(err, apperr.InvalidState))
}

func TestPaidOrderKeepsItsDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, f.orderID, f.promos["ten"])
	require.NoError(t, err)

	require.NoError(t, f.store.WithTx(ctx, func(tx store.Tx) error {
		order, err := tx.Orders().Get(ctx, f.orderID)
		if err != nil {
			return err
		}
		order.Status = models.StatusPaid
		return tx.Orders().Update(ctx, order)
	}))
	f.rec.Reset()

	_, err = f.svc.Remove(ctx, f.orderID, f.promos["ten"])
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidState))

	_, err = f.svc.RemoveAll(ctx, f.orderID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.InvalidState))

	applied, err := f.svc.IsApplied(ctx, f.orderID, f.promos["ten"])
	require.NoError(t, err)
	assert.True(t, applied)

	var order models.Order
	require.NoError(t, f.store.WithTx(ctx, func(tx store.Tx) error {
		order, err = tx.Orders().Get(ctx, f.orderID)
		return err
	}))
	assert.Equal(t, models.StatusPaid, order.Status)
	assert.True(t, dec("10732.5").Equal(order.Total))
	assert.Empty(t, f.rec.Events())
}

func TestRemoveAndRemoveAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, f.orderID, f.promos["ten"])
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.orderID, f.promos["today"])
	require.NoError(t, err)

	applied, err := f.svc.Applied(ctx, f.orderID)
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	order, err := f.svc.Remove(ctx, f.orderID, f.promos["ten"])
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(order.Discount))

	_, err = f.svc.Remove(ctx, f.orderID, f.promos["ten"])
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	order, err = f.svc.RemoveAll(ctx, f.orderID)
	require.NoError(t, err)
	assert.True(t, order.Discount.IsZero())
	assert.True(t, dec("11925").Equal(order.Total))

	applied, err = f.svc.Applied(ctx, f.orderID)
	require.NoError(t, err)
	assert.Empty(t, applied)

	// the pair can be applied again once removed
	_, err = f.svc.Apply(ctx, f.orderID, f.promos["ten"])
	assert.NoError(t, err)
}
