package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		order := &models.Order{Status: models.StatusPlaced}
		require.NoError(t, tx.Orders().Insert(ctx, order))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		orders, err := tx.Orders().Find(ctx, models.OrderFilter{})
		require.NoError(t, err)
		assert.Empty(t, orders)
		return nil
	}))
}

func TestOrderDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()

	var orderID int64
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		order := &models.Order{Status: models.StatusPlaced}
		require.NoError(t, tx.Orders().Insert(ctx, order))
		orderID = order.ID
		require.NoError(t, tx.Lines().Insert(ctx, &models.OrderLine{OrderID: order.ID, Quantity: 1}))
		require.NoError(t, tx.OrderPromotions().Insert(ctx, models.OrderPromotion{OrderID: order.ID, PromotionID: 99}))
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Orders().Delete(ctx, orderID))
		lines, err := tx.Lines().ListByOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Empty(t, lines)
		exists, err := tx.OrderPromotions().Exists(ctx, orderID, 99)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	}))
}

func TestOrderPromotionUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		link := models.OrderPromotion{OrderID: 1, PromotionID: 2}
		require.NoError(t, tx.OrderPromotions().Insert(ctx, link))
		return tx.OrderPromotions().Insert(ctx, link)
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestCompareAndSwapQuantityUnderContention(t *testing.T) {
	ctx := context.Background()
	s := New()

	var id int64
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		ingredient := &models.Ingredient{Name: "Tomate", Quantity: decimal.NewFromInt(10)}
		require.NoError(t, tx.Ingredients().Insert(ctx, ingredient))
		id = ingredient.ID
		return nil
	}))

	// Each worker withdraws 1 with check-then-act; serialization must keep
	// every decrement.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithTx(ctx, func(tx store.Tx) error {
				ingredient, err := tx.Ingredients().GetForUpdate(ctx, id)
				if err != nil {
					return err
				}
				next := ingredient.Quantity.Sub(decimal.NewFromInt(1))
				ok, err := tx.Ingredients().CompareAndSwapQuantity(ctx, id, ingredient.Quantity, next)
				if err != nil || !ok {
					return errors.New("lost update")
				}
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		ingredient, err := tx.Ingredients().Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, ingredient.Quantity.IsZero(), "got %s", ingredient.Quantity)

		ok, err := tx.Ingredients().CompareAndSwapQuantity(ctx, id, decimal.NewFromInt(5), decimal.NewFromInt(4))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestPaymentInsertRejectsSecondPaymentForOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Payments().Insert(ctx, &models.Payment{OrderID: 1, Reference: "PAY-1"}))
		return tx.Payments().Insert(ctx, &models.Payment{OrderID: 1, Reference: "PAY-2"})
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}
