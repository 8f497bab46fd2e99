package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/store/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestCompute(t *testing.T) {
	engine := NewEngine(dec("0.1925"))

	tests := []struct {
		name         string
		lines        []models.OrderLine
		promotions   []models.Promotion
		wantSubtotal string
		wantDiscount string
		wantTotal    string
	}{
		{
			name:         "no lines",
			wantSubtotal: "0", wantDiscount: "0", wantTotal: "0",
		},
		{
			name:         "one line quantity two",
			lines:        []models.OrderLine{{UnitPrice: dec("5000"), Quantity: 2}},
			wantSubtotal: "10000", wantDiscount: "0", wantTotal: "11925",
		},
		{
			name:         "one line quantity three",
			lines:        []models.OrderLine{{UnitPrice: dec("5000"), Quantity: 3}},
			wantSubtotal: "15000", wantDiscount: "0", wantTotal: "17887.5",
		},
		{
			name: "cents do not drift",
			lines: []models.OrderLine{
				{UnitPrice: dec("0.10"), Quantity: 1},
				{UnitPrice: dec("0.20"), Quantity: 1},
			},
			wantSubtotal: "0.30", wantDiscount: "0", wantTotal: "0.357750",
		},
		{
			name:         "percentage promotion before tax",
			lines:        []models.OrderLine{{UnitPrice: dec("5000"), Quantity: 2}},
			promotions:   []models.Promotion{{Kind: models.PromotionPercentage, Value: dec("10")}},
			wantSubtotal: "10000", wantDiscount: "1000", wantTotal: "10732.5",
		},
		{
			name:         "fixed promotion capped at subtotal",
			lines:        []models.OrderLine{{UnitPrice: dec("500"), Quantity: 1}},
			promotions:   []models.Promotion{{Kind: models.PromotionFixed, Value: dec("800")}},
			wantSubtotal: "500", wantDiscount: "500", wantTotal: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Compute(tt.lines, tt.promotions)
			assertDec(t, tt.wantSubtotal, got.Subtotal)
			assertDec(t, tt.wantDiscount, got.Discount)
			assertDec(t, tt.wantTotal, got.Total)
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	engine := NewEngine(dec("0.1925"))
	lines := []models.OrderLine{{UnitPrice: dec("1250.5"), Quantity: 3}, {UnitPrice: dec("99.99"), Quantity: 7}}

	first := engine.Compute(lines, nil)
	second := engine.Compute(lines, nil)
	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Total.Equal(first.Subtotal.Add(first.Subtotal.Mul(engine.TaxRate()))))
}

func TestRecalculatePersistsTotals(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	engine := NewEngine(dec("0.1925"))

	var orderID int64
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		order := &models.Order{Status: models.StatusPlaced}
		require.NoError(t, tx.Orders().Insert(ctx, order))
		orderID = order.ID
		require.NoError(t, tx.Lines().Insert(ctx, &models.OrderLine{OrderID: order.ID, UnitPrice: dec("5000"), Quantity: 2}))

		promo := &models.Promotion{Kind: models.PromotionFixed, Value: dec("1000"), Active: true}
		require.NoError(t, tx.Promotions().Insert(ctx, promo))
		require.NoError(t, tx.OrderPromotions().Insert(ctx, models.OrderPromotion{OrderID: order.ID, PromotionID: promo.ID}))

		return engine.Recalculate(ctx, tx, order)
	}))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		order, err := tx.Orders().Get(ctx, orderID)
		require.NoError(t, err)
		assertDec(t, "10000", order.Subtotal)
		assertDec(t, "1000", order.Discount)
		assertDec(t, "10732.5", order.Total)
		return nil
	}))
}
