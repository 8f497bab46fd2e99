package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestCreateOrderRequestValidate(t *testing.T) {
	tests := []struct {
		name     string
		req      CreateOrderRequest
		wantKind OrderKind
		wantErr  bool
	}{
		{"dine in with table", CreateOrderRequest{Kind: "dine_in", TableID: ptr(int64(4)), ServerID: 2}, DineIn, false},
		{"takeout without table", CreateOrderRequest{Kind: "TAKEOUT", ServerID: 2}, Takeout, false},
		{"dine in missing table", CreateOrderRequest{Kind: "DINE_IN", ServerID: 2}, "", true},
		{"takeout with table", CreateOrderRequest{Kind: "TAKEOUT", TableID: ptr(int64(1)), ServerID: 2}, "", true},
		{"missing server", CreateOrderRequest{Kind: "TAKEOUT"}, "", true},
		{"unknown kind", CreateOrderRequest{Kind: "delivery", ServerID: 2}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.Validation, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestAddLineRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AddLineRequest
		wantErr bool
	}{
		{"valid", AddLineRequest{MenuItemID: 1, Quantity: 2, Note: "no onions"}, false},
		{"zero quantity", AddLineRequest{MenuItemID: 1, Quantity: 0}, true},
		{"negative quantity", AddLineRequest{MenuItemID: 1, Quantity: -3}, true},
		{"missing item", AddLineRequest{Quantity: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPromotionExpiredOn(t *testing.T) {
	now := time.Date(2026, 10, 18, 21, 30, 0, 0, time.UTC)

	assert.False(t, Promotion{ExpiresOn: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}.ExpiredOn(now))
	assert.False(t, Promotion{ExpiresOn: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)}.ExpiredOn(now))
	assert.True(t, Promotion{ExpiresOn: time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)}.ExpiredOn(now))
}

func TestPromotionExpiredOnIgnoresLocalZone(t *testing.T) {
	expiresOn := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	// 00:30 on the 18th in UTC+1 is still the 17th in UTC
	east := time.Date(2026, 10, 18, 0, 30, 0, 0, time.FixedZone("WAT", 3600))
	assert.False(t, Promotion{ExpiresOn: expiresOn}.ExpiredOn(east))

	// 20:00 on the 17th in UTC-5 is already the 18th in UTC
	west := time.Date(2026, 10, 17, 20, 0, 0, 0, time.FixedZone("EST", -5*3600))
	assert.True(t, Promotion{ExpiresOn: expiresOn}.ExpiredOn(west))
}

func TestOrderLineAmount(t *testing.T) {
	line := OrderLine{UnitPrice: decimal.RequireFromString("5000"), Quantity: 3}
	assert.True(t, decimal.RequireFromString("15000").Equal(line.Amount()))
}

func TestOrderFilterMatches(t *testing.T) {
	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	order := Order{Status: StatusPlaced, TableID: ptr(int64(3)), ServerID: 9, CreatedAt: created}

	assert.True(t, OrderFilter{}.Matches(order))
	assert.True(t, OrderFilter{Status: ptr(StatusPlaced), TableID: ptr(int64(3))}.Matches(order))
	assert.False(t, OrderFilter{Status: ptr(StatusReady)}.Matches(order))
	assert.False(t, OrderFilter{TableID: ptr(int64(4))}.Matches(order))
	assert.False(t, OrderFilter{From: ptr(created.Add(time.Hour))}.Matches(order))
	assert.True(t, OrderFilter{From: ptr(created.Add(-time.Hour)), To: ptr(created.Add(time.Hour))}.Matches(order))
}

func TestParsers(t *testing.T) {
	status, err := ParseOrderStatus("preparing")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, status)

	_, err = ParseOrderStatus("cooking")
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	kind, err := ParsePaymentKind("mobile_money")
	require.NoError(t, err)
	assert.Equal(t, PaymentMobileMoney, kind)

	_, err = ParseMovementKind("sideways")
	assert.Error(t, err)
}
