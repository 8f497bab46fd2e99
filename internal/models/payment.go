package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/apperr"
)

// PaymentKind represents the payment instrument
type PaymentKind string

const (
	PaymentCash        PaymentKind = "CASH"
	PaymentCard        PaymentKind = "CARD"
	PaymentMobileMoney PaymentKind = "MOBILE_MONEY"
)

func ParsePaymentKind(s string) (PaymentKind, error) {
	switch kind := PaymentKind(strings.ToUpper(strings.TrimSpace(s))); kind {
	case PaymentCash, PaymentCard, PaymentMobileMoney:
		return kind, nil
	default:
		return "", apperr.Validationf("payment kind must be one of: CASH, CARD, MOBILE_MONEY")
	}
}

// Payment settles an order. At most one exists per order.
type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      PaymentKind     `json:"kind"`
	Reference string          `json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
}

// PaymentFilter narrows payment queries; zero fields are ignored
type PaymentFilter struct {
	OrderID   *int64
	Reference string
	From      *time.Time
	To        *time.Time
}

func (f PaymentFilter) Matches(p Payment) bool {
	if f.OrderID != nil && p.OrderID != *f.OrderID {
		return false
	}
	if f.Reference != "" && p.Reference != f.Reference {
		return false
	}
	return inRange(p.PaidAt, f.From, f.To)
}

// PaymentRequest represents the request to settle an order
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Kind   string          `json:"kind"`
}

func (req *PaymentRequest) Validate() (PaymentKind, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return "", err
	}
	return ParsePaymentKind(req.Kind)
}
