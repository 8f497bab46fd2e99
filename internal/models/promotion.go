package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromotionKind selects how Value is applied
type PromotionKind string

const (
	PromotionPercentage PromotionKind = "PERCENTAGE"
	PromotionFixed      PromotionKind = "FIXED"
)

// Promotion is a named discount rule with activation and expiry controls
type Promotion struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Kind      PromotionKind   `json:"kind"`
	Value     decimal.Decimal `json:"value"`
	Active    bool            `json:"active"`
	ExpiresOn time.Time       `json:"expires_on"`
}

// ExpiredOn reports whether the expiry date lies strictly before the
// calendar day of now. A promotion expiring today is still valid. Days are
// UTC days, matching how DATE columns are read back.
func (p Promotion) ExpiredOn(now time.Time) bool {
	ey, em, ed := p.ExpiresOn.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return expiry.Before(today)
}

// OrderPromotion marks a promotion as currently applied to an order
type OrderPromotion struct {
	OrderID     int64     `json:"order_id"`
	PromotionID int64     `json:"promotion_id"`
	AppliedAt   time.Time `json:"applied_at"`
}
