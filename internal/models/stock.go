package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/apperr"
)

// Ingredient is a tracked stock item. Quantity never drops below zero.
type Ingredient struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MovementKind is the direction of a stock movement
type MovementKind string

const (
	MovementIn  MovementKind = "IN"
	MovementOut MovementKind = "OUT"
)

// ParseMovementKind accepts IN/OUT in any case
func ParseMovementKind(s string) (MovementKind, error) {
	switch kind := MovementKind(strings.ToUpper(strings.TrimSpace(s))); kind {
	case MovementIn, MovementOut:
		return kind, nil
	default:
		return "", apperr.Validationf("movement kind must be one of: IN, OUT")
	}
}

// StockMovement is an append-only ledger entry
type StockMovement struct {
	ID           int64           `json:"id"`
	IngredientID int64           `json:"ingredient_id"`
	Kind         MovementKind    `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MovementFilter narrows movement queries; nil fields are ignored
type MovementFilter struct {
	IngredientID *int64
	Kind         *MovementKind
	From         *time.Time
	To           *time.Time
}

func (f MovementFilter) Matches(m StockMovement) bool {
	if f.IngredientID != nil && m.IngredientID != *f.IngredientID {
		return false
	}
	if f.Kind != nil && m.Kind != *f.Kind {
		return false
	}
	return inRange(m.CreatedAt, f.From, f.To)
}

// AlertLevel names a stock alert severity
type AlertLevel string

const (
	// AlertLow is raised when quantity falls to or below the threshold
	AlertLow AlertLevel = "FAIBLE"
	// AlertOut is raised when quantity reaches exactly zero
	AlertOut AlertLevel = "RUPTURE"
)

// StockAlert is published on the stock-alerts topic
type StockAlert struct {
	IngredientID int64           `json:"ingredient_id"`
	Name         string          `json:"name"`
	Level        AlertLevel      `json:"level"`
	Quantity     decimal.Decimal `json:"quantity"`
	Threshold    decimal.Decimal `json:"threshold"`
	Unit         string          `json:"unit"`
	RaisedAt     time.Time       `json:"raised_at"`
}

// StockRequest carries an add or withdraw amount
type StockRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

func (req *StockRequest) Validate() error {
	return ValidateAmount(req.Amount)
}

// ValidateAmount rejects zero and negative amounts
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validationf("amount must be greater than 0, got %s", amount)
	}
	return nil
}
