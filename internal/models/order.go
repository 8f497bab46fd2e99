package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/apperr"
)

// OrderKind represents how the order is served
type OrderKind string

const (
	DineIn  OrderKind = "DINE_IN"
	Takeout OrderKind = "TAKEOUT"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "PLACED"
	StatusPreparing OrderStatus = "PREPARING"
	StatusReady     OrderStatus = "READY"
	StatusPaid      OrderStatus = "PAID"
	StatusCancelled OrderStatus = "CANCELLED"
)

const maxNoteLength = 255

// ParseOrderStatus accepts a status name in any case
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case StatusPlaced, StatusPreparing, StatusReady, StatusPaid, StatusCancelled:
		return status, nil
	default:
		return "", apperr.Validationf("unknown order status %q", s)
	}
}

// ParseOrderKind accepts an order kind name in any case
func ParseOrderKind(s string) (OrderKind, error) {
	switch kind := OrderKind(strings.ToUpper(strings.TrimSpace(s))); kind {
	case DineIn, Takeout:
		return kind, nil
	default:
		return "", apperr.Validationf("order kind must be one of: DINE_IN, TAKEOUT")
	}
}

// Order is a customer's tab. Subtotal, Discount and Total are derived from
// the current lines and applied promotions and are never set directly.
type Order struct {
	ID        int64           `json:"id"`
	Kind      OrderKind       `json:"kind"`
	TableID   *int64          `json:"table_id,omitempty"`
	ServerID  int64           `json:"server_id"`
	Status    OrderStatus     `json:"status"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Lines     []OrderLine     `json:"lines"`
}

// OrderLine is one menu item entry of an order. UnitPrice is captured when
// the line is added and never changes afterwards.
type OrderLine struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	MenuItemID int64           `json:"menu_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Amount returns unit price times quantity
func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// StatusChange is one entry of an order's status log
type StatusChange struct {
	OrderID   int64       `json:"order_id"`
	From      OrderStatus `json:"from,omitempty"`
	To        OrderStatus `json:"to"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
}

// OrderFilter narrows order queries; nil fields are ignored
type OrderFilter struct {
	Status   *OrderStatus
	TableID  *int64
	ServerID *int64
	From     *time.Time
	To       *time.Time
}

// Matches reports whether o satisfies every set criterion
func (f OrderFilter) Matches(o Order) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.TableID != nil && (o.TableID == nil || *o.TableID != *f.TableID) {
		return false
	}
	if f.ServerID != nil && o.ServerID != *f.ServerID {
		return false
	}
	return inRange(o.CreatedAt, f.From, f.To)
}

// CreateOrderRequest represents the request to open a new order
type CreateOrderRequest struct {
	Kind     string `json:"kind"`
	TableID  *int64 `json:"table_id,omitempty"`
	ServerID int64  `json:"server_id"`
}

// Validate checks the request shape; references are resolved by the service
func (req *CreateOrderRequest) Validate() (OrderKind, error) {
	kind, err := ParseOrderKind(req.Kind)
	if err != nil {
		return "", err
	}
	if req.ServerID <= 0 {
		return "", apperr.Validationf("server_id is required")
	}
	switch kind {
	case DineIn:
		if req.TableID == nil || *req.TableID <= 0 {
			return "", apperr.Validationf("table_id is required for dine-in orders")
		}
	case Takeout:
		if req.TableID != nil {
			return "", apperr.Validationf("table_id must not be present for takeout orders")
		}
	}
	return kind, nil
}

// AddLineRequest represents the request to append a line to an order
type AddLineRequest struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"note,omitempty"`
}

func (req *AddLineRequest) Validate() error {
	if req.MenuItemID <= 0 {
		return apperr.Validationf("menu_item_id is required")
	}
	if err := ValidateQuantity(req.Quantity); err != nil {
		return err
	}
	if len(req.Note) > maxNoteLength {
		return apperr.Validationf("note must not exceed %d characters", maxNoteLength)
	}
	return nil
}

// ValidateQuantity rejects line quantities below one
func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return apperr.Validationf("quantity must be at least 1, got %d", quantity)
	}
	return nil
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func (s OrderStatus) String() string { return string(s) }
