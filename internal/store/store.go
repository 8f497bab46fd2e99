// Package store declares the persistence contract of the order core.
// Every lifecycle operation runs inside one Tx: read, validate, mutate,
// persist. Implementations serialize concurrent transactions touching the
// same order or ingredient.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Store runs units of work
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction
type Tx interface {
	Orders() OrderRepository
	Lines() LineRepository
	StatusLog() StatusLogRepository
	Ingredients() IngredientRepository
	Movements() MovementRepository
	Promotions() PromotionRepository
	OrderPromotions() OrderPromotionRepository
	Payments() PaymentRepository
}

type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id int64) (models.Order, error)
	// GetForUpdate loads the order and locks it until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (models.Order, error)
	Update(ctx context.Context, order models.Order) error
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
}

type LineRepository interface {
	Insert(ctx context.Context, line *models.OrderLine) error
	Get(ctx context.Context, id int64) (models.OrderLine, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) error
	Delete(ctx context.Context, id int64) error
	DeleteByOrder(ctx context.Context, orderID int64) error
	ListByOrder(ctx context.Context, orderID int64) ([]models.OrderLine, error)
}

type StatusLogRepository interface {
	Append(ctx context.Context, change models.StatusChange) error
	ListByOrder(ctx context.Context, orderID int64) ([]models.StatusChange, error)
}

type IngredientRepository interface {
	Insert(ctx context.Context, ingredient *models.Ingredient) error
	Get(ctx context.Context, id int64) (models.Ingredient, error)
	GetForUpdate(ctx context.Context, id int64) (models.Ingredient, error)
	// CompareAndSwapQuantity sets the quantity to next only if it still equals
	// expected. It reports false when another writer got there first.
	CompareAndSwapQuantity(ctx context.Context, id int64, expected, next decimal.Decimal) (bool, error)
	List(ctx context.Context) ([]models.Ingredient, error)
}

type MovementRepository interface {
	Append(ctx context.Context, movement *models.StockMovement) error
	Find(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error)
}

type PromotionRepository interface {
	Insert(ctx context.Context, promotion *models.Promotion) error
	Get(ctx context.Context, id int64) (models.Promotion, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Promotion, error)
}

type OrderPromotionRepository interface {
	// Insert returns ErrConflict when the pair already exists
	Insert(ctx context.Context, link models.OrderPromotion) error
	Exists(ctx context.Context, orderID, promotionID int64) (bool, error)
	Delete(ctx context.Context, orderID, promotionID int64) error
	DeleteByOrder(ctx context.Context, orderID int64) (int, error)
	ListByOrder(ctx context.Context, orderID int64) ([]models.OrderPromotion, error)
}

type PaymentRepository interface {
	// Insert returns ErrConflict when the order already has a payment or the
	// reference is taken
	Insert(ctx context.Context, payment *models.Payment) error
	Get(ctx context.Context, id int64) (models.Payment, error)
	CountByOrder(ctx context.Context, orderID int64) (int, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
}

// Catalog is the read-only view of collaborators owned by the CRUD side of
// the system: menu, staff, tables and recipes.
type Catalog interface {
	MenuItem(ctx context.Context, id int64) (models.MenuItem, error)
	Staff(ctx context.Context, id int64) (models.Staff, error)
	TableExists(ctx context.Context, id int64) (bool, error)
	Recipe(ctx context.Context, menuItemID int64) ([]models.RecipeItem, error)
}
