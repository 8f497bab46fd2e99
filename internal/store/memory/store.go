// Package memory is an in-process arena implementation of store.Store.
// Transactions are serialized by a store-wide lock and run against a copy
// of the arena that replaces the live one only on success.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

type Store struct {
	mu   sync.Mutex
	data *arena
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newArena(), now: time.Now}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{a: work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type tx struct {
	a   *arena
	now func() time.Time
}

func (t *tx) Orders() store.OrderRepository                   { return orderRepo{t} }
func (t *tx) Lines() store.LineRepository                     { return lineRepo{t} }
func (t *tx) StatusLog() store.StatusLogRepository            { return statusLogRepo{t} }
func (t *tx) Ingredients() store.IngredientRepository         { return ingredientRepo{t} }
func (t *tx) Movements() store.MovementRepository             { return movementRepo{t} }
func (t *tx) Promotions() store.PromotionRepository           { return promotionRepo{t} }
func (t *tx) OrderPromotions() store.OrderPromotionRepository { return orderPromotionRepo{t} }
func (t *tx) Payments() store.PaymentRepository               { return paymentRepo{t} }

type orderRepo struct{ t *tx }

func (r orderRepo) Insert(_ context.Context, order *models.Order) error {
	order.ID = r.t.a.id()
	stored := *order
	stored.Lines = nil
	r.t.a.orders[order.ID] = stored
	return nil
}

func (r orderRepo) Get(_ context.Context, id int64) (models.Order, error) {
	order, ok := r.t.a.orders[id]
	if !ok {
		return models.Order{}, store.ErrNotFound
	}
	return order, nil
}

// GetForUpdate needs no extra locking: the whole transaction holds the store lock
func (r orderRepo) GetForUpdate(ctx context.Context, id int64) (models.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepo) Update(_ context.Context, order models.Order) error {
	if _, ok := r.t.a.orders[order.ID]; !ok {
		return store.ErrNotFound
	}
	order.Lines = nil
	r.t.a.orders[order.ID] = order
	return nil
}

// Delete removes the order and everything it exclusively owns
func (r orderRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.t.a.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.a.orders, id)
	for lineID, line := range r.t.a.lines {
		if line.OrderID == id {
			delete(r.t.a.lines, lineID)
		}
	}
	for key := range r.t.a.orderPromotions {
		if key.orderID == id {
			delete(r.t.a.orderPromotions, key)
		}
	}
	r.t.a.statusLog = slices.DeleteFunc(r.t.a.statusLog, func(c models.StatusChange) bool {
		return c.OrderID == id
	})
	return nil
}

func (r orderRepo) Find(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	for _, order := range sortedValues(r.t.a.orders) {
		if filter.Matches(order) {
			out = append(out, order)
		}
	}
	return out, nil
}

type lineRepo struct{ t *tx }

func (r lineRepo) Insert(_ context.Context, line *models.OrderLine) error {
	if _, ok := r.t.a.orders[line.OrderID]; !ok {
		return store.ErrNotFound
	}
	line.ID = r.t.a.id()
	r.t.a.lines[line.ID] = *line
	return nil
}

func (r lineRepo) Get(_ context.Context, id int64) (models.OrderLine, error) {
	line, ok := r.t.a.lines[id]
	if !ok {
		return models.OrderLine{}, store.ErrNotFound
	}
	return line, nil
}

func (r lineRepo) UpdateQuantity(_ context.Context, id int64, quantity int) error {
	line, ok := r.t.a.lines[id]
	if !ok {
		return store.ErrNotFound
	}
	line.Quantity = quantity
	r.t.a.lines[id] = line
	return nil
}

func (r lineRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.t.a.lines[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.a.lines, id)
	return nil
}

func (r lineRepo) DeleteByOrder(_ context.Context, orderID int64) error {
	for id, line := range r.t.a.lines {
		if line.OrderID == orderID {
			delete(r.t.a.lines, id)
		}
	}
	return nil
}

func (r lineRepo) ListByOrder(_ context.Context, orderID int64) ([]models.OrderLine, error) {
	out := []models.OrderLine{}
	for _, line := range sortedValues(r.t.a.lines) {
		if line.OrderID == orderID {
			out = append(out, line)
		}
	}
	return out, nil
}

type statusLogRepo struct{ t *tx }

func (r statusLogRepo) Append(_ context.Context, change models.StatusChange) error {
	r.t.a.statusLog = append(r.t.a.statusLog, change)
	return nil
}

func (r statusLogRepo) ListByOrder(_ context.Context, orderID int64) ([]models.StatusChange, error) {
	var out []models.StatusChange
	for _, change := range r.t.a.statusLog {
		if change.OrderID == orderID {
			out = append(out, change)
		}
	}
	return out, nil
}

type ingredientRepo struct{ t *tx }

func (r ingredientRepo) Insert(_ context.Context, ingredient *models.Ingredient) error {
	ingredient.ID = r.t.a.id()
	if ingredient.UpdatedAt.IsZero() {
		ingredient.UpdatedAt = r.t.now().UTC()
	}
	r.t.a.ingredients[ingredient.ID] = *ingredient
	return nil
}

func (r ingredientRepo) Get(_ context.Context, id int64) (models.Ingredient, error) {
	ingredient, ok := r.t.a.ingredients[id]
	if !ok {
		return models.Ingredient{}, store.ErrNotFound
	}
	return ingredient, nil
}

func (r ingredientRepo) GetForUpdate(ctx context.Context, id int64) (models.Ingredient, error) {
	return r.Get(ctx, id)
}

func (r ingredientRepo) CompareAndSwapQuantity(_ context.Context, id int64, expected, next decimal.Decimal) (bool, error) {
	ingredient, ok := r.t.a.ingredients[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if !ingredient.Quantity.Equal(expected) {
		return false, nil
	}
	ingredient.Quantity = next
	ingredient.UpdatedAt = r.t.now().UTC()
	r.t.a.ingredients[id] = ingredient
	return true, nil
}

func (r ingredientRepo) List(_ context.Context) ([]models.Ingredient, error) {
	return sortedValues(r.t.a.ingredients), nil
}

type movementRepo struct{ t *tx }

func (r movementRepo) Append(_ context.Context, movement *models.StockMovement) error {
	if _, ok := r.t.a.ingredients[movement.IngredientID]; !ok {
		return store.ErrNotFound
	}
	movement.ID = r.t.a.id()
	r.t.a.movements = append(r.t.a.movements, *movement)
	return nil
}

func (r movementRepo) Find(_ context.Context, filter models.MovementFilter) ([]models.StockMovement, error) {
	var out []models.StockMovement
	for _, movement := range r.t.a.movements {
		if filter.Matches(movement) {
			out = append(out, movement)
		}
	}
	return out, nil
}

type promotionRepo struct{ t *tx }

func (r promotionRepo) Insert(_ context.Context, promotion *models.Promotion) error {
	promotion.ID = r.t.a.id()
	r.t.a.promotions[promotion.ID] = *promotion
	return nil
}

func (r promotionRepo) Get(_ context.Context, id int64) (models.Promotion, error) {
	promotion, ok := r.t.a.promotions[id]
	if !ok {
		return models.Promotion{}, store.ErrNotFound
	}
	return promotion, nil
}

func (r promotionRepo) ListByIDs(_ context.Context, ids []int64) ([]models.Promotion, error) {
	var out []models.Promotion
	for _, id := range ids {
		if promotion, ok := r.t.a.promotions[id]; ok {
			out = append(out, promotion)
		}
	}
	return out, nil
}

type orderPromotionRepo struct{ t *tx }

func (r orderPromotionRepo) Insert(_ context.Context, link models.OrderPromotion) error {
	key := linkKey{orderID: link.OrderID, promotionID: link.PromotionID}
	if _, ok := r.t.a.orderPromotions[key]; ok {
		return store.ErrConflict
	}
	r.t.a.orderPromotions[key] = link
	return nil
}

func (r orderPromotionRepo) Exists(_ context.Context, orderID, promotionID int64) (bool, error) {
	_, ok := r.t.a.orderPromotions[linkKey{orderID: orderID, promotionID: promotionID}]
	return ok, nil
}

func (r orderPromotionRepo) Delete(_ context.Context, orderID, promotionID int64) error {
	key := linkKey{orderID: orderID, promotionID: promotionID}
	if _, ok := r.t.a.orderPromotions[key]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.a.orderPromotions, key)
	return nil
}

func (r orderPromotionRepo) DeleteByOrder(_ context.Context, orderID int64) (int, error) {
	removed := 0
	for key := range r.t.a.orderPromotions {
		if key.orderID == orderID {
			delete(r.t.a.orderPromotions, key)
			removed++
		}
	}
	return removed, nil
}

func (r orderPromotionRepo) ListByOrder(_ context.Context, orderID int64) ([]models.OrderPromotion, error) {
	var out []models.OrderPromotion
	for key, link := range r.t.a.orderPromotions {
		if key.orderID == orderID {
			out = append(out, link)
		}
	}
	slices.SortFunc(out, func(a, b models.OrderPromotion) int {
		return int(a.PromotionID - b.PromotionID)
	})
	return out, nil
}

type paymentRepo struct{ t *tx }

func (r paymentRepo) Insert(_ context.Context, payment *models.Payment) error {
	for _, existing := range r.t.a.payments {
		if existing.OrderID == payment.OrderID || existing.Reference == payment.Reference {
			return store.ErrConflict
		}
	}
	payment.ID = r.t.a.id()
	r.t.a.payments[payment.ID] = *payment
	return nil
}

func (r paymentRepo) Get(_ context.Context, id int64) (models.Payment, error) {
	payment, ok := r.t.a.payments[id]
	if !ok {
		return models.Payment{}, store.ErrNotFound
	}
	return payment, nil
}

func (r paymentRepo) CountByOrder(_ context.Context, orderID int64) (int, error) {
	count := 0
	for _, payment := range r.t.a.payments {
		if payment.OrderID == orderID {
			count++
		}
	}
	return count, nil
}

func (r paymentRepo) ReferenceExists(_ context.Context, reference string) (bool, error) {
	for _, payment := range r.t.a.payments {
		if payment.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (r paymentRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.t.a.payments[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.t.a.payments, id)
	return nil
}

func (r paymentRepo) Find(_ context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	var out []models.Payment
	for _, payment := range sortedValues(r.t.a.payments) {
		if filter.Matches(payment) {
			out = append(out, payment)
		}
	}
	return out, nil
}
