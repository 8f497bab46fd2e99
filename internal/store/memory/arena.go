package memory

import (
	"maps"
	"slices"

	"restaurant-pos/internal/models"
)

type linkKey struct {
	orderID     int64
	promotionID int64
}

// arena holds every record keyed by id. Relations are plain foreign keys.
type arena struct {
	nextID int64

	orders          map[int64]models.Order
	lines           map[int64]models.OrderLine
	statusLog       []models.StatusChange
	ingredients     map[int64]models.Ingredient
	movements       []models.StockMovement
	promotions      map[int64]models.Promotion
	orderPromotions map[linkKey]models.OrderPromotion
	payments        map[int64]models.Payment
}

func newArena() *arena {
	return &arena{
		orders:          make(map[int64]models.Order),
		lines:           make(map[int64]models.OrderLine),
		ingredients:     make(map[int64]models.Ingredient),
		promotions:      make(map[int64]models.Promotion),
		orderPromotions: make(map[linkKey]models.OrderPromotion),
		payments:        make(map[int64]models.Payment),
	}
}

// clone copies the arena so a transaction can work on it and be discarded.
// Records are values, so a shallow map copy is enough.
func (a *arena) clone() *arena {
	return &arena{
		nextID:          a.nextID,
		orders:          maps.Clone(a.orders),
		lines:           maps.Clone(a.lines),
		statusLog:       slices.Clone(a.statusLog),
		ingredients:     maps.Clone(a.ingredients),
		movements:       slices.Clone(a.movements),
		promotions:      maps.Clone(a.promotions),
		orderPromotions: maps.Clone(a.orderPromotions),
		payments:        maps.Clone(a.payments),
	}
}

func (a *arena) id() int64 {
	a.nextID++
	return a.nextID
}

// sortedValues returns map values ordered by key
func sortedValues[V any](m map[int64]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
