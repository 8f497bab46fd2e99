package memory

import (
	"context"
	"sync"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

// Catalog is an in-memory stand-in for the menu, staff and table CRUD side
type Catalog struct {
	mu      sync.RWMutex
	menu    map[int64]models.MenuItem
	staff   map[int64]models.Staff
	tables  map[int64]bool
	recipes map[int64][]models.RecipeItem
}

func NewCatalog() *Catalog {
	return &Catalog{
		menu:    make(map[int64]models.MenuItem),
		staff:   make(map[int64]models.Staff),
		tables:  make(map[int64]bool),
		recipes: make(map[int64][]models.RecipeItem),
	}
}

func (c *Catalog) PutMenuItem(item models.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menu[item.ID] = item
}

func (c *Catalog) PutStaff(staff models.Staff) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staff[staff.ID] = staff
}

func (c *Catalog) PutTable(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[id] = true
}

// PutRecipe replaces the recipe of a menu item
func (c *Catalog) PutRecipe(menuItemID int64, items ...models.RecipeItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range items {
		items[i].MenuItemID = menuItemID
	}
	c.recipes[menuItemID] = items
}

func (c *Catalog) MenuItem(_ context.Context, id int64) (models.MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.menu[id]
	if !ok {
		return models.MenuItem{}, store.ErrNotFound
	}
	return item, nil
}

func (c *Catalog) Staff(_ context.Context, id int64) (models.Staff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	staff, ok := c.staff[id]
	if !ok {
		return models.Staff{}, store.ErrNotFound
	}
	return staff, nil
}

func (c *Catalog) TableExists(_ context.Context, id int64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[id], nil
}

func (c *Catalog) Recipe(_ context.Context, menuItemID int64) ([]models.RecipeItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.RecipeItem(nil), c.recipes[menuItemID]...), nil
}
