package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

// Catalog reads menu, staff, tables and recipes outside of any order
// transaction
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) MenuItem(ctx context.Context, id int64) (models.MenuItem, error) {
	var item models.MenuItem
	err := c.pool.QueryRow(ctx, database.GetMenuItemSQL, id).Scan(&item.ID, &item.Name, &item.Price, &item.Available)
	return item, translate(err)
}

func (c *Catalog) Staff(ctx context.Context, id int64) (models.Staff, error) {
	var staff models.Staff
	err := c.pool.QueryRow(ctx, database.GetStaffSQL, id).Scan(&staff.ID, &staff.Name, &staff.Role)
	return staff, translate(err)
}

func (c *Catalog) TableExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx, database.TableExistsSQL, id).Scan(&exists)
	return exists, err
}

func (c *Catalog) Recipe(ctx context.Context, menuItemID int64) ([]models.RecipeItem, error) {
	rows, err := c.pool.Query(ctx, database.ListRecipeSQL, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipe []models.RecipeItem
	for rows.Next() {
		var item models.RecipeItem
		if err := rows.Scan(&item.MenuItemID, &item.IngredientID, &item.Quantity); err != nil {
			return nil, err
		}
		recipe = append(recipe, item)
	}
	return recipe, rows.Err()
}
