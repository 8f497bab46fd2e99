package models

import "github.com/shopspring/decimal"

// MenuItem is owned by the menu catalog; the core reads price and availability.
type MenuItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

// Role is a staff member's function in the restaurant
type Role string

const (
	RoleServer  Role = "SERVER"
	RoleChef    Role = "CHEF"
	RoleCashier Role = "CASHIER"
	RoleManager Role = "MANAGER"
)

type Staff struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// RecipeItem is the quantity of one ingredient used by one unit of a menu item
type RecipeItem struct {
	MenuItemID   int64           `json:"menu_item_id"`
	IngredientID int64           `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}
