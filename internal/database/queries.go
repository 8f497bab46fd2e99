package database

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	InsertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Order queries
const (
	orderColumns = `id, kind, table_id, server_id, status, subtotal, discount, total, created_at, updated_at`

	InsertOrderSQL = `
		INSERT INTO orders (kind, table_id, server_id, status, subtotal, discount, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	GetOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	GetOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	UpdateOrderSQL = `
		UPDATE orders
		SET status = $2, subtotal = $3, discount = $4, total = $5, updated_at = $6
		WHERE id = $1`

	DeleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	// FindOrdersSQL is completed with a WHERE clause built from the filter
	FindOrdersSQL = `SELECT ` + orderColumns + ` FROM orders`
)

// Order line queries
const (
	lineColumns = `id, order_id, menu_item_id, quantity, unit_price, note, created_at`

	InsertLineSQL = `
		INSERT INTO order_lines (order_id, menu_item_id, quantity, unit_price, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	GetLineSQL = `SELECT ` + lineColumns + ` FROM order_lines WHERE id = $1`

	UpdateLineQuantitySQL = `UPDATE order_lines SET quantity = $2 WHERE id = $1`

	DeleteLineSQL = `DELETE FROM order_lines WHERE id = $1`

	DeleteLinesByOrderSQL = `DELETE FROM order_lines WHERE order_id = $1`

	ListLinesByOrderSQL = `SELECT ` + lineColumns + ` FROM order_lines WHERE order_id = $1 ORDER BY id`
)

// Status log queries
const (
	InsertStatusChangeSQL = `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)`

	ListStatusChangesSQL = `
		SELECT order_id, COALESCE(from_status, ''), to_status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY id ASC`
)

// Ingredient and stock movement queries
const (
	ingredientColumns = `id, name, quantity, unit, alert_threshold, updated_at`

	InsertIngredientSQL = `
		INSERT INTO ingredients (name, quantity, unit, alert_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	GetIngredientSQL = `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1`

	GetIngredientForUpdateSQL = `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1 FOR UPDATE`

	// SwapIngredientQuantitySQL only matches while the quantity is unchanged
	SwapIngredientQuantitySQL = `
		UPDATE ingredients SET quantity = $3, updated_at = NOW()
		WHERE id = $1 AND quantity = $2`

	IngredientExistsSQL = `SELECT EXISTS (SELECT 1 FROM ingredients WHERE id = $1)`

	ListIngredientsSQL = `SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY id`

	InsertMovementSQL = `
		INSERT INTO stock_movements (ingredient_id, kind, quantity, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	FindMovementsSQL = `SELECT id, ingredient_id, kind, quantity, reason, created_at FROM stock_movements`
)

// Promotion queries
const (
	promotionColumns = `id, name, kind, value, active, expires_on`

	InsertPromotionSQL = `
		INSERT INTO promotions (name, kind, value, active, expires_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	GetPromotionSQL = `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	ListPromotionsByIDsSQL = `SELECT ` + promotionColumns + ` FROM promotions WHERE id = ANY($1) ORDER BY id`

	InsertOrderPromotionSQL = `
		INSERT INTO order_promotions (order_id, promotion_id, applied_at)
		VALUES ($1, $2, $3)`

	OrderPromotionExistsSQL = `
		SELECT EXISTS (SELECT 1 FROM order_promotions WHERE order_id = $1 AND promotion_id = $2)`

	DeleteOrderPromotionSQL = `DELETE FROM order_promotions WHERE order_id = $1 AND promotion_id = $2`

	DeleteOrderPromotionsSQL = `DELETE FROM order_promotions WHERE order_id = $1`

	ListOrderPromotionsSQL = `
		SELECT order_id, promotion_id, applied_at
		FROM order_promotions
		WHERE order_id = $1
		ORDER BY promotion_id`
)

// Payment queries
const (
	paymentColumns = `id, order_id, amount, kind, reference, paid_at`

	InsertPaymentSQL = `
		INSERT INTO payments (order_id, amount, kind, reference, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	GetPaymentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	CountPaymentsByOrderSQL = `SELECT COUNT(*) FROM payments WHERE order_id = $1`

	PaymentReferenceExistsSQL = `SELECT EXISTS (SELECT 1 FROM payments WHERE reference = $1)`

	DeletePaymentSQL = `DELETE FROM payments WHERE id = $1`

	FindPaymentsSQL = `SELECT ` + paymentColumns + ` FROM payments`
)

// Catalog queries
const (
	GetMenuItemSQL = `SELECT id, name, price, available FROM menu_items WHERE id = $1`

	GetStaffSQL = `SELECT id, name, role FROM staff WHERE id = $1`

	TableExistsSQL = `SELECT EXISTS (SELECT 1 FROM restaurant_tables WHERE id = $1)`

	ListRecipeSQL = `
		SELECT menu_item_id, ingredient_id, quantity
		FROM recipe_items
		WHERE menu_item_id = $1
		ORDER BY ingredient_id`
)
