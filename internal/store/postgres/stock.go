package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

type ingredientRepo struct{ q pgx.Tx }

func scanIngredient(row pgx.Row) (models.Ingredient, error) {
	var i models.Ingredient
	err := row.Scan(&i.ID, &i.Name, &i.Quantity, &i.Unit, &i.AlertThreshold, &i.UpdatedAt)
	return i, translate(err)
}

func (r ingredientRepo) Insert(ctx context.Context, ingredient *models.Ingredient) error {
	err := r.q.QueryRow(ctx, database.InsertIngredientSQL,
		ingredient.Name, ingredient.Quantity, ingredient.Unit, ingredient.AlertThreshold, ingredient.UpdatedAt,
	).Scan(&ingredient.ID)
	return translate(err)
}

func (r ingredientRepo) Get(ctx context.Context, id int64) (models.Ingredient, error) {
	return scanIngredient(r.q.QueryRow(ctx, database.GetIngredientSQL, id))
}

func (r ingredientRepo) GetForUpdate(ctx context.Context, id int64) (models.Ingredient, error) {
	return scanIngredient(r.q.QueryRow(ctx, database.GetIngredientForUpdateSQL, id))
}

func (r ingredientRepo) CompareAndSwapQuantity(ctx context.Context, id int64, expected, next decimal.Decimal) (bool, error) {
	tag, err := r.q.Exec(ctx, database.SwapIngredientQuantitySQL, id, expected, next)
	if err != nil {
		return false, translate(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// tell a vanished row apart from a lost race
	var exists bool
	if err := r.q.QueryRow(ctx, database.IngredientExistsSQL, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}

func (r ingredientRepo) List(ctx context.Context) ([]models.Ingredient, error) {
	rows, err := r.q.Query(ctx, database.ListIngredientsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []models.Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, i)
	}
	return ingredients, rows.Err()
}

type movementRepo struct{ q pgx.Tx }

func (r movementRepo) Append(ctx context.Context, movement *models.StockMovement) error {
	err := r.q.QueryRow(ctx, database.InsertMovementSQL,
		movement.IngredientID, movement.Kind, movement.Quantity, movement.Reason, movement.CreatedAt,
	).Scan(&movement.ID)
	return translate(err)
}

func (r movementRepo) Find(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error) {
	var w where
	if filter.IngredientID != nil {
		w.add("ingredient_id = $%d", *filter.IngredientID)
	}
	if filter.Kind != nil {
		w.add("kind = $%d", *filter.Kind)
	}
	if filter.From != nil {
		w.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("created_at <= $%d", *filter.To)
	}

	rows, err := r.q.Query(ctx, database.FindMovementsSQL+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []models.StockMovement
	for rows.Next() {
		var m models.StockMovement
		if err := rows.Scan(&m.ID, &m.IngredientID, &m.Kind, &m.Quantity, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
