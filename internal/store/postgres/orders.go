package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

type orderRepo struct{ q pgx.Tx }

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.Kind, &o.TableID, &o.ServerID, &o.Status,
		&o.Subtotal, &o.Discount, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	return o, translate(err)
}

func (r orderRepo) Insert(ctx context.Context, order *models.Order) error {
	err := r.q.QueryRow(ctx, database.InsertOrderSQL,
		order.Kind, order.TableID, order.ServerID, order.Status,
		order.Subtotal, order.Discount, order.Total, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	return translate(err)
}

func (r orderRepo) Get(ctx context.Context, id int64) (models.Order, error) {
	return scanOrder(r.q.QueryRow(ctx, database.GetOrderSQL, id))
}

func (r orderRepo) GetForUpdate(ctx context.Context, id int64) (models.Order, error) {
	return scanOrder(r.q.QueryRow(ctx, database.GetOrderForUpdateSQL, id))
}

func (r orderRepo) Update(ctx context.Context, order models.Order) error {
	return affected(r.q.Exec(ctx, database.UpdateOrderSQL,
		order.ID, order.Status, order.Subtotal, order.Discount, order.Total, order.UpdatedAt))
}

// Delete relies on ON DELETE CASCADE for lines, promotions and status log
func (r orderRepo) Delete(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, database.DeleteOrderSQL, id))
}

func (r orderRepo) Find(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	var w where
	if filter.Status != nil {
		w.add("status = $%d", *filter.Status)
	}
	if filter.TableID != nil {
		w.add("table_id = $%d", *filter.TableID)
	}
	if filter.ServerID != nil {
		w.add("server_id = $%d", *filter.ServerID)
	}
	if filter.From != nil {
		w.add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("created_at <= $%d", *filter.To)
	}

	rows, err := r.q.Query(ctx, database.FindOrdersSQL+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type lineRepo struct{ q pgx.Tx }

func scanLine(row pgx.Row) (models.OrderLine, error) {
	var l models.OrderLine
	err := row.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Quantity, &l.UnitPrice, &l.Note, &l.CreatedAt)
	return l, translate(err)
}

func (r lineRepo) Insert(ctx context.Context, line *models.OrderLine) error {
	err := r.q.QueryRow(ctx, database.InsertLineSQL,
		line.OrderID, line.MenuItemID, line.Quantity, line.UnitPrice, line.Note, line.CreatedAt,
	).Scan(&line.ID)
	return translate(err)
}

func (r lineRepo) Get(ctx context.Context, id int64) (models.OrderLine, error) {
	return scanLine(r.q.QueryRow(ctx, database.GetLineSQL, id))
}

func (r lineRepo) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	return affected(r.q.Exec(ctx, database.UpdateLineQuantitySQL, id, quantity))
}

func (r lineRepo) Delete(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, database.DeleteLineSQL, id))
}

func (r lineRepo) DeleteByOrder(ctx context.Context, orderID int64) error {
	_, err := r.q.Exec(ctx, database.DeleteLinesByOrderSQL, orderID)
	return err
}

func (r lineRepo) ListByOrder(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := r.q.Query(ctx, database.ListLinesByOrderSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.OrderLine{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type statusLogRepo struct{ q pgx.Tx }

func (r statusLogRepo) Append(ctx context.Context, change models.StatusChange) error {
	_, err := r.q.Exec(ctx, database.InsertStatusChangeSQL,
		change.OrderID, change.From, change.To, change.ChangedBy, change.ChangedAt)
	return translate(err)
}

func (r statusLogRepo) ListByOrder(ctx context.Context, orderID int64) ([]models.StatusChange, error) {
	rows, err := r.q.Query(ctx, database.ListStatusChangesSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		if err := rows.Scan(&c.OrderID, &c.From, &c.To, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
