package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

type paymentRepo struct{ q pgx.Tx }

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Kind, &p.Reference, &p.PaidAt)
	return p, translate(err)
}

// Insert surfaces the unique constraints on order_id and reference as
// store.ErrConflict
func (r paymentRepo) Insert(ctx context.Context, payment *models.Payment) error {
	err := r.q.QueryRow(ctx, database.InsertPaymentSQL,
		payment.OrderID, payment.Amount, payment.Kind, payment.Reference, payment.PaidAt,
	).Scan(&payment.ID)
	return translate(err)
}

func (r paymentRepo) Get(ctx context.Context, id int64) (models.Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, database.GetPaymentSQL, id))
}

func (r paymentRepo) CountByOrder(ctx context.Context, orderID int64) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, database.CountPaymentsByOrderSQL, orderID).Scan(&count)
	return count, err
}

func (r paymentRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, database.PaymentReferenceExistsSQL, reference).Scan(&exists)
	return exists, err
}

func (r paymentRepo) Delete(ctx context.Context, id int64) error {
	return affected(r.q.Exec(ctx, database.DeletePaymentSQL, id))
}

func (r paymentRepo) Find(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	var w where
	if filter.OrderID != nil {
		w.add("order_id = $%d", *filter.OrderID)
	}
	if filter.Reference != "" {
		w.add("reference = $%d", filter.Reference)
	}
	if filter.From != nil {
		w.add("paid_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		w.add("paid_at <= $%d", *filter.To)
	}

	rows, err := r.q.Query(ctx, database.FindPaymentsSQL+w.String()+" ORDER BY id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
