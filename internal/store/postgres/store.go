// Package postgres implements store.Store on PostgreSQL with pgx. Orders
// and ingredients are locked with SELECT ... FOR UPDATE for the lifetime of
// the transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-pos/internal/store"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn in a read-committed transaction, committing only if fn
// returns nil
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(ptx pgx.Tx) error {
		return fn(&tx{q: ptx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type tx struct {
	q pgx.Tx
}

func (t *tx) Orders() store.OrderRepository                   { return orderRepo{t.q} }
func (t *tx) Lines() store.LineRepository                     { return lineRepo{t.q} }
func (t *tx) StatusLog() store.StatusLogRepository            { return statusLogRepo{t.q} }
func (t *tx) Ingredients() store.IngredientRepository         { return ingredientRepo{t.q} }
func (t *tx) Movements() store.MovementRepository             { return movementRepo{t.q} }
func (t *tx) Promotions() store.PromotionRepository           { return promotionRepo{t.q} }
func (t *tx) OrderPromotions() store.OrderPromotionRepository { return orderPromotionRepo{t.q} }
func (t *tx) Payments() store.PaymentRepository               { return paymentRepo{t.q} }

// translate maps driver errors onto the store sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// affected turns a zero row count into ErrNotFound
func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// where accumulates numbered filter conditions
type where struct {
	clauses []string
	args    []interface{}
}

// add appends a condition; format holds a single %d for the placeholder index
func (w *where) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
