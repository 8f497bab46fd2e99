package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(pgx.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), store.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "payments_order_id_key"}
	err := translate(dup)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Contains(t, err.Error(), "payments_order_id_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))

	fk := &pgconn.PgError{Code: "23503"}
	assert.NotErrorIs(t, translate(fk), store.ErrConflict)
}

func TestAffected(t *testing.T) {
	assert.NoError(t, affected(pgconn.NewCommandTag("UPDATE 1"), nil))
	assert.ErrorIs(t, affected(pgconn.NewCommandTag("DELETE 0"), nil), store.ErrNotFound)
	assert.ErrorIs(t, affected(pgconn.CommandTag{}, pgx.ErrNoRows), store.ErrNotFound)
}

func TestWhereBuilder(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	status := models.StatusReady
	w.add("status = $%d", status)
	w.add("table_id = $%d", int64(4))

	assert.Equal(t, " WHERE status = $1 AND table_id = $2", w.String())
	assert.Equal(t, []interface{}{status, int64(4)}, w.args)
}
