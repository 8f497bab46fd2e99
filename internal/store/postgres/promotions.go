package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

type promotionRepo struct{ q pgx.Tx }

func scanPromotion(row pgx.Row) (models.Promotion, error) {
	var p models.Promotion
	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.Value, &p.Active, &p.ExpiresOn)
	return p, translate(err)
}

func (r promotionRepo) Insert(ctx context.Context, promotion *models.Promotion) error {
	err := r.q.QueryRow(ctx, database.InsertPromotionSQL,
		promotion.Name, promotion.Kind, promotion.Value, promotion.Active, promotion.ExpiresOn,
	).Scan(&promotion.ID)
	return translate(err)
}

func (r promotionRepo) Get(ctx context.Context, id int64) (models.Promotion, error) {
	return scanPromotion(r.q.QueryRow(ctx, database.GetPromotionSQL, id))
}

func (r promotionRepo) ListByIDs(ctx context.Context, ids []int64) ([]models.Promotion, error) {
	rows, err := r.q.Query(ctx, database.ListPromotionsByIDsSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promotions []models.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

type orderPromotionRepo struct{ q pgx.Tx }

func (r orderPromotionRepo) Insert(ctx context.Context, link models.OrderPromotion) error {
	_, err := r.q.Exec(ctx, database.InsertOrderPromotionSQL, link.OrderID, link.PromotionID, link.AppliedAt)
	return translate(err)
}

func (r orderPromotionRepo) Exists(ctx context.Context, orderID, promotionID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, database.OrderPromotionExistsSQL, orderID, promotionID).Scan(&exists)
	return exists, err
}

func (r orderPromotionRepo) Delete(ctx context.Context, orderID, promotionID int64) error {
	return affected(r.q.Exec(ctx, database.DeleteOrderPromotionSQL, orderID, promotionID))
}

func (r orderPromotionRepo) DeleteByOrder(ctx context.Context, orderID int64) (int, error) {
	tag, err := r.q.Exec(ctx, database.DeleteOrderPromotionsSQL, orderID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r orderPromotionRepo) ListByOrder(ctx context.Context, orderID int64) ([]models.OrderPromotion, error) {
	rows, err := r.q.Query(ctx, database.ListOrderPromotionsSQL, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.OrderPromotion
	for rows.Next() {
		var link models.OrderPromotion
		if err := rows.Scan(&link.OrderID, &link.PromotionID, &link.AppliedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}
