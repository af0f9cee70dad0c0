package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) scoped(ctx context.Context, q OrderQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Order{})
	if q.SessionID != uuid.Nil {
		tx = tx.Where("session_id = ?", q.SessionID)
	}
	if q.ShiftID != uuid.Nil {
		tx = tx.Where("shift_id = ?", q.ShiftID)
	}
	if len(q.Statuses) > 0 {
		tx = tx.Where("status IN ?", q.Statuses)
	}
	if q.Voided != nil {
		tx = tx.Where("is_voided = ?", *q.Voided)
	}
	return tx
}

func (r *orderRepo) SumOrders(ctx context.Context, q OrderQuery) (OrderTotals, error) {
	var row struct {
		Count    int64
		Total    decimal.Decimal
		Tax      decimal.Decimal
		Discount decimal.Decimal
	}
	err := r.scoped(ctx, q).
		Select(`COUNT(*) AS count,
			COALESCE(SUM(total), 0) AS total,
			COALESCE(SUM(tax), 0) AS tax,
			COALESCE(SUM(discount), 0) AS discount`).
		Scan(&row).Error
	if err != nil {
		return OrderTotals{}, err
	}
	return OrderTotals{Count: row.Count, Total: row.Total, Tax: row.Tax, Discount: row.Discount}, nil
}

func (r *orderRepo) ListOrderIDs(ctx context.Context, q OrderQuery) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.scoped(ctx, q).Pluck("id", &ids).Error
	return ids, err
}

// ComplimentaryTotals sums complimentary lines of the given orders. The line
// value prefers the stored taxable amount and falls back to unit price x quantity.
func (r *orderRepo) ComplimentaryTotals(ctx context.Context, orderIDs []uuid.UUID) (ItemTotals, error) {
	if len(orderIDs) == 0 {
		return ItemTotals{Value: decimal.Zero}, nil
	}
	var row struct {
		Quantity int64
		Value    decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Select(`COALESCE(SUM(quantity), 0) AS quantity,
			COALESCE(SUM(CASE WHEN taxable_amount IS NOT NULL AND taxable_amount > 0
				THEN taxable_amount ELSE unit_price * quantity END), 0) AS value`).
		Where("order_id IN ? AND is_complimentary = ?", orderIDs, true).
		Scan(&row).Error
	if err != nil {
		return ItemTotals{}, err
	}
	return ItemTotals{Quantity: row.Quantity, Value: row.Value}, nil
}
