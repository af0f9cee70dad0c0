package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) SumByMethod(ctx context.Context, q PaymentQuery) ([]MethodTotal, error) {
	tx := r.db.WithContext(ctx).Model(&model.Payment{}).Where("status = ?", model.PaymentCompleted)
	if q.SessionID != uuid.Nil {
		tx = tx.Where("session_id = ?", q.SessionID)
	}
	if q.ShiftID != uuid.Nil {
		tx = tx.Where("shift_id = ?", q.ShiftID)
	}

	var rows []MethodTotal
	err := tx.Select(`method,
			COUNT(*) AS count,
			COALESCE(SUM(amount), 0) AS amount,
			COALESCE(SUM(refund_amount), 0) AS refunded`).
		Group("method").
		Order("method").
		Scan(&rows).Error
	return rows, err
}

func (r *paymentRepo) CreditTotals(ctx context.Context, sessionID uuid.UUID) (CreditTotals, error) {
	var row struct {
		Count       int64
		Outstanding decimal.Decimal
		Settled     decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select(`COUNT(*) AS count,
			COALESCE(SUM(CASE WHEN credit_settled THEN 0 ELSE amount END), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN credit_settled THEN amount ELSE 0 END), 0) AS settled`).
		Where("session_id = ? AND method = ? AND status = ?", sessionID, model.MethodCredit, model.PaymentCompleted).
		Scan(&row).Error
	if err != nil {
		return CreditTotals{}, err
	}
	return CreditTotals{Count: row.Count, Outstanding: row.Outstanding, Settled: row.Settled}, nil
}
