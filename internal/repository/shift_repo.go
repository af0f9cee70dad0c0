package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, status *model.ShiftStatus) ([]model.StaffShift, error) {
	var shifts []model.StaffShift
	q := r.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	err := q.Order("started_at ASC").Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) Update(ctx context.Context, s *model.StaffShift) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}
