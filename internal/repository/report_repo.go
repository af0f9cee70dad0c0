package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// reportRepo has no Update: day-end reports are write-once.
type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

func (r *reportRepo) Create(ctx context.Context, rep *model.DayEndReport) error {
	return translate(r.db.WithContext(ctx).Create(rep).Error)
}

func (r *reportRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DayEndReport, error) {
	var rep model.DayEndReport
	if err := r.db.WithContext(ctx).First(&rep, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r *reportRepo) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.DayEndReport, error) {
	var rep model.DayEndReport
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&rep).Error; err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r *reportRepo) List(ctx context.Context, filter ReportFilter) ([]model.DayEndReport, error) {
	var reports []model.DayEndReport
	q := r.db.WithContext(ctx).Model(&model.DayEndReport{})
	if filter.OutletID != nil {
		q = q.Where("outlet_id = ?", *filter.OutletID)
	}
	if filter.OutletIDs != nil {
		q = q.Where("outlet_id IN ?", filter.OutletIDs)
	}
	if filter.RestaurantID != nil {
		q = q.Where("restaurant_id = ?", *filter.RestaurantID)
	}
	if filter.BusinessDate != nil {
		q = q.Where("business_date = ?", filter.BusinessDate.Format("2006-01-02"))
	}
	err := q.Order("generated_at DESC").Find(&reports).Error
	return reports, err
}
