package repository

import (
	"context"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepo struct {
	db *gorm.DB
	// forUpdate row-locks sessions read inside a transaction.
	forUpdate bool
}

func (r *sessionRepo) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var s model.Session
	if err := r.query(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByOutlet(ctx context.Context, outletID uuid.UUID) (*model.Session, error) {
	var s model.Session
	err := r.query(ctx).Where("outlet_id = ? AND status = ?", outletID, model.SessionOpen).First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindLatestByOutlet(ctx context.Context, outletID uuid.UUID) (*model.Session, error) {
	var s model.Session
	err := r.query(ctx).Where("outlet_id = ?", outletID).Order("opened_at DESC").First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) CountByOutletAndDate(ctx context.Context, outletID uuid.UUID, businessDate time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("outlet_id = ? AND business_date = ?", outletID, businessDate.Format("2006-01-02")).
		Count(&n).Error
	return n, err
}

func (r *sessionRepo) Update(ctx context.Context, s *model.Session) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.Session, int64, error) {
	var sessions []model.Session
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Session{})
	if filter.OutletID != nil {
		q = q.Where("outlet_id = ?", *filter.OutletID)
	}
	if filter.OutletIDs != nil {
		q = q.Where("outlet_id IN ?", filter.OutletIDs)
	}
	if filter.RestaurantID != nil {
		q = q.Where("restaurant_id = ?", *filter.RestaurantID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("opened_at DESC").Offset(offset).Limit(filter.Limit).Find(&sessions).Error
	return sessions, total, err
}
