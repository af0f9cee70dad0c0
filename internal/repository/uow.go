package repository

import (
	"context"

	"gorm.io/gorm"
)

type gormUnitOfWork struct{ db *gorm.DB }

// NewUnitOfWork returns a UnitOfWork backed by GORM transactions.
func NewUnitOfWork(db *gorm.DB) UnitOfWork { return &gormUnitOfWork{db: db} }

func reposFor(db *gorm.DB, inTx bool) Repos {
	return Repos{
		Sessions: &sessionRepo{db: db, forUpdate: inTx},
		Reports:  NewReportRepository(db),
		Orders:   NewOrderRepository(db),
		Payments: NewPaymentRepository(db),
		Shifts:   NewShiftRepository(db),
	}
}

func (u *gormUnitOfWork) Repos() Repos { return reposFor(u.db, false) }

// WithinTx runs fn inside one database transaction bound to ctx; cancelling
// ctx before commit rolls the transaction back.
func (u *gormUnitOfWork) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx, true))
	})
}

func (u *gormUnitOfWork) Ping(ctx context.Context) error {
	sqlDB, err := u.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
