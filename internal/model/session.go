package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// Session is one cash drawer period for one outlet.
// At most one OPEN session exists per outlet (partial unique index ux_pos_sessions_outlet_open).
// Once CLOSED the status and the financial snapshot are never written again.
type Session struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionNumber string        `gorm:"type:varchar(40);not null"`
	OutletID      uuid.UUID     `gorm:"type:uuid;not null;index"`
	RestaurantID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	BusinessDate  time.Time     `gorm:"type:date;not null"`
	Status        SessionStatus `gorm:"type:varchar(10);not null;default:'OPEN'"`

	OpeningCash          decimal.Decimal                   `gorm:"type:decimal(14,2);not null"`
	OpeningDenominations datatypes.JSONSlice[Denomination] `gorm:"type:jsonb"`
	OpenedAt             time.Time
	OpenedBy             string `gorm:"type:varchar(100);not null"`
	OpeningNotes         *string

	// Running totals, recomputed from orders/payments on every recalculation.
	TotalOrders int
	TotalSales  decimal.Decimal      `gorm:"type:decimal(14,2);not null;default:0"`
	Payments    PaymentMethodSummary `gorm:"embedded;embeddedPrefix:pay_"`
	CashRefunds decimal.Decimal      `gorm:"type:decimal(14,2);not null;default:0"`
	// ExpectedCash = OpeningCash + Payments.Cash - CashRefunds
	ExpectedCash decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	ClosingCash          *decimal.Decimal                  `gorm:"type:decimal(14,2)"`
	ClosingDenominations datatypes.JSONSlice[Denomination] `gorm:"type:jsonb"`
	CashVariance         *decimal.Decimal                  `gorm:"type:decimal(14,2)"`
	CashStatus           *CashStatus                       `gorm:"type:varchar(10)"`
	ClosedAt             *time.Time
	ClosedBy             *string `gorm:"type:varchar(100)"`
	ClosingNotes         *string

	ReportID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Session) TableName() string { return "pos_sessions" }

func (s *Session) IsOpen() bool { return s.Status == SessionOpen }
