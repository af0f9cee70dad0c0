package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftActive ShiftStatus = "ACTIVE"
	ShiftClosed ShiftStatus = "CLOSED"
)

// StaffShift is owned by the staff subsystem. The day-end close only
// recalculates and force-closes shifts still ACTIVE under the session.
type StaffShift struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID   `gorm:"type:uuid;not null;index"`
	OutletID  uuid.UUID   `gorm:"type:uuid;not null"`
	StaffID   uuid.UUID   `gorm:"type:uuid;not null"`
	StaffName string      `gorm:"type:varchar(100);not null"`
	Status    ShiftStatus `gorm:"type:varchar(10);not null;default:'ACTIVE'"`
	StartedAt time.Time
	EndedAt   *time.Time

	TotalOrders       int
	TotalSales        decimal.Decimal      `gorm:"type:decimal(14,2);not null;default:0"`
	Payments          PaymentMethodSummary `gorm:"embedded;embeddedPrefix:pay_"`
	CashCollected     decimal.Decimal      `gorm:"type:decimal(14,2);not null;default:0"`
	AverageOrderValue decimal.Decimal      `gorm:"type:decimal(14,2);not null;default:0"`

	UpdatedAt time.Time
}

func (StaffShift) TableName() string { return "staff_shifts" }
