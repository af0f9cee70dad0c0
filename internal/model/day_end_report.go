package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DayEndReport is the Z-Report: one immutable closing record per session.
// SessionID carries a unique index; the row is written once inside the close
// transaction and never updated.
type DayEndReport struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReportNumber  string    `gorm:"type:varchar(50);not null"`
	SessionID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_day_end_reports_session"`
	SessionNumber string    `gorm:"type:varchar(40);not null"`
	OutletID      uuid.UUID `gorm:"type:uuid;not null;index"`
	RestaurantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	BusinessDate  time.Time `gorm:"type:date;not null;index"`

	OpeningCash    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CashCollected  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CashRefunds    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ExpectedCash   decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ClosingCash    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CashDifference decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CashStatus     CashStatus      `gorm:"type:varchar(10);not null"`
	// ClosingCashAssumed is set when no physical count was supplied and the
	// closing cash was taken to be the expected cash.
	ClosingCashAssumed bool `gorm:"not null;default:false"`

	TotalOrders   int
	TotalSales    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	ComplimentaryItemsCount      int
	TotalComplimentaryItemsValue decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	VoidedBillsCount  int
	TotalVoidedAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	CreditBillsCount  int
	CreditOutstanding decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreditSettled     decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	// Payments.Credit holds settled credit only.
	Payments     PaymentMethodSummary                   `gorm:"embedded;embeddedPrefix:pay_"`
	StaffSummary datatypes.JSONSlice[StaffShiftSummary] `gorm:"type:jsonb"`

	SessionOpenedAt time.Time
	SessionClosedAt time.Time
	GeneratedBy     string `gorm:"type:varchar(100);not null"`
	GeneratedAt     time.Time
	Notes           *string

	CreatedAt time.Time
}

func (DayEndReport) TableName() string { return "day_end_reports" }

// StaffShiftSummary is the frozen per-operator line of a Z-Report.
type StaffShiftSummary struct {
	ShiftID           uuid.UUID       `json:"shift_id"`
	StaffID           uuid.UUID       `json:"staff_id"`
	StaffName         string          `json:"staff_name"`
	Status            ShiftStatus     `json:"status"`
	StartedAt         time.Time       `json:"started_at"`
	EndedAt           *time.Time      `json:"ended_at"`
	TotalOrders       int             `json:"total_orders"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	CashCollected     decimal.Decimal `json:"cash_collected"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}
