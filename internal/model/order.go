package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Orders, items and payments are written by the order subsystem.
// This module only aggregates over them.

type OrderStatus string

const (
	OrderDraft     OrderStatus = "DRAFT"
	OrderBilled    OrderStatus = "BILLED"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ShiftID     *uuid.UUID      `gorm:"type:uuid;index"`
	OutletID    uuid.UUID       `gorm:"type:uuid;not null"`
	OrderNumber string          `gorm:"type:varchar(40);not null"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Tax         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Discount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	IsVoided    bool            `gorm:"not null;default:false"`
	VoidedAt    *time.Time
	CreatedAt   time.Time
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(150);not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	// TaxableAmount is the stored pre-discount line value; when absent the
	// line value is UnitPrice * Quantity.
	TaxableAmount   *decimal.Decimal `gorm:"type:decimal(14,2)"`
	IsComplimentary bool             `gorm:"not null;default:false"`
}

func (OrderItem) TableName() string { return "order_items" }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SessionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ShiftID   *uuid.UUID      `gorm:"type:uuid;index"`
	Method    string          `gorm:"type:varchar(20);not null"`
	Status    PaymentStatus   `gorm:"type:varchar(20);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	// RefundAmount is the part of Amount handed back to the customer.
	RefundAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	// CreditSettled marks a CREDIT payment whose settlement transaction has posted.
	CreditSettled bool `gorm:"not null;default:false"`
	SettledAt     *time.Time
	CreatedAt     time.Time
}

func (Payment) TableName() string { return "payments" }
