package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DenominationInput is one line of a drawer count. Value and count are checked
// against the supported note/coin set by the service, not by tags.
type DenominationInput struct {
	Value decimal.Decimal `json:"value"`
	Count int             `json:"count"`
}

type OpenSessionRequest struct {
	OutletID      uuid.UUID           `json:"outlet_id"      validate:"required"`
	RestaurantID  uuid.UUID           `json:"restaurant_id"  validate:"required"`
	OpeningCash   *decimal.Decimal    `json:"opening_cash"`
	Denominations []DenominationInput `json:"denominations"`
	Notes         *string             `json:"notes"          validate:"omitempty,max=500"`
}

type CloseSessionRequest struct {
	ClosingCash   *decimal.Decimal    `json:"closing_cash"`
	Denominations []DenominationInput `json:"denominations"`
	Notes         *string             `json:"notes" validate:"omitempty,max=500"`
}

// SettlementRequest is pushed by the order subsystem when an order settles,
// a payment is captured or cash is refunded. Amounts are deltas.
type SettlementRequest struct {
	Method      string          `json:"method"       validate:"required,oneof=CASH CARD UPI WALLET BANK_TRANSFER CREDIT OTHER"`
	Amount      decimal.Decimal `json:"amount"       validate:"min=0"`
	OrderTotal  decimal.Decimal `json:"order_total"  validate:"min=0"`
	OrderClosed bool            `json:"order_closed"`
	CashRefund  decimal.Decimal `json:"cash_refund"  validate:"min=0"`
}

type SessionListFilter struct {
	OutletID     string `form:"outlet_id"     validate:"omitempty,uuid"`
	RestaurantID string `form:"restaurant_id" validate:"omitempty,uuid"`
	Status       string `form:"status"        validate:"omitempty,oneof=OPEN CLOSED"`
	// OutletIDs is the token's outlet scope, set by the handler.
	OutletIDs []string `form:"-"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DenominationResponse struct {
	Value  decimal.Decimal `json:"value"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type PaymentSummaryResponse struct {
	Cash         decimal.Decimal `json:"cash"`
	Card         decimal.Decimal `json:"card"`
	UPI          decimal.Decimal `json:"upi"`
	Wallet       decimal.Decimal `json:"wallet"`
	BankTransfer decimal.Decimal `json:"bank_transfer"`
	Credit       decimal.Decimal `json:"credit"`
	Other        decimal.Decimal `json:"other"`
	Total        decimal.Decimal `json:"total"`
}

type SessionResponse struct {
	ID                   string                 `json:"id"`
	SessionNumber        string                 `json:"session_number"`
	OutletID             string                 `json:"outlet_id"`
	RestaurantID         string                 `json:"restaurant_id"`
	BusinessDate         string                 `json:"business_date"`
	Status               string                 `json:"status"`
	OpeningCash          decimal.Decimal        `json:"opening_cash"`
	OpeningDenominations []DenominationResponse `json:"opening_denominations,omitempty"`
	OpenedAt             string                 `json:"opened_at"`
	OpenedBy             string                 `json:"opened_by"`
	OpeningNotes         *string                `json:"opening_notes"`
	TotalOrders          int                    `json:"total_orders"`
	TotalSales           decimal.Decimal        `json:"total_sales"`
	Payments             PaymentSummaryResponse `json:"payments"`
	CashRefunds          decimal.Decimal        `json:"cash_refunds"`
	ExpectedCash         decimal.Decimal        `json:"expected_cash"`
	ClosingCash          *decimal.Decimal       `json:"closing_cash"`
	ClosingDenominations []DenominationResponse `json:"closing_denominations,omitempty"`
	CashVariance         *decimal.Decimal       `json:"cash_variance"`
	CashStatus           *string                `json:"cash_status"`
	ClosedAt             *string                `json:"closed_at"`
	ClosedBy             *string                `json:"closed_by"`
	ClosingNotes         *string                `json:"closing_notes"`
	ReportID             *string                `json:"report_id"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
