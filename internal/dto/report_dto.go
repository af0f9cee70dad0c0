package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// GenerateZReportRequest carries the optional drawer count for the close. When
// neither closing_cash nor denominations is sent the count recorded by an
// earlier standalone close is used.
type GenerateZReportRequest struct {
	Notes         *string             `json:"notes"         validate:"omitempty,max=1000"`
	ClosingCash   *decimal.Decimal    `json:"closing_cash"`
	Denominations []DenominationInput `json:"denominations"`
}

type ReportListFilter struct {
	OutletID     string `form:"outlet_id"     validate:"omitempty,uuid"`
	RestaurantID string `form:"restaurant_id" validate:"omitempty,uuid"`
	Date         string `form:"date"          validate:"omitempty,datetime=2006-01-02"`
	// OutletIDs is the token's outlet scope, set by the handler.
	OutletIDs []string `form:"-"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CashReconciliationResponse struct {
	OpeningCash   decimal.Decimal `json:"opening_cash"`
	CashCollected decimal.Decimal `json:"cash_collected"`
	CashRefunds   decimal.Decimal `json:"cash_refunds"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
}

type StaffSummaryResponse struct {
	ShiftID           string          `json:"shift_id"`
	StaffID           string          `json:"staff_id"`
	StaffName         string          `json:"staff_name"`
	Status            string          `json:"status"`
	StartedAt         string          `json:"started_at"`
	EndedAt           *string         `json:"ended_at"`
	TotalOrders       int             `json:"total_orders"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	CashCollected     decimal.Decimal `json:"cash_collected"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// XReportResponse is the interim snapshot of an OPEN session. Nothing in it is
// persisted.
type XReportResponse struct {
	SessionID      string                     `json:"session_id"`
	SessionNumber  string                     `json:"session_number"`
	OutletID       string                     `json:"outlet_id"`
	BusinessDate   string                     `json:"business_date"`
	OpenedAt       string                     `json:"opened_at"`
	OpenedBy       string                     `json:"opened_by"`
	GeneratedAt    string                     `json:"generated_at"`
	ElapsedMinutes int64                      `json:"elapsed_minutes"`
	TotalOrders    int                        `json:"total_orders"`
	TotalSales     decimal.Decimal            `json:"total_sales"`
	Payments       PaymentSummaryResponse     `json:"payments"`
	Cash           CashReconciliationResponse `json:"cash"`
	ActiveStaff    []StaffSummaryResponse     `json:"active_staff"`
}

type DayEndReportResponse struct {
	ID                           string                 `json:"id"`
	ReportNumber                 string                 `json:"report_number"`
	SessionID                    string                 `json:"session_id"`
	SessionNumber                string                 `json:"session_number"`
	OutletID                     string                 `json:"outlet_id"`
	RestaurantID                 string                 `json:"restaurant_id"`
	BusinessDate                 string                 `json:"business_date"`
	OpeningCash                  decimal.Decimal        `json:"opening_cash"`
	CashCollected                decimal.Decimal        `json:"cash_collected"`
	CashRefunds                  decimal.Decimal        `json:"cash_refunds"`
	ExpectedCash                 decimal.Decimal        `json:"expected_cash"`
	ClosingCash                  decimal.Decimal        `json:"closing_cash"`
	CashDifference               decimal.Decimal        `json:"cash_difference"`
	CashStatus                   string                 `json:"cash_status"`
	ClosingCashAssumed           bool                   `json:"closing_cash_assumed"`
	TotalOrders                  int                    `json:"total_orders"`
	TotalSales                   decimal.Decimal        `json:"total_sales"`
	TotalTax                     decimal.Decimal        `json:"total_tax"`
	TotalDiscount                decimal.Decimal        `json:"total_discount"`
	ComplimentaryItemsCount      int                    `json:"complimentary_items_count"`
	TotalComplimentaryItemsValue decimal.Decimal        `json:"total_complimentary_items_value"`
	VoidedBillsCount             int                    `json:"voided_bills_count"`
	TotalVoidedAmount            decimal.Decimal        `json:"total_voided_amount"`
	CreditBillsCount             int                    `json:"credit_bills_count"`
	CreditOutstanding            decimal.Decimal        `json:"credit_outstanding"`
	CreditSettled                decimal.Decimal        `json:"credit_settled"`
	Payments                     PaymentSummaryResponse `json:"payments"`
	StaffSummary                 []StaffSummaryResponse `json:"staff_summary"`
	SessionOpenedAt              string                 `json:"session_opened_at"`
	SessionClosedAt              string                 `json:"session_closed_at"`
	GeneratedBy                  string                 `json:"generated_by"`
	GeneratedAt                  string                 `json:"generated_at"`
	Notes                        *string                `json:"notes"`
}
