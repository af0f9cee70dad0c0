package service

import (
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
)

// outletScope converts a token's outlet scope into a repository filter. No
// scope yields nil (all outlets); a scope of unparseable ids matches nothing.
func outletScope(ids []string) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		if id, err := uuid.Parse(raw); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func toDenominations(in []dto.DenominationInput) []model.Denomination {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Denomination, len(in))
	for i, d := range in {
		out[i] = model.Denomination{Value: d.Value, Count: d.Count}
	}
	return out
}

func toDenominationResponses(in []model.Denomination) []dto.DenominationResponse {
	if len(in) == 0 {
		return nil
	}
	out := make([]dto.DenominationResponse, len(in))
	for i, d := range in {
		out[i] = dto.DenominationResponse{Value: d.Value, Count: d.Count, Amount: d.Amount}
	}
	return out
}

func toPaymentSummary(p model.PaymentMethodSummary) dto.PaymentSummaryResponse {
	return dto.PaymentSummaryResponse{
		Cash:         p.Cash,
		Card:         p.Card,
		UPI:          p.UPI,
		Wallet:       p.Wallet,
		BankTransfer: p.BankTransfer,
		Credit:       p.Credit,
		Other:        p.Other,
		Total:        p.Total(),
	}
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toSessionResponse(s *model.Session) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:                   s.ID.String(),
		SessionNumber:        s.SessionNumber,
		OutletID:             s.OutletID.String(),
		RestaurantID:         s.RestaurantID.String(),
		BusinessDate:         s.BusinessDate.Format("2006-01-02"),
		Status:               string(s.Status),
		OpeningCash:          s.OpeningCash,
		OpeningDenominations: toDenominationResponses(s.OpeningDenominations),
		OpenedAt:             formatTime(s.OpenedAt),
		OpenedBy:             s.OpenedBy,
		OpeningNotes:         s.OpeningNotes,
		TotalOrders:          s.TotalOrders,
		TotalSales:           s.TotalSales,
		Payments:             toPaymentSummary(s.Payments),
		CashRefunds:          s.CashRefunds,
		ExpectedCash:         s.ExpectedCash,
		ClosingCash:          s.ClosingCash,
		ClosingDenominations: toDenominationResponses(s.ClosingDenominations),
		CashVariance:         s.CashVariance,
		ClosedAt:             formatTimePtr(s.ClosedAt),
		ClosedBy:             s.ClosedBy,
		ClosingNotes:         s.ClosingNotes,
	}
	if s.CashStatus != nil {
		status := string(*s.CashStatus)
		resp.CashStatus = &status
	}
	if s.ReportID != nil {
		id := s.ReportID.String()
		resp.ReportID = &id
	}
	return resp
}

func toStaffSummary(s model.StaffShiftSummary) dto.StaffSummaryResponse {
	return dto.StaffSummaryResponse{
		ShiftID:           s.ShiftID.String(),
		StaffID:           s.StaffID.String(),
		StaffName:         s.StaffName,
		Status:            string(s.Status),
		StartedAt:         formatTime(s.StartedAt),
		EndedAt:           formatTimePtr(s.EndedAt),
		TotalOrders:       s.TotalOrders,
		TotalSales:        s.TotalSales,
		CashCollected:     s.CashCollected,
		AverageOrderValue: s.AverageOrderValue,
	}
}

func shiftSummary(s model.StaffShift) model.StaffShiftSummary {
	return model.StaffShiftSummary{
		ShiftID:           s.ID,
		StaffID:           s.StaffID,
		StaffName:         s.StaffName,
		Status:            s.Status,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		TotalOrders:       s.TotalOrders,
		TotalSales:        s.TotalSales,
		CashCollected:     s.CashCollected,
		AverageOrderValue: s.AverageOrderValue,
	}
}

func toReportResponse(r *model.DayEndReport) *dto.DayEndReportResponse {
	staff := make([]dto.StaffSummaryResponse, len(r.StaffSummary))
	for i, s := range r.StaffSummary {
		staff[i] = toStaffSummary(s)
	}
	return &dto.DayEndReportResponse{
		ID:                           r.ID.String(),
		ReportNumber:                 r.ReportNumber,
		SessionID:                    r.SessionID.String(),
		SessionNumber:                r.SessionNumber,
		OutletID:                     r.OutletID.String(),
		RestaurantID:                 r.RestaurantID.String(),
		BusinessDate:                 r.BusinessDate.Format("2006-01-02"),
		OpeningCash:                  r.OpeningCash,
		CashCollected:                r.CashCollected,
		CashRefunds:                  r.CashRefunds,
		ExpectedCash:                 r.ExpectedCash,
		ClosingCash:                  r.ClosingCash,
		CashDifference:               r.CashDifference,
		CashStatus:                   string(r.CashStatus),
		ClosingCashAssumed:           r.ClosingCashAssumed,
		TotalOrders:                  r.TotalOrders,
		TotalSales:                   r.TotalSales,
		TotalTax:                     r.TotalTax,
		TotalDiscount:                r.TotalDiscount,
		ComplimentaryItemsCount:      r.ComplimentaryItemsCount,
		TotalComplimentaryItemsValue: r.TotalComplimentaryItemsValue,
		VoidedBillsCount:             r.VoidedBillsCount,
		TotalVoidedAmount:            r.TotalVoidedAmount,
		CreditBillsCount:             r.CreditBillsCount,
		CreditOutstanding:            r.CreditOutstanding,
		CreditSettled:                r.CreditSettled,
		Payments:                     toPaymentSummary(r.Payments),
		StaffSummary:                 staff,
		SessionOpenedAt:              formatTime(r.SessionOpenedAt),
		SessionClosedAt:              formatTime(r.SessionClosedAt),
		GeneratedBy:                  r.GeneratedBy,
		GeneratedAt:                  formatTime(r.GeneratedAt),
		Notes:                        r.Notes,
	}
}
