package service

import (
	"context"

	"restopos/internal/cash"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Orders in these statuses count towards running totals.
var settledStatuses = []model.OrderStatus{model.OrderBilled, model.OrderCompleted}

// Orders in these statuses block a close.
var pendingStatuses = []model.OrderStatus{model.OrderDraft, model.OrderBilled}

// Totals are the running figures of a session or shift, recomputed from the
// order and payment records.
type Totals struct {
	TotalOrders int
	TotalSales  decimal.Decimal
	Payments    model.PaymentMethodSummary
	CashRefunds decimal.Decimal
}

// DayEndFigures are the frozen numbers of a Z-Report.
type DayEndFigures struct {
	Sales         repository.OrderTotals
	Voided        repository.OrderTotals
	Complimentary repository.ItemTotals
	Credit        repository.CreditTotals
	// Payments holds settled credit only in its Credit bucket.
	Payments      model.PaymentMethodSummary
	CashCollected decimal.Decimal
	CashRefunds   decimal.Decimal
}

// FinancialAggregator recomputes totals from source records. Every method is
// idempotent.
type FinancialAggregator struct{}

func (FinancialAggregator) totals(ctx context.Context, r repository.Repos, sessionID, shiftID uuid.UUID) (Totals, error) {
	notVoided := false
	orders, err := r.Orders.SumOrders(ctx, repository.OrderQuery{
		SessionID: sessionID,
		ShiftID:   shiftID,
		Statuses:  settledStatuses,
		Voided:    &notVoided,
	})
	if err != nil {
		return Totals{}, err
	}
	methods, err := r.Payments.SumByMethod(ctx, repository.PaymentQuery{SessionID: sessionID, ShiftID: shiftID})
	if err != nil {
		return Totals{}, err
	}

	t := Totals{TotalOrders: int(orders.Count), TotalSales: orders.Total, CashRefunds: decimal.Zero}
	for _, m := range methods {
		t.Payments.Add(m.Method, m.Amount)
		if m.Method == model.MethodCash {
			t.CashRefunds = t.CashRefunds.Add(m.Refunded)
		}
	}
	return t, nil
}

func (a FinancialAggregator) SessionTotals(ctx context.Context, r repository.Repos, sessionID uuid.UUID) (Totals, error) {
	return a.totals(ctx, r, sessionID, uuid.Nil)
}

func (a FinancialAggregator) ShiftTotals(ctx context.Context, r repository.Repos, shiftID uuid.UUID) (Totals, error) {
	return a.totals(ctx, r, uuid.Nil, shiftID)
}

// ApplySessionTotals overwrites the running totals and re-derives expected cash.
func ApplySessionTotals(s *model.Session, t Totals) {
	s.TotalOrders = t.TotalOrders
	s.TotalSales = t.TotalSales
	s.Payments = t.Payments
	s.CashRefunds = t.CashRefunds
	s.ExpectedCash = cash.ExpectedCash(s.OpeningCash, t.Payments.Cash, t.CashRefunds)
}

// RecalculateSession recomputes and persists the session's running totals.
func (a FinancialAggregator) RecalculateSession(ctx context.Context, r repository.Repos, s *model.Session) error {
	t, err := a.SessionTotals(ctx, r, s.ID)
	if err != nil {
		return err
	}
	ApplySessionTotals(s, t)
	return r.Sessions.Update(ctx, s)
}

func averageOrderValue(sales decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return sales.Div(decimal.NewFromInt(int64(orders))).Round(2)
}

func applyShiftTotals(s *model.StaffShift, t Totals) {
	s.TotalOrders = t.TotalOrders
	s.TotalSales = t.TotalSales
	s.Payments = t.Payments
	s.CashCollected = t.Payments.Cash
	s.AverageOrderValue = averageOrderValue(t.TotalSales, t.TotalOrders)
}

// RecalculateShift recomputes and persists one shift's totals.
func (a FinancialAggregator) RecalculateShift(ctx context.Context, r repository.Repos, s *model.StaffShift) error {
	t, err := a.ShiftTotals(ctx, r, s.ID)
	if err != nil {
		return err
	}
	applyShiftTotals(s, t)
	return r.Shifts.Update(ctx, s)
}

// PendingOrders counts the session's non-voided DRAFT and BILLED orders.
func (FinancialAggregator) PendingOrders(ctx context.Context, r repository.Repos, sessionID uuid.UUID) (int64, error) {
	notVoided := false
	t, err := r.Orders.SumOrders(ctx, repository.OrderQuery{
		SessionID: sessionID,
		Statuses:  pendingStatuses,
		Voided:    &notVoided,
	})
	return t.Count, err
}

// DayEndFigures aggregates the final figures of a session. Voided bills are
// kept out of the sales totals and reported on their own; complimentary lines
// are a memo figure; credit payments only reach the per-method summary once
// settled.
func (FinancialAggregator) DayEndFigures(ctx context.Context, r repository.Repos, sessionID uuid.UUID) (DayEndFigures, error) {
	var f DayEndFigures
	var err error

	notVoided, voided := false, true
	sales := repository.OrderQuery{SessionID: sessionID, Statuses: settledStatuses, Voided: &notVoided}
	if f.Sales, err = r.Orders.SumOrders(ctx, sales); err != nil {
		return f, err
	}
	if f.Voided, err = r.Orders.SumOrders(ctx, repository.OrderQuery{SessionID: sessionID, Voided: &voided}); err != nil {
		return f, err
	}

	completed := repository.OrderQuery{SessionID: sessionID, Statuses: []model.OrderStatus{model.OrderCompleted}, Voided: &notVoided}
	ids, err := r.Orders.ListOrderIDs(ctx, completed)
	if err != nil {
		return f, err
	}
	if f.Complimentary, err = r.Orders.ComplimentaryTotals(ctx, ids); err != nil {
		return f, err
	}

	if f.Credit, err = r.Payments.CreditTotals(ctx, sessionID); err != nil {
		return f, err
	}
	methods, err := r.Payments.SumByMethod(ctx, repository.PaymentQuery{SessionID: sessionID})
	if err != nil {
		return f, err
	}
	f.CashRefunds = decimal.Zero
	for _, m := range methods {
		switch m.Method {
		case model.MethodCredit:
			// Outstanding principal is reported separately.
		case model.MethodCash:
			f.Payments.Add(m.Method, m.Amount)
			f.CashRefunds = f.CashRefunds.Add(m.Refunded)
		default:
			f.Payments.Add(m.Method, m.Amount)
		}
	}
	f.Payments.Credit = f.Credit.Settled
	f.CashCollected = f.Payments.Cash
	return f, nil
}
