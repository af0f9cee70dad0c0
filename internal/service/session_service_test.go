package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Open ──────────────────────────────────────────────────────────────────────

func TestOpen_CreatesSessionWithZeroedTotals(t *testing.T) {
	f := newFixture(t)
	resp, err := f.sessions.Open(context.Background(), "cashier", dto.OpenSessionRequest{
		OutletID:     f.outlet,
		RestaurantID: f.restaurant,
		Denominations: []dto.DenominationInput{
			{Value: dec(500), Count: 10},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "SES-2026-10-16-001", resp.SessionNumber)
	assert.Equal(t, "OPEN", resp.Status)
	assert.Equal(t, "2026-10-16", resp.BusinessDate)
	assertDec(t, "5000.00", resp.OpeningCash)
	assertDec(t, "5000.00", resp.ExpectedCash)
	assertDec(t, "0.00", resp.TotalSales)
	assert.Equal(t, 0, resp.TotalOrders)
	require.Len(t, resp.OpeningDenominations, 1)
	assertDec(t, "5000.00", resp.OpeningDenominations[0].Amount)
}

func TestOpen_BusinessDateFollowsTimezone(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC) // 00:30 IST next day
	f.open(t, 1000)

	resp, err := f.sessions.GetActive(context.Background(), f.outlet)
	require.NoError(t, err)
	assert.Equal(t, "SES-2026-10-17-001", resp.SessionNumber)
}

func TestOpen_SequenceIncrementsWithinDay(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, 1000)
	_, err := f.sessions.Close(context.Background(), first, "cashier", dto.CloseSessionRequest{ClosingCash: decPtr(1000)})
	require.NoError(t, err)
	f.generate(t, dto.GenerateZReportRequest{})

	f.now = f.now.Add(time.Hour)
	second := f.open(t, 2000)
	assert.Equal(t, "SES-2026-10-16-002", f.session(t, second).SessionNumber)
}

func TestOpen_BlockedUntilClosedSessionIsReported(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, 1000)
	f.sale(first, model.MethodCash, 400)
	_, err := f.sessions.Close(context.Background(), first, "cashier", dto.CloseSessionRequest{ClosingCash: decPtr(1400)})
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, err = f.sessions.Open(context.Background(), "cashier", dto.OpenSessionRequest{
		OutletID:     f.outlet,
		RestaurantID: f.restaurant,
		OpeningCash:  decPtr(500),
	})
	assertKind(t, apierror.KindPrecondition, err)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SES-2026-10-16-001", apiErr.Context["session_number"])

	rep := f.generate(t, dto.GenerateZReportRequest{})
	assert.Equal(t, "Z-SES-2026-10-16-001", rep.ReportNumber)
	assert.Equal(t, rep.ID, f.session(t, first).ReportID.String())

	second := f.open(t, 500)
	assert.Equal(t, "SES-2026-10-16-002", f.session(t, second).SessionNumber)
}

func TestOpen_RequiresCashOrDenominations(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Open(context.Background(), "cashier", dto.OpenSessionRequest{OutletID: f.outlet, RestaurantID: f.restaurant})
	assertKind(t, apierror.KindPrecondition, err)
}

func TestOpen_DenominationMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Open(context.Background(), "cashier", dto.OpenSessionRequest{
		OutletID:      f.outlet,
		RestaurantID:  f.restaurant,
		OpeningCash:   decPtr(5000),
		Denominations: []dto.DenominationInput{{Value: dec(500), Count: 9}},
	})
	assertKind(t, apierror.KindPrecondition, err)

	_, err = f.sessions.GetActive(context.Background(), f.outlet)
	assertKind(t, apierror.KindNotFound, err)
}

func TestOpen_WhileOpen_ConflictNamesBlockingSession(t *testing.T) {
	f := newFixture(t)
	f.open(t, 1000)

	_, err := f.sessions.Open(context.Background(), "cashier", dto.OpenSessionRequest{
		OutletID:     f.outlet,
		RestaurantID: f.restaurant,
		OpeningCash:  decPtr(500),
	})
	assertKind(t, apierror.KindConflict, err)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SES-2026-10-16-001", apiErr.Context["session_number"])
}

func TestOpen_ConcurrentAttempts_OnlyOneSucceeds(t *testing.T) {
	for _, withLocker := range []bool{true, false} {
		f := newFixture(t)
		svc := f.sessions
		if !withLocker {
			svc = NewSessionService(f.store, nil, Options{Now: func() time.Time { return f.now }})
		}

		const attempts = 20
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Open(context.Background(), "cashier", dto.OpenSessionRequest{
					OutletID:     f.outlet,
					RestaurantID: f.restaurant,
					OpeningCash:  decPtr(1000),
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, apierror.Is(err, apierror.KindConflict), err.Error())
		}
		assert.Equal(t, 1, succeeded)

		list, err := svc.List(context.Background(), dto.SessionListFilter{OutletID: f.outlet.String(), Status: "OPEN"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), list.Total)
	}
}

// ── Close ─────────────────────────────────────────────────────────────────────

func TestClose_ReconcilesAgainstRecomputedTotals(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 5000)
	f.sale(id, model.MethodCash, 1200)
	f.sale(id, model.MethodCard, 800)

	resp, err := f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{ClosingCash: decPtr(6250)})
	require.NoError(t, err)

	assert.Equal(t, "CLOSED", resp.Status)
	assert.Equal(t, 2, resp.TotalOrders)
	assertDec(t, "2000.00", resp.TotalSales)
	assertDec(t, "6200.00", resp.ExpectedCash)
	assertDec(t, "50.00", *resp.CashVariance)
	assert.Equal(t, "EXCESS", *resp.CashStatus)
	assert.Equal(t, "manager", *resp.ClosedBy)
	assert.Nil(t, resp.ReportID)
}

func TestClose_BlockedByUnsettledOrders(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 1000)
	f.order(id, model.OrderDraft, 100)
	f.order(id, model.OrderBilled, 200)
	f.order(id, model.OrderBilled, 300, voided())

	_, err := f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{ClosingCash: decPtr(1000)})
	assertKind(t, apierror.KindPrecondition, err)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int64(2), apiErr.Context["pending_orders"])

	assert.Equal(t, model.SessionOpen, f.session(t, id).Status)
}

func TestClose_RequiresCount(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 1000)
	_, err := f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{})
	assertKind(t, apierror.KindPrecondition, err)
}

func TestClose_AlreadyClosed(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 1000)
	_, err := f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{ClosingCash: decPtr(1000)})
	require.NoError(t, err)

	_, err = f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{ClosingCash: decPtr(900)})
	assertKind(t, apierror.KindConflict, err)
	assertDec(t, "1000.00", *f.session(t, id).ClosingCash)
}

func TestClose_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Close(context.Background(), uuid.New(), "manager", dto.CloseSessionRequest{ClosingCash: decPtr(1)})
	assertKind(t, apierror.KindNotFound, err)
}

// ── Running totals ────────────────────────────────────────────────────────────

func TestRecalculate_ExpectedCashInvariant(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 2000)
	o := f.sale(id, model.MethodCash, 700)
	f.store.PutPayment(model.Payment{
		OrderID: o.ID, SessionID: id, Method: model.MethodCash, Status: model.PaymentCompleted,
		Amount: dec(300), RefundAmount: dec(120),
	})
	f.sale(id, "GIFT_CARD", 90)
	f.store.PutPayment(model.Payment{OrderID: o.ID, SessionID: id, Method: model.MethodCash, Status: model.PaymentPending, Amount: dec(999)})

	resp, err := f.sessions.Recalculate(context.Background(), id)
	require.NoError(t, err)

	assertDec(t, "1000.00", resp.Payments.Cash)
	assertDec(t, "90.00", resp.Payments.Other)
	assertDec(t, "120.00", resp.CashRefunds)
	assertDec(t, "2880.00", resp.ExpectedCash)
	assert.True(t, resp.ExpectedCash.Equal(resp.OpeningCash.Add(resp.Payments.Cash).Sub(resp.CashRefunds)))

	again, err := f.sessions.Recalculate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, resp.ExpectedCash.String(), again.ExpectedCash.String())
}

func TestApplySettlement_IncrementsAndRecalculateSelfHeals(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 1000)

	resp, err := f.sessions.ApplySettlement(context.Background(), id, dto.SettlementRequest{
		Method: model.MethodCash, Amount: dec(400), OrderTotal: dec(400), OrderClosed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TotalOrders)
	assertDec(t, "1400.00", resp.ExpectedCash)

	// The increment was never backed by an order record; a recompute drops it.
	resp, err = f.sessions.Recalculate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalOrders)
	assertDec(t, "1000.00", resp.ExpectedCash)
}

func TestApplySettlement_ClosedSessionRejected(t *testing.T) {
	f := newFixture(t)
	id := f.open(t, 1000)
	_, err := f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{ClosingCash: decPtr(1000)})
	require.NoError(t, err)

	_, err = f.sessions.ApplySettlement(context.Background(), id, dto.SettlementRequest{Method: model.MethodCard, Amount: dec(10)})
	assertKind(t, apierror.KindConflict, err)
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func TestGetActive_NoSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.GetActive(context.Background(), f.outlet)
	assertKind(t, apierror.KindNotFound, err)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		id := f.open(t, 100)
		_, err := f.sessions.Close(context.Background(), id, "manager", dto.CloseSessionRequest{ClosingCash: decPtr(100)})
		require.NoError(t, err)
		f.generate(t, dto.GenerateZReportRequest{})
		f.now = f.now.Add(time.Hour)
	}
	f.open(t, 100)

	resp, err := f.sessions.List(context.Background(), dto.SessionListFilter{OutletID: f.outlet.String(), Status: "CLOSED", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "SES-2026-10-16-003", resp.Data[0].SessionNumber)

	other, err := f.sessions.List(context.Background(), dto.SessionListFilter{OutletID: uuid.NewString(), Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, other.Data)
}
