package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(outlet uuid.UUID, number string) *model.Session {
	return &model.Session{
		SessionNumber: number,
		OutletID:      outlet,
		RestaurantID:  uuid.New(),
		BusinessDate:  time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		Status:        model.SessionOpen,
		OpeningCash:   decimal.NewFromInt(1000),
		OpenedAt:      time.Now(),
		OpenedBy:      "cashier",
	}
}

// ── Transactions ──────────────────────────────────────────────────────────────

func TestMemoryStore_WithinTx_CommitsOnSuccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := openSession(uuid.New(), "SES-2026-10-16-001")

	err := store.WithinTx(ctx, func(r Repos) error { return r.Sessions.Create(ctx, s) })
	require.NoError(t, err)

	got, err := store.Repos().Sessions.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.SessionNumber, got.SessionNumber)
}

func TestMemoryStore_WithinTx_RollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := openSession(uuid.New(), "SES-2026-10-16-001")
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(r Repos) error {
		require.NoError(t, r.Sessions.Create(ctx, s))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Repos().Sessions.FindByID(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_WithinTx_CancelledContextRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	s := openSession(uuid.New(), "SES-2026-10-16-001")

	err := store.WithinTx(ctx, func(r Repos) error {
		require.NoError(t, r.Sessions.Create(ctx, s))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Repos().Sessions.FindByID(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_FaultFailsNamedOperation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Fault = func(op string) error {
		if op == "sessions.create" {
			return errors.New("disk full")
		}
		return nil
	}
	err := store.Repos().Sessions.Create(ctx, openSession(uuid.New(), "SES-2026-10-16-001"))
	assert.EqualError(t, err, "disk full")
}

// ── Uniqueness ────────────────────────────────────────────────────────────────

func TestMemoryStore_SecondOpenSessionPerOutlet_Duplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	outlet := uuid.New()

	require.NoError(t, store.Repos().Sessions.Create(ctx, openSession(outlet, "SES-2026-10-16-001")))
	err := store.Repos().Sessions.Create(ctx, openSession(outlet, "SES-2026-10-16-002"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// A different outlet is unaffected.
	assert.NoError(t, store.Repos().Sessions.Create(ctx, openSession(uuid.New(), "SES-2026-10-16-001")))
}

func TestMemoryStore_SecondReportPerSession_Duplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sessionID := uuid.New()

	require.NoError(t, store.Repos().Reports.Create(ctx, &model.DayEndReport{SessionID: sessionID}))
	err := store.Repos().Reports.Create(ctx, &model.DayEndReport{SessionID: sessionID})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_ReadsDoNotAlias(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := openSession(uuid.New(), "SES-2026-10-16-001")
	s.OpeningDenominations = []model.Denomination{{Value: decimal.NewFromInt(500), Count: 2, Amount: decimal.NewFromInt(1000)}}
	require.NoError(t, store.Repos().Sessions.Create(ctx, s))

	got, err := store.Repos().Sessions.FindByID(ctx, s.ID)
	require.NoError(t, err)
	got.OpeningDenominations[0].Count = 99
	got.Status = model.SessionClosed

	again, err := store.Repos().Sessions.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.OpeningDenominations[0].Count)
	assert.Equal(t, model.SessionOpen, again.Status)
}

// ── Aggregations ──────────────────────────────────────────────────────────────

func TestMemoryStore_OrderAndPaymentAggregates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sessionID := uuid.New()

	o1 := store.PutOrder(model.Order{SessionID: sessionID, Status: model.OrderCompleted, Total: decimal.NewFromInt(100), Tax: decimal.NewFromInt(5)})
	store.PutOrder(model.Order{SessionID: sessionID, Status: model.OrderCompleted, Total: decimal.NewFromInt(50), IsVoided: true})
	store.PutOrder(model.Order{SessionID: sessionID, Status: model.OrderDraft, Total: decimal.NewFromInt(70)})

	taxable := decimal.NewFromInt(40)
	store.PutOrderItem(model.OrderItem{OrderID: o1.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(30), IsComplimentary: true, TaxableAmount: &taxable})
	store.PutOrderItem(model.OrderItem{OrderID: o1.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(15), IsComplimentary: true})
	store.PutOrderItem(model.OrderItem{OrderID: o1.ID, Quantity: 3, UnitPrice: decimal.NewFromInt(10)})

	store.PutPayment(model.Payment{SessionID: sessionID, Method: model.MethodCash, Status: model.PaymentCompleted, Amount: decimal.NewFromInt(80), RefundAmount: decimal.NewFromInt(5)})
	store.PutPayment(model.Payment{SessionID: sessionID, Method: model.MethodCash, Status: model.PaymentFailed, Amount: decimal.NewFromInt(999)})
	store.PutPayment(model.Payment{SessionID: sessionID, Method: model.MethodCredit, Status: model.PaymentCompleted, Amount: decimal.NewFromInt(20)})
	store.PutPayment(model.Payment{SessionID: sessionID, Method: model.MethodCredit, Status: model.PaymentCompleted, Amount: decimal.NewFromInt(30), CreditSettled: true})

	repos := store.Repos()
	notVoided := false
	totals, err := repos.Orders.SumOrders(ctx, OrderQuery{
		SessionID: sessionID,
		Statuses:  []model.OrderStatus{model.OrderBilled, model.OrderCompleted},
		Voided:    &notVoided,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Count)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(100)))
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(5)))

	items, err := repos.Orders.ComplimentaryTotals(ctx, []uuid.UUID{o1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), items.Quantity)
	assert.True(t, items.Value.Equal(decimal.NewFromInt(55)), items.Value.String())

	byMethod, err := repos.Payments.SumByMethod(ctx, PaymentQuery{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, byMethod, 2)
	assert.Equal(t, model.MethodCash, byMethod[0].Method)
	assert.True(t, byMethod[0].Amount.Equal(decimal.NewFromInt(80)))
	assert.True(t, byMethod[0].Refunded.Equal(decimal.NewFromInt(5)))

	credit, err := repos.Payments.CreditTotals(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), credit.Count)
	assert.True(t, credit.Outstanding.Equal(decimal.NewFromInt(20)))
	assert.True(t, credit.Settled.Equal(decimal.NewFromInt(30)))
}

func TestMemoryStore_ListSessions_Paginates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	outlet := uuid.New()
	for i, n := range []string{"SES-A", "SES-B", "SES-C"} {
		s := openSession(outlet, n)
		s.Status = model.SessionClosed
		s.OpenedAt = time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Repos().Sessions.Create(ctx, s))
	}

	page, total, err := store.Repos().Sessions.List(ctx, SessionFilter{OutletID: &outlet, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "SES-C", page[0].SessionNumber)
}
