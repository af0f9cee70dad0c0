//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

// ── Setup ────────────────────────────────────────────────────────────────────

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("restopos_test"),
		tcPostgres.WithUsername("restopos"),
		tcPostgres.WithPassword("restopos"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)

	// Up, down and up again so both directions of the migration are exercised.
	require.NoError(t, infra.RunMigrations(db))
	require.NoError(t, infra.RollbackMigrations(db, 1))
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func newSession(outlet uuid.UUID, number string) *model.Session {
	return &model.Session{
		SessionNumber: number,
		OutletID:      outlet,
		RestaurantID:  uuid.New(),
		BusinessDate:  time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		Status:        model.SessionOpen,
		OpeningCash:   decimal.NewFromInt(1000),
		ExpectedCash:  decimal.NewFromInt(1000),
		OpeningDenominations: []model.Denomination{
			{Value: decimal.NewFromInt(500), Count: 2},
		},
		OpenedAt: time.Now().UTC(),
		OpenedBy: "asha",
	}
}

// ── Sessions ─────────────────────────────────────────────────────────────────

func TestGormSessions_OneOpenPerOutlet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repos := repository.NewUnitOfWork(db).Repos()
	outlet := uuid.New()

	first := newSession(outlet, "SES-2026-10-16-001")
	require.NoError(t, repos.Sessions.Create(ctx, first))

	err := repos.Sessions.Create(ctx, newSession(outlet, "SES-2026-10-16-002"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, repos.Sessions.Create(ctx, newSession(uuid.New(), "SES-2026-10-16-001")),
		"another outlet may reuse the number")

	closedAt := time.Now().UTC()
	first.Status = model.SessionClosed
	first.ClosedAt = &closedAt
	require.NoError(t, repos.Sessions.Update(ctx, first))

	second := newSession(outlet, "SES-2026-10-16-002")
	require.NoError(t, repos.Sessions.Create(ctx, second))

	got, err := repos.Sessions.FindOpenByOutlet(ctx, outlet)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	require.Len(t, got.OpeningDenominations, 1)
	assert.Equal(t, 2, got.OpeningDenominations[0].Count)

	n, err := repos.Sessions.CountByOutletAndDate(ctx, outlet, first.BusinessDate)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repos.Sessions.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGormUnitOfWork_RollsBack(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	uow := repository.NewUnitOfWork(db)
	outlet := uuid.New()

	boom := errors.New("boom")
	err := uow.WithinTx(ctx, func(r repository.Repos) error {
		require.NoError(t, r.Sessions.Create(ctx, newSession(outlet, "SES-2026-10-16-001")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = uow.Repos().Sessions.FindOpenByOutlet(ctx, outlet)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGormUnitOfWork_LocksSessionRow(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	uow := repository.NewUnitOfWork(db)
	outlet := uuid.New()
	require.NoError(t, uow.Repos().Sessions.Create(ctx, newSession(outlet, "SES-2026-10-16-001")))

	const hold = 300 * time.Millisecond
	locked := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- uow.WithinTx(ctx, func(r repository.Repos) error {
			if _, err := r.Sessions.FindOpenByOutlet(ctx, outlet); err != nil {
				return err
			}
			close(locked)
			time.Sleep(hold)
			return nil
		})
	}()

	<-locked
	start := time.Now()
	err := uow.WithinTx(ctx, func(r repository.Repos) error {
		_, err := r.Sessions.FindOpenByOutlet(ctx, outlet)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, time.Since(start), hold/2, "second reader waits for the row lock")
}

// ── Reports ──────────────────────────────────────────────────────────────────

func TestGormReports_OnePerSession(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repos := repository.NewUnitOfWork(db).Repos()
	s := newSession(uuid.New(), "SES-2026-10-16-001")
	require.NoError(t, repos.Sessions.Create(ctx, s))

	report := func() *model.DayEndReport {
		return &model.DayEndReport{
			ReportNumber:  "Z-" + s.SessionNumber,
			SessionID:     s.ID,
			SessionNumber: s.SessionNumber,
			OutletID:      s.OutletID,
			RestaurantID:  s.RestaurantID,
			BusinessDate:  s.BusinessDate,
			CashStatus:    model.CashExact,
			GeneratedAt:   time.Now().UTC(),
			GeneratedBy:   "meera",
		}
	}
	first := report()
	require.NoError(t, repos.Reports.Create(ctx, first))
	assert.ErrorIs(t, repos.Reports.Create(ctx, report()), repository.ErrDuplicate)

	got, err := repos.Reports.FindBySessionID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	list, err := repos.Reports.List(ctx, repository.ReportFilter{OutletID: &s.OutletID, BusinessDate: &s.BusinessDate})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// ── Aggregates ───────────────────────────────────────────────────────────────

func TestGormAggregates(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repos := repository.NewUnitOfWork(db).Repos()
	s := newSession(uuid.New(), "SES-2026-10-16-001")
	require.NoError(t, repos.Sessions.Create(ctx, s))
	shiftID := uuid.New()

	order := func(status model.OrderStatus, total int64, voided bool) model.Order {
		o := model.Order{
			SessionID: s.ID, ShiftID: &shiftID, OutletID: s.OutletID,
			OrderNumber: "ORD-" + uuid.NewString()[:8], Status: status,
			Total: decimal.NewFromInt(total), Tax: decimal.NewFromInt(total / 10), IsVoided: voided,
		}
		require.NoError(t, db.Create(&o).Error)
		return o
	}
	pay := func(o model.Order, method string, amount, refund int64, settled bool) {
		p := model.Payment{
			OrderID: o.ID, SessionID: s.ID, ShiftID: o.ShiftID, Method: method,
			Status: model.PaymentCompleted, Amount: decimal.NewFromInt(amount),
			RefundAmount: decimal.NewFromInt(refund), CreditSettled: settled,
		}
		require.NoError(t, db.Create(&p).Error)
	}

	a := order(model.OrderCompleted, 1000, false)
	b := order(model.OrderCompleted, 500, false)
	order(model.OrderCompleted, 700, true)
	order(model.OrderBilled, 300, false)
	pay(a, model.MethodCash, 1000, 100, false)
	pay(b, model.MethodCredit, 200, 0, false)
	pay(b, model.MethodCredit, 300, 0, true)

	fee := decimal.NewFromInt(40)
	require.NoError(t, db.Create(&[]model.OrderItem{
		{OrderID: a.ID, Name: "Lassi", Quantity: 2, UnitPrice: decimal.NewFromInt(30), IsComplimentary: true},
		{OrderID: b.ID, Name: "Papad", Quantity: 1, UnitPrice: decimal.NewFromInt(25), TaxableAmount: &fee, IsComplimentary: true},
		{OrderID: b.ID, Name: "Thali", Quantity: 1, UnitPrice: decimal.NewFromInt(475)},
	}).Error)

	notVoided := false
	completed := repository.OrderQuery{SessionID: s.ID, Statuses: []model.OrderStatus{model.OrderCompleted}, Voided: &notVoided}
	totals, err := repos.Orders.SumOrders(ctx, completed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Count)
	assert.Equal(t, "1500.00", totals.Total.StringFixed(2))
	assert.Equal(t, "150.00", totals.Tax.StringFixed(2))

	ids, err := repos.Orders.ListOrderIDs(ctx, completed)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	comp, err := repos.Orders.ComplimentaryTotals(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(3), comp.Quantity)
	assert.Equal(t, "100.00", comp.Value.StringFixed(2))

	byShift, err := repos.Orders.SumOrders(ctx, repository.OrderQuery{ShiftID: shiftID, Voided: &notVoided})
	require.NoError(t, err)
	assert.Equal(t, int64(3), byShift.Count)

	methods, err := repos.Payments.SumByMethod(ctx, repository.PaymentQuery{SessionID: s.ID})
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, model.MethodCash, methods[0].Method)
	assert.Equal(t, "100.00", methods[0].Refunded.StringFixed(2))
	assert.Equal(t, int64(2), methods[1].Count)

	credit, err := repos.Payments.CreditTotals(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", credit.Outstanding.StringFixed(2))
	assert.Equal(t, "300.00", credit.Settled.StringFixed(2))
}

// ── Shifts ───────────────────────────────────────────────────────────────────

func TestGormShifts_ListAndUpdate(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repos := repository.NewUnitOfWork(db).Repos()
	sessionID := uuid.New()

	start := time.Date(2026, 10, 16, 4, 0, 0, 0, time.UTC)
	shifts := []model.StaffShift{
		{SessionID: sessionID, OutletID: uuid.New(), StaffID: uuid.New(), StaffName: "Ravi", Status: model.ShiftActive, StartedAt: start.Add(time.Hour)},
		{SessionID: sessionID, OutletID: uuid.New(), StaffID: uuid.New(), StaffName: "Asha", Status: model.ShiftActive, StartedAt: start},
	}
	require.NoError(t, db.Create(&shifts).Error)

	active := model.ShiftActive
	got, err := repos.Shifts.ListBySession(ctx, sessionID, &active)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Asha", got[0].StaffName)

	ended := start.Add(8 * time.Hour)
	got[0].Status = model.ShiftClosed
	got[0].EndedAt = &ended
	got[0].TotalSales = decimal.NewFromInt(683)
	require.NoError(t, repos.Shifts.Update(ctx, &got[0]))

	still, err := repos.Shifts.ListBySession(ctx, sessionID, &active)
	require.NoError(t, err)
	require.Len(t, still, 1)
	assert.Equal(t, "Ravi", still[0].StaffName)

	all, err := repos.Shifts.ListBySession(ctx, sessionID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
