package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fixture ───────────────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (p *recordingPublisher) PublishDayEndReport(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

func (p *recordingPublisher) published() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.ids...)
}

type fixture struct {
	store      *repository.MemoryStore
	sessions   SessionService
	xreports   XReportService
	dayEnd     DayEndService
	publisher  *recordingPublisher
	now        time.Time
	outlet     uuid.UUID
	restaurant uuid.UUID
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	f := &fixture{
		store:      repository.NewMemoryStore(),
		publisher:  &recordingPublisher{},
		now:        time.Date(2026, 10, 16, 4, 30, 0, 0, time.UTC), // 10:00 IST
		outlet:     uuid.New(),
		restaurant: uuid.New(),
	}
	opts := Options{
		Timeout:       2 * time.Second,
		SessionPrefix: "SES",
		Location:      kolkata,
		Now:           func() time.Time { return f.now },
	}
	for _, c := range configure {
		c(&opts)
	}
	locker := infra.NewLocalLocker(time.Second)
	f.sessions = NewSessionService(f.store, locker, opts)
	f.xreports = NewXReportService(f.store, opts)
	f.dayEnd = NewDayEndService(f.store, locker, f.publisher, opts)
	return f
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := dec(v)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func assertKind(t *testing.T, want apierror.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want.String(), apierror.KindOf(err).String(), err.Error())
}

func (f *fixture) open(t *testing.T, opening int64) uuid.UUID {
	t.Helper()
	resp, err := f.sessions.Open(context.Background(), "cashier", dto.OpenSessionRequest{
		OutletID:     f.outlet,
		RestaurantID: f.restaurant,
		OpeningCash:  decPtr(opening),
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func (f *fixture) session(t *testing.T, id uuid.UUID) *model.Session {
	t.Helper()
	s, err := f.store.Repos().Sessions.FindByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) reports(t *testing.T) []model.DayEndReport {
	t.Helper()
	reps, err := f.store.Repos().Reports.List(context.Background(), repository.ReportFilter{})
	require.NoError(t, err)
	return reps
}

type orderOpt func(*model.Order)

func onShift(id uuid.UUID) orderOpt { return func(o *model.Order) { o.ShiftID = &id } }
func voided() orderOpt             { return func(o *model.Order) { o.IsVoided = true } }
func taxed(tax, discount int64) orderOpt {
	return func(o *model.Order) { o.Tax, o.Discount = dec(tax), dec(discount) }
}

func (f *fixture) order(sessionID uuid.UUID, status model.OrderStatus, total int64, opts ...orderOpt) model.Order {
	o := model.Order{
		SessionID:   sessionID,
		OutletID:    f.outlet,
		OrderNumber: "ORD-" + uuid.NewString()[:8],
		Status:      status,
		Subtotal:    dec(total),
		Total:       dec(total),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return f.store.PutOrder(o)
}

func (f *fixture) pay(o model.Order, method string, amount int64) model.Payment {
	return f.store.PutPayment(model.Payment{
		OrderID:   o.ID,
		SessionID: o.SessionID,
		ShiftID:   o.ShiftID,
		Method:    method,
		Status:    model.PaymentCompleted,
		Amount:    dec(amount),
	})
}

// sale records a COMPLETED order fully paid with one method.
func (f *fixture) sale(sessionID uuid.UUID, method string, amount int64, opts ...orderOpt) model.Order {
	o := f.order(sessionID, model.OrderCompleted, amount, opts...)
	f.pay(o, method, amount)
	return o
}

func (f *fixture) shift(sessionID uuid.UUID, name string, startedAt time.Time) model.StaffShift {
	return f.store.PutShift(model.StaffShift{
		SessionID: sessionID,
		OutletID:  f.outlet,
		StaffID:   uuid.New(),
		StaffName: name,
		Status:    model.ShiftActive,
		StartedAt: startedAt,
	})
}
