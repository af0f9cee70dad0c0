package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process UnitOfWork used by STORAGE_DRIVER=memory and by
// the service tests. A transaction holds the store mutex, runs against a deep
// copy of the state and swaps the copy in only when fn returns nil, so a failed
// transaction leaves nothing behind.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState

	// Fault, when set, is consulted before every repository call with an
	// operation name such as "reports.create"; a non-nil result fails the call.
	Fault func(op string) error
}

type memState struct {
	sessions map[uuid.UUID]model.Session
	reports  map[uuid.UUID]model.DayEndReport
	orders   map[uuid.UUID]model.Order
	items    map[uuid.UUID]model.OrderItem
	payments map[uuid.UUID]model.Payment
	shifts   map[uuid.UUID]model.StaffShift
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		sessions: make(map[uuid.UUID]model.Session),
		reports:  make(map[uuid.UUID]model.DayEndReport),
		orders:   make(map[uuid.UUID]model.Order),
		items:    make(map[uuid.UUID]model.OrderItem),
		payments: make(map[uuid.UUID]model.Payment),
		shifts:   make(map[uuid.UUID]model.StaffShift),
	}}
}

func (st *memState) clone() *memState {
	c := &memState{
		sessions: make(map[uuid.UUID]model.Session, len(st.sessions)),
		reports:  make(map[uuid.UUID]model.DayEndReport, len(st.reports)),
		orders:   make(map[uuid.UUID]model.Order, len(st.orders)),
		items:    make(map[uuid.UUID]model.OrderItem, len(st.items)),
		payments: make(map[uuid.UUID]model.Payment, len(st.payments)),
		shifts:   make(map[uuid.UUID]model.StaffShift, len(st.shifts)),
	}
	for k, v := range st.sessions {
		c.sessions[k] = copySession(v)
	}
	for k, v := range st.reports {
		c.reports[k] = copyReport(v)
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	for k, v := range st.shifts {
		c.shifts[k] = copyShift(v)
	}
	return c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func copySession(s model.Session) model.Session {
	s.OpeningDenominations = copySlice(s.OpeningDenominations)
	s.ClosingDenominations = copySlice(s.ClosingDenominations)
	s.OpeningNotes = copyPtr(s.OpeningNotes)
	s.ClosingCash = copyPtr(s.ClosingCash)
	s.CashVariance = copyPtr(s.CashVariance)
	s.CashStatus = copyPtr(s.CashStatus)
	s.ClosedAt = copyPtr(s.ClosedAt)
	s.ClosedBy = copyPtr(s.ClosedBy)
	s.ClosingNotes = copyPtr(s.ClosingNotes)
	s.ReportID = copyPtr(s.ReportID)
	return s
}

func copyReport(r model.DayEndReport) model.DayEndReport {
	staff := make([]model.StaffShiftSummary, len(r.StaffSummary))
	for i, line := range r.StaffSummary {
		line.EndedAt = copyPtr(line.EndedAt)
		staff[i] = line
	}
	r.StaffSummary = staff
	r.Notes = copyPtr(r.Notes)
	return r
}

func copyShift(s model.StaffShift) model.StaffShift {
	s.EndedAt = copyPtr(s.EndedAt)
	return s
}

func (m *MemoryStore) Repos() Repos { return m.reposFor(nil) }

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(m.reposFor(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// PutOrder, PutOrderItem, PutPayment and PutShift stand in for the order and
// staff subsystems that own those records.
func (m *MemoryStore) PutOrder(o model.Order) model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	m.state.orders[o.ID] = o
	return o
}

func (m *MemoryStore) PutOrderItem(it model.OrderItem) model.OrderItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	m.state.items[it.ID] = it
	return it
}

func (m *MemoryStore) PutPayment(p model.Payment) model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.state.payments[p.ID] = p
	return p
}

func (m *MemoryStore) PutShift(s model.StaffShift) model.StaffShift {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.state.shifts[s.ID] = copyShift(s)
	return s
}

func (m *MemoryStore) SetOrderStatus(id uuid.UUID, status model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	m.state.orders[id] = o
	return nil
}

// memView binds repositories either to a transaction's private state (tx set)
// or to the committed state under the store mutex.
type memView struct {
	store *MemoryStore
	tx    *memState
}

func (m *MemoryStore) reposFor(tx *memState) Repos {
	v := &memView{store: m, tx: tx}
	return Repos{
		Sessions: memSessions{v},
		Reports:  memReports{v},
		Orders:   memOrders{v},
		Payments: memPayments{v},
		Shifts:   memShifts{v},
	}
}

func (v *memView) do(ctx context.Context, op string, fn func(st *memState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.store.Fault != nil {
		if err := v.store.Fault(op); err != nil {
			return err
		}
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func sameDay(a, b time.Time) bool { return a.Format("2006-01-02") == b.Format("2006-01-02") }

type memSessions struct{ v *memView }

func (r memSessions) checkUnique(st *memState, s *model.Session) error {
	for id, other := range st.sessions {
		if id == s.ID || other.OutletID != s.OutletID {
			continue
		}
		if s.IsOpen() && other.IsOpen() {
			return ErrDuplicate
		}
		if other.SessionNumber == s.SessionNumber {
			return ErrDuplicate
		}
	}
	return nil
}

func (r memSessions) Create(ctx context.Context, s *model.Session) error {
	return r.v.do(ctx, "sessions.create", func(st *memState) error {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if _, exists := st.sessions[s.ID]; exists {
			return ErrDuplicate
		}
		if err := r.checkUnique(st, s); err != nil {
			return err
		}
		now := time.Now()
		s.CreatedAt, s.UpdatedAt = now, now
		st.sessions[s.ID] = copySession(*s)
		return nil
	})
}

func (r memSessions) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var out *model.Session
	err := r.v.do(ctx, "sessions.find", func(st *memState) error {
		s, ok := st.sessions[id]
		if !ok {
			return ErrNotFound
		}
		c := copySession(s)
		out = &c
		return nil
	})
	return out, err
}

func (r memSessions) FindOpenByOutlet(ctx context.Context, outletID uuid.UUID) (*model.Session, error) {
	var out *model.Session
	err := r.v.do(ctx, "sessions.find", func(st *memState) error {
		for _, s := range st.sessions {
			if s.OutletID == outletID && s.IsOpen() {
				c := copySession(s)
				out = &c
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memSessions) FindLatestByOutlet(ctx context.Context, outletID uuid.UUID) (*model.Session, error) {
	var out *model.Session
	err := r.v.do(ctx, "sessions.find", func(st *memState) error {
		for _, s := range st.sessions {
			if s.OutletID != outletID {
				continue
			}
			if out == nil || s.OpenedAt.After(out.OpenedAt) {
				c := copySession(s)
				out = &c
			}
		}
		if out == nil {
			return ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r memSessions) CountByOutletAndDate(ctx context.Context, outletID uuid.UUID, businessDate time.Time) (int64, error) {
	var n int64
	err := r.v.do(ctx, "sessions.count", func(st *memState) error {
		for _, s := range st.sessions {
			if s.OutletID == outletID && sameDay(s.BusinessDate, businessDate) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memSessions) Update(ctx context.Context, s *model.Session) error {
	return r.v.do(ctx, "sessions.update", func(st *memState) error {
		if _, ok := st.sessions[s.ID]; !ok {
			return ErrNotFound
		}
		if err := r.checkUnique(st, s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now()
		st.sessions[s.ID] = copySession(*s)
		return nil
	})
}

func (r memSessions) List(ctx context.Context, filter SessionFilter) ([]model.Session, int64, error) {
	var out []model.Session
	err := r.v.do(ctx, "sessions.list", func(st *memState) error {
		for _, s := range st.sessions {
			if filter.OutletID != nil && s.OutletID != *filter.OutletID {
				continue
			}
			if filter.OutletIDs != nil && !containsID(filter.OutletIDs, s.OutletID) {
				continue
			}
			if filter.RestaurantID != nil && s.RestaurantID != *filter.RestaurantID {
				continue
			}
			if filter.Status != nil && s.Status != *filter.Status {
				continue
			}
			out = append(out, copySession(s))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })

	total := int64(len(out))
	if filter.Limit > 0 {
		start := (filter.Page - 1) * filter.Limit
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

type memReports struct{ v *memView }

func (r memReports) Create(ctx context.Context, rep *model.DayEndReport) error {
	return r.v.do(ctx, "reports.create", func(st *memState) error {
		if rep.ID == uuid.Nil {
			rep.ID = uuid.New()
		}
		for _, other := range st.reports {
			if other.ID == rep.ID || other.SessionID == rep.SessionID {
				return ErrDuplicate
			}
		}
		rep.CreatedAt = time.Now()
		st.reports[rep.ID] = copyReport(*rep)
		return nil
	})
}

func (r memReports) FindByID(ctx context.Context, id uuid.UUID) (*model.DayEndReport, error) {
	var out *model.DayEndReport
	err := r.v.do(ctx, "reports.find", func(st *memState) error {
		rep, ok := st.reports[id]
		if !ok {
			return ErrNotFound
		}
		c := copyReport(rep)
		out = &c
		return nil
	})
	return out, err
}

func (r memReports) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.DayEndReport, error) {
	var out *model.DayEndReport
	err := r.v.do(ctx, "reports.find", func(st *memState) error {
		for _, rep := range st.reports {
			if rep.SessionID == sessionID {
				c := copyReport(rep)
				out = &c
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memReports) List(ctx context.Context, filter ReportFilter) ([]model.DayEndReport, error) {
	var out []model.DayEndReport
	err := r.v.do(ctx, "reports.list", func(st *memState) error {
		for _, rep := range st.reports {
			if filter.OutletID != nil && rep.OutletID != *filter.OutletID {
				continue
			}
			if filter.OutletIDs != nil && !containsID(filter.OutletIDs, rep.OutletID) {
				continue
			}
			if filter.RestaurantID != nil && rep.RestaurantID != *filter.RestaurantID {
				continue
			}
			if filter.BusinessDate != nil && !sameDay(rep.BusinessDate, *filter.BusinessDate) {
				continue
			}
			out = append(out, copyReport(rep))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, err
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type memOrders struct{ v *memView }

func (q OrderQuery) matches(o model.Order) bool {
	if q.SessionID != uuid.Nil && o.SessionID != q.SessionID {
		return false
	}
	if q.ShiftID != uuid.Nil && (o.ShiftID == nil || *o.ShiftID != q.ShiftID) {
		return false
	}
	if q.Voided != nil && o.IsVoided != *q.Voided {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

func (r memOrders) SumOrders(ctx context.Context, q OrderQuery) (OrderTotals, error) {
	t := OrderTotals{Total: decimal.Zero, Tax: decimal.Zero, Discount: decimal.Zero}
	err := r.v.do(ctx, "orders.sum", func(st *memState) error {
		for _, o := range st.orders {
			if !q.matches(o) {
				continue
			}
			t.Count++
			t.Total = t.Total.Add(o.Total)
			t.Tax = t.Tax.Add(o.Tax)
			t.Discount = t.Discount.Add(o.Discount)
		}
		return nil
	})
	return t, err
}

func (r memOrders) ListOrderIDs(ctx context.Context, q OrderQuery) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.v.do(ctx, "orders.ids", func(st *memState) error {
		for id, o := range st.orders {
			if q.matches(o) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

func (r memOrders) ComplimentaryTotals(ctx context.Context, orderIDs []uuid.UUID) (ItemTotals, error) {
	t := ItemTotals{Value: decimal.Zero}
	want := make(map[uuid.UUID]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		want[id] = struct{}{}
	}
	err := r.v.do(ctx, "orders.items", func(st *memState) error {
		for _, it := range st.items {
			if _, ok := want[it.OrderID]; !ok || !it.IsComplimentary {
				continue
			}
			t.Quantity += int64(it.Quantity)
			if it.TaxableAmount != nil && it.TaxableAmount.IsPositive() {
				t.Value = t.Value.Add(*it.TaxableAmount)
			} else {
				t.Value = t.Value.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
		}
		return nil
	})
	return t, err
}

type memPayments struct{ v *memView }

func (r memPayments) SumByMethod(ctx context.Context, q PaymentQuery) ([]MethodTotal, error) {
	byMethod := make(map[string]*MethodTotal)
	err := r.v.do(ctx, "payments.sum", func(st *memState) error {
		for _, p := range st.payments {
			if p.Status != model.PaymentCompleted {
				continue
			}
			if q.SessionID != uuid.Nil && p.SessionID != q.SessionID {
				continue
			}
			if q.ShiftID != uuid.Nil && (p.ShiftID == nil || *p.ShiftID != q.ShiftID) {
				continue
			}
			mt, ok := byMethod[p.Method]
			if !ok {
				mt = &MethodTotal{Method: p.Method, Amount: decimal.Zero, Refunded: decimal.Zero}
				byMethod[p.Method] = mt
			}
			mt.Count++
			mt.Amount = mt.Amount.Add(p.Amount)
			mt.Refunded = mt.Refunded.Add(p.RefundAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]MethodTotal, 0, len(byMethod))
	for _, mt := range byMethod {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out, nil
}

func (r memPayments) CreditTotals(ctx context.Context, sessionID uuid.UUID) (CreditTotals, error) {
	t := CreditTotals{Outstanding: decimal.Zero, Settled: decimal.Zero}
	err := r.v.do(ctx, "payments.credit", func(st *memState) error {
		for _, p := range st.payments {
			if p.SessionID != sessionID || p.Method != model.MethodCredit || p.Status != model.PaymentCompleted {
				continue
			}
			t.Count++
			if p.CreditSettled {
				t.Settled = t.Settled.Add(p.Amount)
			} else {
				t.Outstanding = t.Outstanding.Add(p.Amount)
			}
		}
		return nil
	})
	return t, err
}

type memShifts struct{ v *memView }

func (r memShifts) ListBySession(ctx context.Context, sessionID uuid.UUID, status *model.ShiftStatus) ([]model.StaffShift, error) {
	var out []model.StaffShift
	err := r.v.do(ctx, "shifts.list", func(st *memState) error {
		for _, s := range st.shifts {
			if s.SessionID != sessionID || (status != nil && s.Status != *status) {
				continue
			}
			out = append(out, copyShift(s))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, err
}

func (r memShifts) Update(ctx context.Context, s *model.StaffShift) error {
	return r.v.do(ctx, "shifts.update", func(st *memState) error {
		if _, ok := st.shifts[s.ID]; !ok {
			return ErrNotFound
		}
		s.UpdatedAt = time.Now()
		st.shifts[s.ID] = copyShift(*s)
		return nil
	})
}

var _ UnitOfWork = (*MemoryStore)(nil)
