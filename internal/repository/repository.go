package repository

import (
	"context"
	"errors"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by every Find* method when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint
	// (one OPEN session per outlet, one report per session).
	ErrDuplicate = errors.New("duplicate key")
)

// OutletIDs, when non-nil, restricts results to those outlets. An empty
// non-nil slice matches nothing.
type SessionFilter struct {
	OutletID     *uuid.UUID
	OutletIDs    []uuid.UUID
	RestaurantID *uuid.UUID
	Status       *model.SessionStatus
	Page         int
	Limit        int
}

type ReportFilter struct {
	OutletID     *uuid.UUID
	OutletIDs    []uuid.UUID
	RestaurantID *uuid.UUID
	BusinessDate *time.Time
}

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	FindOpenByOutlet(ctx context.Context, outletID uuid.UUID) (*model.Session, error)
	// FindLatestByOutlet returns the most recently opened session of any status.
	FindLatestByOutlet(ctx context.Context, outletID uuid.UUID) (*model.Session, error)
	CountByOutletAndDate(ctx context.Context, outletID uuid.UUID, businessDate time.Time) (int64, error)
	Update(ctx context.Context, s *model.Session) error
	List(ctx context.Context, filter SessionFilter) ([]model.Session, int64, error)
}

type ReportRepository interface {
	Create(ctx context.Context, r *model.DayEndReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DayEndReport, error)
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*model.DayEndReport, error)
	List(ctx context.Context, filter ReportFilter) ([]model.DayEndReport, error)
}

// OrderQuery scopes an order aggregation. Exactly one of SessionID or ShiftID
// is set. Voided nil means "either".
type OrderQuery struct {
	SessionID uuid.UUID
	ShiftID   uuid.UUID
	Statuses  []model.OrderStatus
	Voided    *bool
}

type OrderTotals struct {
	Count    int64
	Total    decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
}

type ItemTotals struct {
	Quantity int64
	Value    decimal.Decimal
}

// OrderRepository is the read-only view over the order subsystem.
type OrderRepository interface {
	SumOrders(ctx context.Context, q OrderQuery) (OrderTotals, error)
	ListOrderIDs(ctx context.Context, q OrderQuery) ([]uuid.UUID, error)
	ComplimentaryTotals(ctx context.Context, orderIDs []uuid.UUID) (ItemTotals, error)
}

// PaymentQuery scopes a payment aggregation to a session or a shift.
// Only COMPLETED payments are aggregated.
type PaymentQuery struct {
	SessionID uuid.UUID
	ShiftID   uuid.UUID
}

type MethodTotal struct {
	Method   string
	Count    int64
	Amount   decimal.Decimal
	Refunded decimal.Decimal
}

type CreditTotals struct {
	Count       int64
	Outstanding decimal.Decimal
	Settled     decimal.Decimal
}

type PaymentRepository interface {
	SumByMethod(ctx context.Context, q PaymentQuery) ([]MethodTotal, error)
	CreditTotals(ctx context.Context, sessionID uuid.UUID) (CreditTotals, error)
}

type ShiftRepository interface {
	// ListBySession returns the session's shifts ordered by start time;
	// status nil returns all of them.
	ListBySession(ctx context.Context, sessionID uuid.UUID, status *model.ShiftStatus) ([]model.StaffShift, error)
	Update(ctx context.Context, s *model.StaffShift) error
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Sessions SessionRepository
	Reports  ReportRepository
	Orders   OrderRepository
	Payments PaymentRepository
	Shifts   ShiftRepository
}

// UnitOfWork runs multi-record writes atomically. Writes made through the
// Repos handed to fn are visible only inside fn until it returns nil; any
// error rolls every one of them back.
type UnitOfWork interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	Ping(ctx context.Context) error
}

// IsTransient reports whether err is a storage failure that is safe to retry:
// timeouts, cancellations, serialization failures, deadlocks and lost
// connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
