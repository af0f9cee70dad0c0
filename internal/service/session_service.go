package service

import (
	"context"
	"errors"
	"fmt"

	"restopos/internal/apierror"
	"restopos/internal/cash"
	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SessionService interface {
	Open(ctx context.Context, operator string, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	// Close is the standalone close without a Z-Report.
	Close(ctx context.Context, sessionID uuid.UUID, operator string, req dto.CloseSessionRequest) (*dto.SessionResponse, error)
	GetActive(ctx context.Context, outletID uuid.UUID) (*dto.SessionResponse, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error)
	List(ctx context.Context, filter dto.SessionListFilter) (*dto.SessionListResponse, error)
	Recalculate(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error)
	ApplySettlement(ctx context.Context, sessionID uuid.UUID, req dto.SettlementRequest) (*dto.SessionResponse, error)
}

type sessionService struct {
	uow    repository.UnitOfWork
	locker OutletLocker
	agg    FinancialAggregator
	opts   Options
}

func NewSessionService(uow repository.UnitOfWork, locker OutletLocker, opts Options) SessionService {
	return &sessionService{uow: uow, locker: locker, opts: opts.withDefaults()}
}

func sessionNotFound(id uuid.UUID) error {
	return apierror.NotFound("session not found").With("session_id", id.String())
}

func noActiveSession(outletID uuid.UUID) error {
	return apierror.NotFound("no active session for outlet").With("outlet_id", outletID.String())
}

func sessionClosed(s *model.Session) error {
	return apierror.Conflict(fmt.Sprintf("session %s is already closed", s.SessionNumber)).
		With("session_number", s.SessionNumber)
}

func findSession(ctx context.Context, r repository.Repos, id uuid.UUID) (*model.Session, error) {
	s, err := r.Sessions.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, sessionNotFound(id)
	}
	if err != nil {
		return nil, storageFailure("find session", err)
	}
	return s, nil
}

func ensureNoPendingOrders(ctx context.Context, r repository.Repos, session *model.Session) error {
	pending, err := FinancialAggregator{}.PendingOrders(ctx, r, session.ID)
	if err != nil {
		return storageFailure("count pending orders", err)
	}
	if pending > 0 {
		return apierror.Precondition(fmt.Sprintf("%d unsettled orders must be completed or cancelled first", pending)).
			With("pending_orders", pending).
			With("session_number", session.SessionNumber)
	}
	return nil
}

// ensureReported blocks a new session while the outlet's latest session was
// closed without a Z-Report; the generator only reaches that session while
// it is still the latest.
func ensureReported(ctx context.Context, r repository.Repos, outletID uuid.UUID) error {
	latest, err := r.Sessions.FindLatestByOutlet(ctx, outletID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storageFailure("find latest session", err)
	}
	if latest.IsOpen() || latest.ReportID != nil {
		return nil
	}
	return apierror.Precondition(fmt.Sprintf("session %s was closed without a Z-Report; generate it before opening a new session", latest.SessionNumber)).
		With("session_number", latest.SessionNumber)
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *sessionService) Open(ctx context.Context, operator string, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	amount, denoms, ok, err := cash.ResolveAmount(req.OpeningCash, toDenominations(req.Denominations))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Precondition("opening_cash or denominations are required")
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()
	release, err := lockOutlet(ctx, s.locker, req.OutletID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.opts.Now()
	businessDate := s.opts.businessDate(now)

	var created model.Session
	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		existing, err := r.Sessions.FindOpenByOutlet(ctx, req.OutletID)
		switch {
		case err == nil:
			return apierror.Conflict(fmt.Sprintf("session %s is already open for this outlet", existing.SessionNumber)).
				With("session_number", existing.SessionNumber)
		case !errors.Is(err, repository.ErrNotFound):
			return storageFailure("find open session", err)
		}
		if err := ensureReported(ctx, r, req.OutletID); err != nil {
			return err
		}

		n, err := r.Sessions.CountByOutletAndDate(ctx, req.OutletID, businessDate)
		if err != nil {
			return storageFailure("count sessions", err)
		}

		session := model.Session{
			ID:                   uuid.New(),
			SessionNumber:        sessionNumber(s.opts.SessionPrefix, businessDate, n+1),
			OutletID:             req.OutletID,
			RestaurantID:         req.RestaurantID,
			BusinessDate:         businessDate,
			Status:               model.SessionOpen,
			OpeningCash:          amount,
			OpeningDenominations: denoms,
			OpenedAt:             now,
			OpenedBy:             operator,
			OpeningNotes:         req.Notes,
		}
		ApplySessionTotals(&session, Totals{})
		if err := r.Sessions.Create(ctx, &session); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apierror.Conflict("a session is already open for this outlet").
					With("outlet_id", req.OutletID.String())
			}
			return storageFailure("create session", err)
		}
		created = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_number", created.SessionNumber).
		Str("outlet_id", created.OutletID.String()).
		Str("opening_cash", created.OpeningCash.StringFixed(2)).
		Str("operator", operator).
		Msg("session opened")
	return toSessionResponse(&created), nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Close(ctx context.Context, sessionID uuid.UUID, operator string, req dto.CloseSessionRequest) (*dto.SessionResponse, error) {
	counted, denoms, ok, err := cash.ResolveAmount(req.ClosingCash, toDenominations(req.Denominations))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Precondition("closing_cash or denominations are required")
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	current, err := findSession(ctx, s.uow.Repos(), sessionID)
	if err != nil {
		return nil, err
	}
	release, err := lockOutlet(ctx, s.locker, current.OutletID)
	if err != nil {
		return nil, err
	}
	defer release()

	var closed *model.Session
	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		session, err := findSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return sessionClosed(session)
		}
		if err := ensureNoPendingOrders(ctx, r, session); err != nil {
			return err
		}

		t, err := s.agg.SessionTotals(ctx, r, session.ID)
		if err != nil {
			return storageFailure("aggregate session totals", err)
		}
		ApplySessionTotals(session, t)

		rec := cash.Reconcile(counted, session.ExpectedCash)
		now := s.opts.Now()
		session.ClosingCash = &rec.Actual
		session.ClosingDenominations = denoms
		session.CashVariance = &rec.Variance
		session.CashStatus = &rec.Status
		session.Status = model.SessionClosed
		session.ClosedAt = &now
		session.ClosedBy = &operator
		session.ClosingNotes = req.Notes

		if err := r.Sessions.Update(ctx, session); err != nil {
			return storageFailure("close session", err)
		}
		closed = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_number", closed.SessionNumber).
		Str("expected_cash", closed.ExpectedCash.StringFixed(2)).
		Str("closing_cash", closed.ClosingCash.StringFixed(2)).
		Str("cash_status", string(*closed.CashStatus)).
		Str("operator", operator).
		Msg("session closed")
	return toSessionResponse(closed), nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *sessionService) GetActive(ctx context.Context, outletID uuid.UUID) (*dto.SessionResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	session, err := s.uow.Repos().Sessions.FindOpenByOutlet(ctx, outletID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, noActiveSession(outletID)
	}
	if err != nil {
		return nil, storageFailure("find open session", err)
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	session, err := findSession(ctx, s.uow.Repos(), sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) List(ctx context.Context, filter dto.SessionListFilter) (*dto.SessionListResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	f := repository.SessionFilter{Page: filter.Page, Limit: filter.Limit, OutletIDs: outletScope(filter.OutletIDs)}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if id, err := uuid.Parse(filter.OutletID); err == nil {
		f.OutletID = &id
	}
	if id, err := uuid.Parse(filter.RestaurantID); err == nil {
		f.RestaurantID = &id
	}
	if filter.Status != "" {
		status := model.SessionStatus(filter.Status)
		f.Status = &status
	}

	sessions, total, err := s.uow.Repos().Sessions.List(ctx, f)
	if err != nil {
		return nil, storageFailure("list sessions", err)
	}
	data := make([]dto.SessionResponse, len(sessions))
	for i := range sessions {
		data[i] = *toSessionResponse(&sessions[i])
	}
	return &dto.SessionListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ── Running totals ────────────────────────────────────────────────────────────

// Recalculate rebuilds an OPEN session's running totals from source records.
func (s *sessionService) Recalculate(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var out *model.Session
	err := s.uow.WithinTx(ctx, func(r repository.Repos) error {
		session, err := findSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return sessionClosed(session)
		}
		if err := s.agg.RecalculateSession(ctx, r, session); err != nil {
			return storageFailure("recalculate session", err)
		}
		out = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSessionResponse(out), nil
}

// ApplySettlement increments the live running totals as the order subsystem
// reports activity. The close path never relies on these increments.
func (s *sessionService) ApplySettlement(ctx context.Context, sessionID uuid.UUID, req dto.SettlementRequest) (*dto.SessionResponse, error) {
	if req.Amount.IsNegative() || req.OrderTotal.IsNegative() || req.CashRefund.IsNegative() {
		return nil, apierror.Precondition("settlement amounts cannot be negative")
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var out *model.Session
	err := s.uow.WithinTx(ctx, func(r repository.Repos) error {
		session, err := findSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if !session.IsOpen() {
			return sessionClosed(session)
		}

		session.Payments.Add(req.Method, req.Amount)
		if req.OrderClosed {
			session.TotalOrders++
			session.TotalSales = session.TotalSales.Add(req.OrderTotal)
		}
		session.CashRefunds = session.CashRefunds.Add(req.CashRefund)
		session.ExpectedCash = cash.ExpectedCash(session.OpeningCash, session.Payments.Cash, session.CashRefunds)

		if err := r.Sessions.Update(ctx, session); err != nil {
			return storageFailure("apply settlement", err)
		}
		out = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSessionResponse(out), nil
}
