package service

import (
	"context"
	"errors"

	"restopos/internal/cash"
	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
)

// XReportService computes the interim report of an outlet's OPEN session. It
// never writes: totals are computed live and discarded.
type XReportService interface {
	Interim(ctx context.Context, outletID uuid.UUID) (*dto.XReportResponse, error)
}

type xReportService struct {
	uow  repository.UnitOfWork
	agg  FinancialAggregator
	opts Options
}

func NewXReportService(uow repository.UnitOfWork, opts Options) XReportService {
	return &xReportService{uow: uow, opts: opts.withDefaults()}
}

func (s *xReportService) Interim(ctx context.Context, outletID uuid.UUID) (*dto.XReportResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()
	r := s.uow.Repos()

	session, err := r.Sessions.FindOpenByOutlet(ctx, outletID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, noActiveSession(outletID)
	}
	if err != nil {
		return nil, storageFailure("find open session", err)
	}

	t, err := s.agg.SessionTotals(ctx, r, session.ID)
	if err != nil {
		return nil, storageFailure("aggregate session totals", err)
	}

	active := model.ShiftActive
	shifts, err := r.Shifts.ListBySession(ctx, session.ID, &active)
	if err != nil {
		return nil, storageFailure("list shifts", err)
	}
	staff := make([]dto.StaffSummaryResponse, 0, len(shifts))
	for _, sh := range shifts {
		st, err := s.agg.ShiftTotals(ctx, r, sh.ID)
		if err != nil {
			return nil, storageFailure("aggregate shift totals", err)
		}
		applyShiftTotals(&sh, st)
		staff = append(staff, toStaffSummary(shiftSummary(sh)))
	}

	now := s.opts.Now()
	return &dto.XReportResponse{
		SessionID:      session.ID.String(),
		SessionNumber:  session.SessionNumber,
		OutletID:       session.OutletID.String(),
		BusinessDate:   session.BusinessDate.Format("2006-01-02"),
		OpenedAt:       formatTime(session.OpenedAt),
		OpenedBy:       session.OpenedBy,
		GeneratedAt:    formatTime(now),
		ElapsedMinutes: int64(now.Sub(session.OpenedAt).Minutes()),
		TotalOrders:    t.TotalOrders,
		TotalSales:     t.TotalSales,
		Payments:       toPaymentSummary(t.Payments),
		Cash: dto.CashReconciliationResponse{
			OpeningCash:   session.OpeningCash,
			CashCollected: t.Payments.Cash,
			CashRefunds:   t.CashRefunds,
			ExpectedCash:  cash.ExpectedCash(session.OpeningCash, t.Payments.Cash, t.CashRefunds),
		},
		ActiveStaff: staff,
	}, nil
}
