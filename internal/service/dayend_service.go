package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/cash"
	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("restopos/internal/service")

// DayEndService generates and serves Z-Reports.
type DayEndService interface {
	Generate(ctx context.Context, outletID uuid.UUID, operator string, req dto.GenerateZReportRequest) (*dto.DayEndReportResponse, error)
	Get(ctx context.Context, reportID uuid.UUID) (*dto.DayEndReportResponse, error)
	List(ctx context.Context, filter dto.ReportListFilter) ([]dto.DayEndReportResponse, error)
	// Export writes the filtered reports to w as an .xlsx workbook.
	Export(ctx context.Context, filter dto.ReportListFilter, w io.Writer) error
}

type dayEndService struct {
	uow       repository.UnitOfWork
	locker    OutletLocker
	publisher ReportPublisher
	agg       FinancialAggregator
	opts      Options
}

// NewDayEndService wires the Z-Report generator. publisher may be nil, in
// which case reports are not delivered asynchronously.
func NewDayEndService(uow repository.UnitOfWork, locker OutletLocker, publisher ReportPublisher, opts Options) DayEndService {
	return &dayEndService{uow: uow, locker: locker, publisher: publisher, opts: opts.withDefaults()}
}

func reportNumber(sessionNumber string) string { return "Z-" + sessionNumber }

func reportAlreadyGenerated(s *model.Session) error {
	return apierror.Conflict(fmt.Sprintf("day-end report already generated for session %s", s.SessionNumber)).
		With("session_number", s.SessionNumber)
}

// ── Generate ──────────────────────────────────────────────────────────────────

func (s *dayEndService) Generate(ctx context.Context, outletID uuid.UUID, operator string, req dto.GenerateZReportRequest) (*dto.DayEndReportResponse, error) {
	ctx, span := tracer.Start(ctx, "dayend.Generate", trace.WithAttributes(attribute.String("outlet_id", outletID.String())))
	defer span.End()

	resp, err := s.generate(ctx, outletID, operator, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apierror.KindOf(err).String())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("report_number", resp.ReportNumber),
		attribute.String("cash_status", resp.CashStatus),
	)
	return resp, nil
}

func (s *dayEndService) generate(ctx context.Context, outletID uuid.UUID, operator string, req dto.GenerateZReportRequest) (*dto.DayEndReportResponse, error) {
	counted, countedDenoms, hasCount, err := cash.ResolveAmount(req.ClosingCash, toDenominations(req.Denominations))
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opts.bound(ctx)
	defer cancel()
	release, err := lockOutlet(ctx, s.locker, outletID)
	if err != nil {
		return nil, err
	}
	defer release()

	var report model.DayEndReport
	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		session, err := s.locateSession(ctx, r, outletID)
		if err != nil {
			return err
		}

		switch _, err := r.Reports.FindBySessionID(ctx, session.ID); {
		case err == nil:
			return reportAlreadyGenerated(session)
		case !errors.Is(err, repository.ErrNotFound):
			return storageFailure("find report", err)
		}

		if err := ensureNoPendingOrders(ctx, r, session); err != nil {
			return err
		}

		// A session closed earlier keeps its frozen snapshot.
		if session.IsOpen() {
			if err := s.agg.RecalculateSession(ctx, r, session); err != nil {
				return storageFailure("recalculate session", err)
			}
		}

		figures, err := s.agg.DayEndFigures(ctx, r, session.ID)
		if err != nil {
			return storageFailure("aggregate day-end figures", err)
		}

		expected := cash.ExpectedCash(session.OpeningCash, figures.CashCollected, figures.CashRefunds)
		closing, assumed, err := s.closingCash(session, expected, counted, hasCount)
		if err != nil {
			return err
		}
		rec := cash.Reconcile(closing, expected)

		now := s.opts.Now()
		closedAt := now
		if session.ClosedAt != nil {
			closedAt = *session.ClosedAt
		}

		staff, err := s.closeShifts(ctx, r, session.ID, closedAt)
		if err != nil {
			return err
		}

		report = model.DayEndReport{
			ID:                           uuid.New(),
			ReportNumber:                 reportNumber(session.SessionNumber),
			SessionID:                    session.ID,
			SessionNumber:                session.SessionNumber,
			OutletID:                     session.OutletID,
			RestaurantID:                 session.RestaurantID,
			BusinessDate:                 session.BusinessDate,
			OpeningCash:                  session.OpeningCash,
			CashCollected:                figures.CashCollected,
			CashRefunds:                  figures.CashRefunds,
			ExpectedCash:                 expected,
			ClosingCash:                  rec.Actual,
			CashDifference:               rec.Variance,
			CashStatus:                   rec.Status,
			ClosingCashAssumed:           assumed,
			TotalOrders:                  int(figures.Sales.Count),
			TotalSales:                   figures.Sales.Total,
			TotalTax:                     figures.Sales.Tax,
			TotalDiscount:                figures.Sales.Discount,
			ComplimentaryItemsCount:      int(figures.Complimentary.Quantity),
			TotalComplimentaryItemsValue: figures.Complimentary.Value,
			VoidedBillsCount:             int(figures.Voided.Count),
			TotalVoidedAmount:            figures.Voided.Total,
			CreditBillsCount:             int(figures.Credit.Count),
			CreditOutstanding:            figures.Credit.Outstanding,
			CreditSettled:                figures.Credit.Settled,
			Payments:                     figures.Payments,
			StaffSummary:                 staff,
			SessionOpenedAt:              session.OpenedAt,
			SessionClosedAt:              closedAt,
			GeneratedBy:                  operator,
			GeneratedAt:                  now,
			Notes:                        req.Notes,
		}
		if err := r.Reports.Create(ctx, &report); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return reportAlreadyGenerated(session)
			}
			return storageFailure("create report", err)
		}

		mergeClosing(session, rec, countedDenoms, closedAt, operator, req.Notes)
		session.Status = model.SessionClosed
		session.ReportID = &report.ID
		if err := r.Sessions.Update(ctx, session); err != nil {
			return storageFailure("close session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("report_number", report.ReportNumber).
		Str("outlet_id", outletID.String()).
		Str("total_sales", report.TotalSales.StringFixed(2)).
		Str("cash_difference", report.CashDifference.StringFixed(2)).
		Str("cash_status", string(report.CashStatus)).
		Str("operator", operator).
		Msg("day-end report generated")

	if s.publisher != nil {
		if err := s.publisher.PublishDayEndReport(context.WithoutCancel(ctx), report.ID); err != nil {
			log.Error().Err(err).Str("report_id", report.ID.String()).Msg("day-end report delivery not enqueued")
		}
	}
	return toReportResponse(&report), nil
}

// locateSession returns the outlet's OPEN session. Without one it falls back
// to the latest session, which is reportable only when an earlier standalone
// close left it without a report.
func (s *dayEndService) locateSession(ctx context.Context, r repository.Repos, outletID uuid.UUID) (*model.Session, error) {
	session, err := r.Sessions.FindOpenByOutlet(ctx, outletID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storageFailure("find open session", err)
	}

	latest, err := r.Sessions.FindLatestByOutlet(ctx, outletID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, noActiveSession(outletID)
	}
	if err != nil {
		return nil, storageFailure("find latest session", err)
	}
	if latest.ReportID != nil {
		return nil, reportAlreadyGenerated(latest)
	}
	return latest, nil
}

// closingCash picks the drawer figure for the report: the count recorded by a
// standalone close, then the count sent with the request, then expected cash.
// A request count that disagrees with a recorded one is rejected so the
// session and its report never carry different drawer figures.
func (s *dayEndService) closingCash(session *model.Session, expected, counted decimal.Decimal, hasCount bool) (decimal.Decimal, bool, error) {
	switch {
	case session.ClosingCash != nil:
		if hasCount && !counted.Equal(*session.ClosingCash) {
			return decimal.Zero, false, apierror.Precondition(fmt.Sprintf("session %s was already counted at %s", session.SessionNumber, session.ClosingCash.StringFixed(2))).
				With("session_number", session.SessionNumber).
				With("recorded_closing_cash", session.ClosingCash.StringFixed(2))
		}
		return *session.ClosingCash, false, nil
	case hasCount:
		return counted, false, nil
	case s.opts.RequireClosingCount:
		return decimal.Zero, false, apierror.Precondition("closing_cash or denominations are required to close the day").
			With("session_number", session.SessionNumber)
	}
	log.Warn().
		Str("session_number", session.SessionNumber).
		Str("expected_cash", expected.StringFixed(2)).
		Msg("no drawer count supplied; closing cash assumed equal to expected cash")
	return expected, true, nil
}

// closeShifts force-closes every ACTIVE shift of the session with fresh totals
// and returns the staff summary of all its shifts.
func (s *dayEndService) closeShifts(ctx context.Context, r repository.Repos, sessionID uuid.UUID, endedAt time.Time) ([]model.StaffShiftSummary, error) {
	active := model.ShiftActive
	open, err := r.Shifts.ListBySession(ctx, sessionID, &active)
	if err != nil {
		return nil, storageFailure("list active shifts", err)
	}
	for i := range open {
		sh := &open[i]
		t, err := s.agg.ShiftTotals(ctx, r, sh.ID)
		if err != nil {
			return nil, storageFailure("aggregate shift totals", err)
		}
		applyShiftTotals(sh, t)
		end := endedAt
		sh.EndedAt = &end
		sh.Status = model.ShiftClosed
		if err := r.Shifts.Update(ctx, sh); err != nil {
			return nil, storageFailure("close shift", err)
		}
		log.Info().Str("shift_id", sh.ID.String()).Str("staff", sh.StaffName).Msg("shift force-closed at day end")
	}

	all, err := r.Shifts.ListBySession(ctx, sessionID, nil)
	if err != nil {
		return nil, storageFailure("list shifts", err)
	}
	summary := make([]model.StaffShiftSummary, len(all))
	for i, sh := range all {
		summary[i] = shiftSummary(sh)
	}
	return summary, nil
}

// mergeClosing fills the session's closing fields that an earlier standalone
// close did not set. Values already present are kept.
func mergeClosing(s *model.Session, rec cash.Reconciliation, denoms []model.Denomination, closedAt time.Time, operator string, notes *string) {
	if s.ClosingCash == nil {
		s.ClosingCash = &rec.Actual
	}
	if len(s.ClosingDenominations) == 0 && len(denoms) > 0 {
		s.ClosingDenominations = denoms
	}
	if s.CashVariance == nil {
		s.CashVariance = &rec.Variance
	}
	if s.CashStatus == nil {
		s.CashStatus = &rec.Status
	}
	if s.ClosedAt == nil {
		s.ClosedAt = &closedAt
	}
	if s.ClosedBy == nil {
		s.ClosedBy = &operator
	}
	if s.ClosingNotes == nil {
		s.ClosingNotes = notes
	}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *dayEndService) Get(ctx context.Context, reportID uuid.UUID) (*dto.DayEndReportResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	rep, err := s.uow.Repos().Reports.FindByID(ctx, reportID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierror.NotFound("day-end report not found").With("report_id", reportID.String())
	}
	if err != nil {
		return nil, storageFailure("find report", err)
	}
	return toReportResponse(rep), nil
}

func (s *dayEndService) list(ctx context.Context, filter dto.ReportListFilter) ([]model.DayEndReport, error) {
	f := repository.ReportFilter{OutletIDs: outletScope(filter.OutletIDs)}
	if id, err := uuid.Parse(filter.OutletID); err == nil {
		f.OutletID = &id
	}
	if id, err := uuid.Parse(filter.RestaurantID); err == nil {
		f.RestaurantID = &id
	}
	if filter.Date != "" {
		d, err := time.Parse("2006-01-02", filter.Date)
		if err != nil {
			return nil, apierror.Precondition("date must be YYYY-MM-DD").With("date", filter.Date)
		}
		f.BusinessDate = &d
	}
	reports, err := s.uow.Repos().Reports.List(ctx, f)
	if err != nil {
		return nil, storageFailure("list reports", err)
	}
	return reports, nil
}

func (s *dayEndService) List(ctx context.Context, filter dto.ReportListFilter) ([]dto.DayEndReportResponse, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	reports, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DayEndReportResponse, len(reports))
	for i := range reports {
		out[i] = *toReportResponse(&reports[i])
	}
	return out, nil
}

func (s *dayEndService) Export(ctx context.Context, filter dto.ReportListFilter, w io.Writer) error {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	reports, err := s.list(ctx, filter)
	if err != nil {
		return err
	}
	return infra.WriteDayEndReportsXLSX(w, reports)
}
