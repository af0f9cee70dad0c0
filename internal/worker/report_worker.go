package worker

// Delivers committed day-end reports: renders the Z-Report PDF and mails it
// to the configured recipients.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportMailer is the subset of infra.Mailer the worker needs.
type ReportMailer interface {
	Enabled() bool
	SendDayEndReport(to []string, rep *model.DayEndReport, pdfPath string) error
}

// ReportArchiver keeps a durable copy of rendered PDFs (infra.ReportArchive).
type ReportArchiver interface {
	Archive(ctx context.Context, object, localPath string) error
}

// ReportDeliveryWorker processes QueueReportDelivery jobs.
type ReportDeliveryWorker struct {
	reports        repository.ReportRepository
	mailer         ReportMailer
	archiver       ReportArchiver
	recipients     []string
	pdfStoragePath string
	render         func(rep *model.DayEndReport, storagePath string) (string, error)
}

func NewReportDeliveryWorker(reports repository.ReportRepository, mailer ReportMailer, recipients []string, pdfStoragePath string) *ReportDeliveryWorker {
	return &ReportDeliveryWorker{
		reports:        reports,
		mailer:         mailer,
		recipients:     recipients,
		pdfStoragePath: pdfStoragePath,
		render:         infra.GenerateDayEndPDF,
	}
}

// WithArchiver uploads every rendered PDF before it is mailed.
func (w *ReportDeliveryWorker) WithArchiver(a ReportArchiver) *ReportDeliveryWorker {
	w.archiver = a
	return w
}

func archiveObjectName(rep *model.DayEndReport) string {
	return fmt.Sprintf("day-end/%s/%s/%s.pdf", rep.OutletID, rep.BusinessDate.Format("2006-01-02"), rep.ReportNumber)
}

// Process renders and mails one report. Missing reports and bad payloads are
// permanent failures; SMTP errors are retried by the pool.
func (w *ReportDeliveryWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReportDeliveryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("report_worker: invalid payload: %w", err))
	}
	id, err := uuid.Parse(payload.ReportID)
	if err != nil {
		return Permanent(fmt.Errorf("report_worker: invalid report_id %q", payload.ReportID))
	}

	rep, err := w.reports.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Permanent(fmt.Errorf("report_worker: report %s not found", id))
	}
	if err != nil {
		return fmt.Errorf("report_worker: load report: %w", err)
	}

	pdfPath, err := w.render(rep, w.pdfStoragePath)
	if err != nil {
		return fmt.Errorf("report_worker: render PDF: %w", err)
	}
	log.Info().Str("report_number", rep.ReportNumber).Str("pdf", pdfPath).Msg("report_worker: PDF generated")

	if w.archiver != nil {
		object := archiveObjectName(rep)
		if err := w.archiver.Archive(ctx, object, pdfPath); err != nil {
			return fmt.Errorf("report_worker: archive: %w", err)
		}
		log.Info().Str("report_number", rep.ReportNumber).Str("object", object).Msg("report_worker: PDF archived")
	}

	if !w.mailer.Enabled() || len(w.recipients) == 0 {
		log.Info().Str("report_number", rep.ReportNumber).Msg("report_worker: email delivery not configured, skipping")
		return nil
	}
	if err := w.mailer.SendDayEndReport(w.recipients, rep, pdfPath); err != nil {
		return fmt.Errorf("report_worker: send: %w", err)
	}
	log.Info().
		Str("report_number", rep.ReportNumber).
		Strs("to", w.recipients).
		Msg("report_worker: report emailed")
	return nil
}
