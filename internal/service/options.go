package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutletLocker serializes lifecycle writes for one outlet. Implementations
// live in infra (Redis and in-process).
type OutletLocker interface {
	Lock(ctx context.Context, outletID uuid.UUID) (release func(), err error)
}

// ReportPublisher hands a committed day-end report to asynchronous delivery.
type ReportPublisher interface {
	PublishDayEndReport(ctx context.Context, reportID uuid.UUID) error
}

// Options are the knobs shared by the session and day-end services.
type Options struct {
	// Timeout bounds every operation including the outlet lock wait.
	Timeout time.Duration
	// SessionPrefix is the PREFIX of PREFIX-YYYY-MM-DD-NNN session numbers.
	SessionPrefix string
	// RequireClosingCount rejects a Z-Report when no drawer count exists
	// instead of assuming closing cash equals expected cash.
	RequireClosingCount bool
	// Location derives the business date from the wall clock.
	Location *time.Location
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.SessionPrefix == "" {
		o.SessionPrefix = "SES"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.Timeout)
}

// businessDate is the calendar day of t in the business time zone, stored as
// midnight UTC to match a DATE column.
func (o Options) businessDate(t time.Time) time.Time {
	y, m, d := t.In(o.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sessionNumber(prefix string, businessDate time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, businessDate.Format("2006-01-02"), seq)
}

func lockOutlet(ctx context.Context, locker OutletLocker, outletID uuid.UUID) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	release, err := locker.Lock(ctx, outletID)
	if err != nil {
		return nil, apierror.Transient("outlet is busy, retry the request", err).With("outlet_id", outletID.String())
	}
	return release, nil
}

// storageFailure classifies an unexpected repository error. Domain errors pass
// through untouched; everything else is retryable since no partial write is
// ever committed.
func storageFailure(op string, err error) error {
	var domainErr *apierror.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if !repository.IsTransient(err) {
		log.Error().Err(err).Str("op", op).Msg("storage failure")
	}
	return apierror.Transient("storage failure: "+op, err)
}
