package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ReportDeliveryPayload is the job payload sent to QueueReportDelivery.
type ReportDeliveryPayload struct {
	ReportID string `json:"report_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PublishDayEndReport enqueues PDF rendering and email delivery of a report.
func (d *Dispatcher) PublishDayEndReport(ctx context.Context, reportID uuid.UUID) error {
	return d.enqueue(ctx, QueueReportDelivery, JobReportDelivery, ReportDeliveryPayload{ReportID: reportID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload, 0)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Publisher is satisfied by Dispatcher, LocalDispatcher and infra.ReportEvents.
type Publisher interface {
	PublishDayEndReport(ctx context.Context, reportID uuid.UUID) error
}

// FanOut publishes to every publisher and joins their errors. One failing
// publisher does not stop the others.
type FanOut []Publisher

func (f FanOut) PublishDayEndReport(ctx context.Context, reportID uuid.UUID) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishDayEndReport(ctx, reportID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrQueueFull is returned by LocalDispatcher when its buffer is exhausted.
var ErrQueueFull = errors.New("worker: local queue full")

// LocalDispatcher runs jobs in-process for deployments without Redis. Jobs
// still in the buffer are lost on shutdown.
type LocalDispatcher struct {
	pool *Pool
	jobs chan string
}

func NewLocalDispatcher(pool *Pool, buffer int) *LocalDispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &LocalDispatcher{pool: pool, jobs: make(chan string, buffer)}
}

func (d *LocalDispatcher) PublishDayEndReport(_ context.Context, reportID uuid.UUID) error {
	encoded, err := encodeJob(JobReportDelivery, ReportDeliveryPayload{ReportID: reportID.String()}, 0)
	if err != nil {
		return err
	}
	select {
	case d.jobs <- string(encoded):
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches numWorkers goroutines draining the buffer until ctx is done.
func (d *LocalDispatcher) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case raw := <-d.jobs:
					d.pool.Process(ctx, QueueReportDelivery, raw)
				}
			}
		}()
	}
	log.Info().Msgf("local worker pool started with %d workers", numWorkers)
}
