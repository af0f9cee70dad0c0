package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReportDelivery = "jobs:report_delivery"

	JobReportDelivery = "report_delivery"

	defaultMaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	// Replays counts how many times the job came back from the dead letter queue.
	Replays int `json:"replays,omitempty"`
}

// Handler processes one job payload. Returning an error wrapped with
// Permanent skips the remaining attempts.
type Handler func(ctx context.Context, payload json.RawMessage) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

func encodeJob(jobType string, payload interface{}, replays int) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data, Replays: replays})
}

// Pool dispatches jobs to handlers by type, retrying failures with backoff and
// moving exhausted jobs to the dead letter queue.
type Pool struct {
	rdb         *redis.Client
	handlers    map[string]Handler
	maxAttempts int
	backoff     func(attempt int) time.Duration
	deadLetter  func(ctx context.Context, queue string, job Job, reason string, attempts int)
}

// NewPool creates a pool. rdb may be nil when jobs arrive through a
// LocalDispatcher; dead letters are then only logged.
func NewPool(rdb *redis.Client, maxAttempts int) *Pool {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	p := &Pool{
		rdb:         rdb,
		handlers:    make(map[string]Handler),
		maxAttempts: maxAttempts,
		backoff:     exponentialBackoff,
	}
	p.deadLetter = p.sendToDLQ
	return p
}

// Register binds a job type to its handler.
func (p *Pool) Register(jobType string, h Handler) { p.handlers[jobType] = h }

func (p *Pool) sendToDLQ(ctx context.Context, queue string, job Job, reason string, attempts int) {
	if p.rdb == nil {
		log.Error().Str("queue", queue).Str("job_type", job.Type).Str("reason", reason).Int("attempts", attempts).
			Msg("job failed permanently")
		return
	}
	SendToDLQ(ctx, p.rdb, queue, job, reason, attempts)
}

// Run launches numWorkers goroutines consuming the Redis queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func (p *Pool) Run(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	queues := []string{QueueReportDelivery}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("queue pop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.Process(ctx, result[0], result[1])
		}
	}
}

// Process decodes one raw job from queue and runs its handler.
func (p *Pool) Process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		p.deadLetter(ctx, queue, job, fmt.Sprintf("no handler for job type %q", job.Type), 0)
		return
	}

	attempts := 0
	err := withRetry(ctx, p.maxAttempts, p.backoff, func(attempt int) error {
		attempts = attempt + 1
		err := h(ctx, job.Payload)
		if err != nil && !isPermanent(err) {
			log.Warn().Err(err).Str("job_type", job.Type).Int("attempt", attempts).Msg("job attempt failed")
		}
		return err
	})
	if err != nil {
		p.deadLetter(ctx, queue, job, err.Error(), attempts)
		return
	}
	log.Info().Str("job_type", job.Type).Int("attempts", attempts).Msg("job processed")
}

// exponentialBackoff waits 1s, 2s, 4s ... before attempts 2, 3, 4 ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// withRetry calls fn up to maxAttempts times, sleeping backoff(i) before
// attempt i (i >= 1). A permanent error stops immediately. Returns the last
// error when every attempt fails.
func withRetry(ctx context.Context, maxAttempts int, backoff func(int) time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(i)):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
