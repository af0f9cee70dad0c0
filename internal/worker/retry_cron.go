package worker

// Background loop that replays dead-lettered report deliveries once the SMTP
// breaker allows traffic again. Entries that have already been replayed
// MaxReplays times are parked under dlq:{queue}:parked.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"restopos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	replayTickInterval = 5 * time.Minute
	replayBatchSize    = 10

	// MaxReplays bounds how often one job may return from the DLQ.
	MaxReplays = 3
)

// ReplayConfig holds the dependencies of the replay loop.
type ReplayConfig struct {
	RDB   *redis.Client
	CB    *infra.CircuitBreaker
	Queue string
}

// StartDLQReplay launches the replay loop; it stops when ctx is done.
func StartDLQReplay(ctx context.Context, cfg ReplayConfig) {
	go func() {
		ticker := time.NewTicker(replayTickInterval)
		defer ticker.Stop()

		log.Info().Str("queue", cfg.Queue).Msg("dlq replay started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dlq replay shutting down")
				return
			case <-ticker.C:
				replayDeadLetters(ctx, cfg)
			}
		}
	}()
}

// replayTarget decides where a dead letter goes: back to its queue as a fresh
// job, or to the parked list.
func replayTarget(entry DLQEntry) (requeue bool, job Job) {
	if entry.Replays >= MaxReplays {
		return false, Job{}
	}
	return true, Job{Type: entry.JobType, Payload: entry.Payload, Replays: entry.Replays + 1}
}

func replayDeadLetters(ctx context.Context, cfg ReplayConfig) {
	// Don't hammer a relay that is still failing.
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("dlq replay: circuit breaker is open, skipping tick")
		return
	}

	dlqKey := DLQPrefix + cfg.Queue
	for i := 0; i < replayBatchSize; i++ {
		raw, err := cfg.RDB.RPop(ctx, dlqKey).Result()
		if errors.Is(err, redis.Nil) {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq replay: pop failed")
			return
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Msg("dlq replay: dropping malformed entry")
			continue
		}

		requeue, job := replayTarget(entry)
		if !requeue {
			if err := cfg.RDB.LPush(ctx, dlqKey+":parked", raw).Err(); err != nil {
				log.Error().Err(err).Msg("dlq replay: failed to park entry")
			}
			log.Warn().Str("job_type", entry.JobType).Int("replays", entry.Replays).Msg("dlq replay: entry parked")
			continue
		}

		encoded, err := json.Marshal(job)
		if err == nil {
			err = cfg.RDB.LPush(ctx, cfg.Queue, encoded).Err()
		}
		if err != nil {
			log.Error().Err(err).Msg("dlq replay: requeue failed, restoring entry")
			_ = cfg.RDB.RPush(ctx, dlqKey, raw).Err()
			return
		}
		log.Info().Str("job_type", job.Type).Int("replay", job.Replays).Msg("dlq replay: job requeued")
	}
}
