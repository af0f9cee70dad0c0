package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restopos/internal/config"
	"restopos/internal/infra"
	"restopos/internal/repository"
	"restopos/internal/router"
	"restopos/internal/service"
	"restopos/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ──────────────────────────────────────────────────────────────
	var uow repository.UnitOfWork
	switch cfg.StorageDriver {
	case "memory":
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		uow = repository.NewMemoryStore()
	default:
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		uow = repository.NewUnitOfWork(db)
	}

	// ── Redis: outlet locks and the delivery queue ───────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	}

	var locker service.OutletLocker = infra.NewLocalLocker(cfg.OutletLockWait)
	if rdb != nil {
		locker = infra.NewRedisLocker(rdb, cfg.OutletLockTTL, cfg.OutletLockWait)
	}

	// ── Async report delivery ────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	delivery := worker.NewReportDeliveryWorker(uow.Repos().Reports, mailer, cfg.Recipients(), cfg.PDFStoragePath)
	gcpOpts := infra.GCPClientOptions(cfg.GCPCredentialsJSON)
	if cfg.ReportArchiveBucket != "" {
		archive, err := infra.NewReportArchive(ctx, cfg.ReportArchiveBucket, gcpOpts...)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open report archive")
		}
		defer archive.Close()
		delivery.WithArchiver(archive)
	}

	pool := worker.NewPool(rdb, 0)
	pool.Register(worker.JobReportDelivery, delivery.Process)

	publishers := worker.FanOut{}
	if rdb != nil {
		publishers = append(publishers, worker.NewDispatcher(rdb))
		pool.Run(ctx, cfg.WorkerPoolSize)
		worker.StartDLQReplay(ctx, worker.ReplayConfig{RDB: rdb, CB: mailer.Breaker(), Queue: worker.QueueReportDelivery})
	} else {
		local := worker.NewLocalDispatcher(pool, 64)
		local.Start(ctx, cfg.WorkerPoolSize)
		publishers = append(publishers, local)
	}
	if cfg.ReportEventsTopic != "" {
		events, err := infra.NewReportEvents(ctx, cfg.GCPProjectID, cfg.ReportEventsTopic, gcpOpts...)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to report events topic")
		}
		defer events.Close()
		publishers = append(publishers, events)
	}
	var publisher service.ReportPublisher = publishers

	r := router.New(ctx, cfg, router.Deps{
		UOW:       uow,
		RDB:       rdb,
		Locker:    locker,
		Publisher: publisher,
		MailCB:    mailer.Breaker(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("storage", cfg.StorageDriver).Msgf("restopos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	cancel()
	log.Info().Msg("server exited")
}
