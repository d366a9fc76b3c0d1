package cron

import (
	"context"
	"fmt"
	"time"

	"astrobook/services/booking"
	"astrobook/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HoldSweeper is the part of the reservation flow the worker drives.
type HoldSweeper interface {
	ExpireHolds(ctx context.Context, now time.Time) (booking.SweepResult, error)
}

type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SweepInterval time.Duration
	Location      *time.Location
}

// HoldWorker schedules and runs the periodic hold-expiry sweep.
type HoldWorker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	interval  time.Duration
	logger    *zap.Logger
}

func NewHoldWorker(cfg WorkerConfig, sweeper HoldSweeper, logger *zap.Logger) *HoldWorker {
	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqLogger := logger.Named("asynq").Sugar()

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
			Logger:   asynqLogger,
			LogLevel: asynq.WarnLevel,
		},
	)
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{
		Location: cfg.Location,
		Logger:   asynqLogger,
		LogLevel: asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeExpireHolds, HandleExpireHolds(sweeper, time.Now, logger))

	return &HoldWorker{server: srv, scheduler: scheduler, mux: mux, interval: cfg.SweepInterval, logger: logger}
}

// Start registers the periodic sweep and starts processing in the background.
func (w *HoldWorker) Start() error {
	task, opts, err := tasks.NewExpireHoldsTask(w.interval)
	if err != nil {
		return err
	}
	entryID, err := w.scheduler.Register(fmt.Sprintf("@every %s", w.interval), task, opts...)
	if err != nil {
		return fmt.Errorf("register hold sweep: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := w.server.Start(w.mux); err != nil {
		w.scheduler.Shutdown()
		return fmt.Errorf("start worker: %w", err)
	}
	w.logger.Info("hold sweeper started", zap.String("entryId", entryID), zap.Duration("interval", w.interval))
	return nil
}

func (w *HoldWorker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	w.logger.Info("hold sweeper stopped")
}

// HandleExpireHolds runs one sweep per task.
func HandleExpireHolds(sweeper HoldSweeper, now func() time.Time, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseExpireHoldsPayload(task.Payload())
		if err != nil {
			logger.Error("invalid hold sweep payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		before := p.Before
		if before.IsZero() {
			before = now()
		}

		res, err := sweeper.ExpireHolds(ctx, before)
		if err != nil {
			logger.Error("hold sweep failed", zap.Error(err))
			return err
		}
		logger.Debug("hold sweep done", zap.Int("examined", res.Examined), zap.Int("abandoned", res.Abandoned))
		return nil
	}
}
