package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callcenter_backend/internal/email"
	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leadsync"
	leadsyncrepo "callcenter_backend/internal/leadsync/repository"
	"callcenter_backend/internal/scheduler"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	syncRepo := leadsyncrepo.New(pool)
	synchronizer := leadsync.New(syncRepo, eventBus, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewLeadSyncRepairDispatcher(client, syncRepo, cfg.GetSyncRepairInterval(), log)

	worker, err := scheduler.NewWorker(cfg, synchronizer, newMailer(cfg, log), cfg.GetStockAlertRecipients(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	_ = g.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
}

func newMailer(cfg config.SMTPConfig, log *logger.Logger) email.Sender {
	if !cfg.IsSMTPEnabled() {
		log.Warn("SMTP not configured; low-stock alerts will only be logged")
		return email.NoopSender{}
	}
	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
