package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callcenter_backend/internal/adapters/storage"
	"callcenter_backend/internal/assignment"
	assignmentrepo "callcenter_backend/internal/assignment/repository"
	"callcenter_backend/internal/events"
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/internal/http/router"
	"callcenter_backend/internal/inventory"
	inventoryrepo "callcenter_backend/internal/inventory/repository"
	inventoryservice "callcenter_backend/internal/inventory/service"
	"callcenter_backend/internal/leadsync"
	leadsyncrepo "callcenter_backend/internal/leadsync/repository"
	"callcenter_backend/internal/orders"
	ordersrepo "callcenter_backend/internal/orders/repository"
	"callcenter_backend/internal/predictions"
	predictionsrepo "callcenter_backend/internal/predictions/repository"
	"callcenter_backend/internal/scheduler"
	"callcenter_backend/internal/users"
	usersrepo "callcenter_backend/internal/users/repository"
	"callcenter_backend/internal/webhook"
	"callcenter_backend/migrations"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/phone"
	"callcenter_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		applied, err := db.RunMigrations(ctx, cfg, migrations.FS)
		if err == nil && len(applied) > 0 {
			log.Info("migrations applied", "versions", applied)
		}
		return err
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	normalizer := phone.NewNormalizer(cfg.GetPhoneDefaultRegion())

	alerts, closeAlerts := initSchedulerClient(cfg, log)
	if closeAlerts != nil {
		defer closeAlerts()
	}
	scheduler.SubscribeStockAlerts(eventBus, alerts)

	rdb := initRedis(cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	invoices := initInvoiceStorage(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notifier := inventoryservice.NewNotifier(eventBus, log)
	inventoryModule := inventory.NewModule(inventoryrepo.New(pool), notifier, invoices, cfg.GetMinioBucketStockInvoices(), val)

	synchronizer := leadsync.New(leadsyncrepo.New(pool), eventBus, log)
	ordersModule := orders.NewModule(ordersrepo.New(pool), notifier, synchronizer, normalizer, val, log)
	predictionsModule := predictions.NewModule(predictionsrepo.New(pool), ordersModule.Service(), normalizer, val, log)

	deduper := webhook.NewRedisDeduper(rdb, cfg.GetWebhookDedupeWindow())
	webhookModule := webhook.NewModule(pool, deduper, normalizer, cfg.GetWebhookRatePerMinute(), val, log)

	usersModule := users.NewModule(usersrepo.New(pool), val, log)
	assignmentModule := assignment.NewModule(assignmentrepo.New(pool), val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			inventoryModule,
			ordersModule,
			predictionsModule,
			webhookModule,
			usersModule,
			assignmentModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		eventBus.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; low-stock alerts disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; webhook deduplication disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; webhook deduplication disabled", "error", err)
		return nil
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt)
}

func initInvoiceStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) *storage.MinIOService {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; invoice uploads disabled")
		return nil
	}

	svc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	bucket := cfg.GetMinioBucketStockInvoices()
	if err := withRetry(ctx, log, "ensure invoice bucket", 5, 2*time.Second, func() error {
		return svc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "bucket", bucket)
	return svc
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
