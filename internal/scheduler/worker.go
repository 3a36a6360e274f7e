package scheduler

import (
	"context"
	"fmt"

	"callcenter_backend/internal/email"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Repairer re-applies a recorded lead sync failure.
type Repairer interface {
	Repair(ctx context.Context, failureID uuid.UUID) error
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	repairer   Repairer
	mailer     email.Sender
	recipients []string
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, repairer Repairer, mailer email.Sender, recipients []string, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := newWorker(repairer, mailer, recipients, log)
	w.server = server
	return w, nil
}

func newWorker(repairer Repairer, mailer email.Sender, recipients []string, log *logger.Logger) *Worker {
	if mailer == nil {
		mailer = email.NoopSender{}
	}
	w := &Worker{
		mux:        asynq.NewServeMux(),
		repairer:   repairer,
		mailer:     mailer,
		recipients: recipients,
		log:        log,
	}
	w.mux.HandleFunc(TaskLeadSyncRepair, w.handleLeadSyncRepair)
	w.mux.HandleFunc(TaskStockLowAlert, w.handleStockLowAlert)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleLeadSyncRepair never asks asynq to retry: a failed repair is
// rescheduled on its row and picked up again by the dispatcher.
func (w *Worker) handleLeadSyncRepair(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadSyncRepairPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	failureID, err := uuid.Parse(payload.FailureID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := w.repairer.Repair(ctx, failureID); err != nil {
		w.log.Warn("lead sync repair failed", "failureId", failureID, "error", err)
	}
	return nil
}

func (w *Worker) handleStockLowAlert(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStockLowAlertPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.mailer.SendLowStockAlert(ctx, w.recipients, email.LowStockAlert{
		ProductID:   payload.ProductID,
		ProductName: payload.ProductName,
		Stock:       payload.Stock,
		Threshold:   payload.Threshold,
		OccurredAt:  payload.OccurredAt,
	})
}
