package scheduler

import (
	"context"
	"time"

	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	leadSyncClaimBatch    = 50
	leadSyncStaleAfter    = 10 * time.Minute
	defaultRepairInterval = 30 * time.Second
)

// RepairQueue is the outbox side of lead_sync_failures.
type RepairQueue interface {
	ClaimDue(ctx context.Context, limit int) ([]uuid.UUID, error)
	MarkPending(ctx context.Context, failureID uuid.UUID) error
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// LeadSyncRepairDispatcher turns due sync failures into repair tasks.
type LeadSyncRepairDispatcher struct {
	client   *Client
	repo     RepairQueue
	interval time.Duration
	log      *logger.Logger
}

func NewLeadSyncRepairDispatcher(client *Client, repo RepairQueue, interval time.Duration, log *logger.Logger) *LeadSyncRepairDispatcher {
	if interval <= 0 {
		interval = defaultRepairInterval
	}
	return &LeadSyncRepairDispatcher{client: client, repo: repo, interval: interval, log: log}
}

func (d *LeadSyncRepairDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatch(ctx)
	}
}

func (d *LeadSyncRepairDispatcher) dispatch(ctx context.Context) int {
	if released, err := d.repo.ReleaseStale(ctx, leadSyncStaleAfter); err != nil {
		d.log.Warn("lead sync release failed", "error", err)
	} else if released > 0 {
		d.log.Info("lead sync failures released", "count", released)
	}

	ids, err := d.repo.ClaimDue(ctx, leadSyncClaimBatch)
	if err != nil {
		d.log.Warn("lead sync claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, id := range ids {
		task, err := NewLeadSyncRepairTask(LeadSyncRepairPayload{FailureID: id.String()})
		if err == nil {
			_, err = d.client.client.EnqueueContext(ctx, task, asynq.Queue(d.client.queue), asynq.MaxRetry(0))
		}
		if err != nil {
			d.log.Warn("lead sync enqueue failed", "failureId", id, "error", err)
			_ = d.repo.MarkPending(ctx, id)
			continue
		}
		enqueued++
	}
	return enqueued
}
