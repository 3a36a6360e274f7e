package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"callcenter_backend/internal/email"
	"callcenter_backend/internal/events"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	fail  map[string]error
	seen  map[string]bool
}

func (e *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	for _, opt := range opts {
		if opt.Type() != asynq.TaskIDOpt {
			continue
		}
		id := opt.Value().(string)
		if e.seen == nil {
			e.seen = make(map[string]bool)
		}
		if e.seen[id] {
			return nil, asynq.ErrTaskIDConflict
		}
		e.seen[id] = true
	}
	if err := e.fail[string(task.Payload())]; err != nil {
		return nil, err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fakeRepairQueue struct {
	due     []uuid.UUID
	pending []uuid.UUID
}

func (q *fakeRepairQueue) ClaimDue(_ context.Context, limit int) ([]uuid.UUID, error) {
	if len(q.due) > limit {
		out := q.due[:limit]
		q.due = q.due[limit:]
		return out, nil
	}
	out := q.due
	q.due = nil
	return out, nil
}

func (q *fakeRepairQueue) MarkPending(_ context.Context, id uuid.UUID) error {
	q.pending = append(q.pending, id)
	return nil
}

func (q *fakeRepairQueue) ReleaseStale(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func TestDispatcherEnqueuesDueFailures(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	badTask, _ := NewLeadSyncRepairTask(LeadSyncRepairPayload{FailureID: bad.String()})
	enq := &recordingEnqueuer{fail: map[string]error{string(badTask.Payload()): errors.New("redis down")}}
	queue := &fakeRepairQueue{due: []uuid.UUID{good, bad}}
	d := NewLeadSyncRepairDispatcher(&Client{client: enq, queue: "default"}, queue, time.Second, logger.Discard())

	if n := d.dispatch(context.Background()); n != 1 {
		t.Fatalf("expected one task enqueued, got %d", n)
	}
	if len(enq.tasks) != 1 || enq.tasks[0].Type() != TaskLeadSyncRepair {
		t.Fatalf("unexpected tasks %+v", enq.tasks)
	}
	if len(queue.pending) != 1 || queue.pending[0] != bad {
		t.Fatalf("expected failed enqueue returned to pending, got %v", queue.pending)
	}
}

type fakeRepairer struct {
	ids []uuid.UUID
	err error
}

func (r *fakeRepairer) Repair(_ context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return r.err
}

type recordingMailer struct {
	alerts     []email.LowStockAlert
	recipients []string
}

func (m *recordingMailer) SendLowStockAlert(_ context.Context, recipients []string, alert email.LowStockAlert) error {
	m.recipients = recipients
	m.alerts = append(m.alerts, alert)
	return nil
}

func TestWorkerRepairDoesNotRetryThroughAsynq(t *testing.T) {
	repairer := &fakeRepairer{err: errors.New("lead locked")}
	w := newWorker(repairer, nil, nil, logger.Discard())
	id := uuid.New()

	task, _ := NewLeadSyncRepairTask(LeadSyncRepairPayload{FailureID: id.String()})
	if err := w.mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("expected repair failure to be absorbed, got %v", err)
	}
	if len(repairer.ids) != 1 || repairer.ids[0] != id {
		t.Fatalf("expected repair of %s, got %v", id, repairer.ids)
	}

	bad := asynq.NewTask(TaskLeadSyncRepair, []byte(`{"failureId":"nope"}`))
	if err := w.mux.ProcessTask(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for malformed payload, got %v", err)
	}
}

func TestStockLowEventBecomesOneAlertPerHour(t *testing.T) {
	bus := events.NewInMemoryBus(logger.Discard())
	enq := &recordingEnqueuer{}
	SubscribeStockAlerts(bus, &Client{client: enq, queue: "default"})

	productID := uuid.New()
	event := events.StockLow{BaseEvent: events.NewBaseEvent(), ProductID: productID, ProductName: "Blender", Stock: 2, Threshold: 5}
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if len(enq.tasks) != 1 {
		t.Fatalf("expected one alert task, got %d", len(enq.tasks))
	}

	mailer := &recordingMailer{}
	w := newWorker(&fakeRepairer{}, mailer, []string{"stock@example.com"}, logger.Discard())
	if err := w.mux.ProcessTask(context.Background(), enq.tasks[0]); err != nil {
		t.Fatalf("process alert: %v", err)
	}
	if len(mailer.alerts) != 1 || mailer.alerts[0].ProductName != "Blender" || mailer.alerts[0].Stock != 2 {
		t.Fatalf("unexpected alerts %+v", mailer.alerts)
	}
	if len(mailer.recipients) != 1 || mailer.recipients[0] != "stock@example.com" {
		t.Fatalf("unexpected recipients %v", mailer.recipients)
	}
}
