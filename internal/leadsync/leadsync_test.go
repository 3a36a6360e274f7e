package leadsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	leads       map[uuid.UUID]LeadStatus
	orders      map[uuid.UUID]domain.Order
	failures    map[uuid.UUID]Failure
	resolved    map[uuid.UUID]bool
	setErr      error
	rescheduled []time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:    make(map[uuid.UUID]LeadStatus),
		orders:   make(map[uuid.UUID]domain.Order),
		failures: make(map[uuid.UUID]Failure),
		resolved: make(map[uuid.UUID]bool),
	}
}

func (s *fakeStore) InTx(_ context.Context, fn func(w LeadWriter) error) error {
	return fn(s)
}

func (s *fakeStore) SetLeadStatus(_ context.Context, leadID uuid.UUID, status LeadStatus) error {
	if s.setErr != nil {
		return s.setErr
	}
	if _, ok := s.leads[leadID]; !ok {
		return ErrLeadNotFound
	}
	s.leads[leadID] = status
	return nil
}

func (s *fakeStore) RecordFailure(_ context.Context, f Failure) error {
	for id, existing := range s.failures {
		if existing.OrderID == f.OrderID && !s.resolved[id] {
			f.ID = id
			s.failures[id] = f
			return nil
		}
	}
	f.ID = uuid.New()
	s.failures[f.ID] = f
	return nil
}

func (s *fakeStore) ResolveFailures(_ context.Context, orderID uuid.UUID) error {
	for id, f := range s.failures {
		if f.OrderID == orderID {
			s.resolved[id] = true
		}
	}
	return nil
}

func (s *fakeStore) GetFailure(_ context.Context, id uuid.UUID) (Failure, error) {
	f, ok := s.failures[id]
	if !ok {
		return Failure{}, errors.New("not found")
	}
	return f, nil
}

func (s *fakeStore) RescheduleFailure(_ context.Context, id uuid.UUID, lastError string, next time.Time) error {
	f := s.failures[id]
	f.Attempts++
	f.LastError = lastError
	f.NextAttemptAt = next
	s.failures[id] = f
	s.rescheduled = append(s.rescheduled, next)
	return nil
}

func (s *fakeStore) ShareOrder(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func inboundOrder(store *fakeStore, status domain.Status) domain.Order {
	leadID := uuid.New()
	store.leads[leadID] = LeadPending
	o := domain.Order{ID: uuid.New(), Status: status, SourceType: domain.SourceInboundLead, SourceLeadID: &leadID}
	store.orders[o.ID] = o
	return o
}

func TestLeadStatusForCoversEveryOrderStatus(t *testing.T) {
	want := map[domain.Status]LeadStatus{
		domain.StatusPending:   LeadPending,
		domain.StatusTake:      LeadContacted,
		domain.StatusCallAgain: LeadContacted,
		domain.StatusConfirmed: LeadConverted,
		domain.StatusShipped:   LeadConverted,
		domain.StatusDelivered: LeadConverted,
		domain.StatusPaid:      LeadConverted,
		domain.StatusReturned:  LeadRejected,
		domain.StatusTrashed:   LeadRejected,
		domain.StatusCancelled: LeadRejected,
	}
	for _, s := range domain.AllStatuses() {
		got, ok := LeadStatusFor(s)
		if !ok || got != want[s] {
			t.Fatalf("%s: expected %s, got %s (%v)", s, want[s], got, ok)
		}
	}
}

func TestSyncMirrorsEveryStatus(t *testing.T) {
	store := newFakeStore()
	sync := New(store, nil, logger.Discard())

	for _, s := range domain.AllStatuses() {
		order := inboundOrder(store, s)
		if err := sync.Sync(context.Background(), order); err != nil {
			t.Fatalf("%s: sync: %v", s, err)
		}
		want, _ := LeadStatusFor(s)
		if got := store.leads[*order.SourceLeadID]; got != want {
			t.Fatalf("%s: lead status %s, want %s", s, got, want)
		}
	}
}

func TestStaleSnapshotsMirrorCommittedStatus(t *testing.T) {
	store := newFakeStore()
	sync := New(store, nil, logger.Discard())
	order := inboundOrder(store, domain.StatusCancelled)

	stale := order
	stale.Status = domain.StatusTake

	// The cancel's sync lands first, then the earlier take's sync arrives late.
	if err := sync.Sync(context.Background(), order); err != nil {
		t.Fatalf("sync cancelled: %v", err)
	}
	if err := sync.Sync(context.Background(), stale); err != nil {
		t.Fatalf("sync take: %v", err)
	}

	if got := store.leads[*order.SourceLeadID]; got != LeadRejected {
		t.Fatalf("expected lead rejected to mirror cancelled order, got %s", got)
	}
	if len(store.failures) != 0 {
		t.Fatalf("expected no failure rows, got %d", len(store.failures))
	}
}

func TestSyncIgnoresOtherSources(t *testing.T) {
	store := newFakeStore()
	sync := New(store, nil, logger.Discard())
	leadID := uuid.New()

	order := domain.Order{ID: uuid.New(), Status: domain.StatusConfirmed, SourceType: domain.SourcePredictionLead, SourceLeadID: &leadID}
	if err := sync.Sync(context.Background(), order); err != nil {
		t.Fatalf("expected prediction lead orders to be skipped, got %v", err)
	}
}

func TestSyncFailureIsRecordedAndPublished(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	sync := New(store, bus, logger.Discard())
	order := inboundOrder(store, domain.StatusConfirmed)
	store.setErr = errors.New("lock timeout")

	err := sync.Sync(context.Background(), order)
	if err == nil {
		t.Fatalf("expected error to be reported")
	}
	if len(store.failures) != 1 {
		t.Fatalf("expected one failure row, got %d", len(store.failures))
	}
	for _, f := range store.failures {
		if f.OrderID != order.ID || f.TargetStatus != LeadConverted {
			t.Fatalf("unexpected failure %+v", f)
		}
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected LeadSyncFailed event")
	}
	if _, ok := bus.published[0].(events.LeadSyncFailed); !ok {
		t.Fatalf("unexpected event %T", bus.published[0])
	}
}

func TestRepairUsesCurrentOrderStatus(t *testing.T) {
	store := newFakeStore()
	sync := New(store, nil, logger.Discard())
	order := inboundOrder(store, domain.StatusTake)

	store.setErr = errors.New("lock timeout")
	_ = sync.Sync(context.Background(), order)
	store.setErr = nil

	order.Status = domain.StatusCancelled
	store.orders[order.ID] = order

	var failureID uuid.UUID
	for id := range store.failures {
		failureID = id
	}
	if err := sync.Repair(context.Background(), failureID); err != nil {
		t.Fatalf("repair: %v", err)
	}
	if got := store.leads[*order.SourceLeadID]; got != LeadRejected {
		t.Fatalf("expected lead rejected after repair, got %s", got)
	}
	if !store.resolved[failureID] {
		t.Fatalf("expected failure resolved")
	}
}

func TestRepairReschedulesWithBackoff(t *testing.T) {
	store := newFakeStore()
	sync := New(store, nil, logger.Discard())
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sync.now = func() time.Time { return fixed }
	order := inboundOrder(store, domain.StatusPaid)

	store.setErr = errors.New("connection refused")
	_ = sync.Sync(context.Background(), order)

	var failureID uuid.UUID
	for id := range store.failures {
		failureID = id
	}
	if err := sync.Repair(context.Background(), failureID); err == nil {
		t.Fatalf("expected repair error")
	}
	if len(store.rescheduled) != 1 || !store.rescheduled[0].Equal(fixed.Add(30*time.Second)) {
		t.Fatalf("expected reschedule at +30s, got %v", store.rescheduled)
	}
}

func TestBackoff(t *testing.T) {
	cases := map[int]time.Duration{
		0:  30 * time.Second,
		1:  30 * time.Second,
		2:  time.Minute,
		3:  2 * time.Minute,
		20: time.Hour,
	}
	for attempt, want := range cases {
		if got := Backoff(attempt); got != want {
			t.Fatalf("Backoff(%d) = %s, want %s", attempt, got, want)
		}
	}
}
