// Package leadsync mirrors committed order statuses onto the inbound leads
// they were created from. Propagation is best effort: a failed write never
// undoes the order change, it is recorded and repaired later.
package leadsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadStatus is an inbound lead's lifecycle stage.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadContacted LeadStatus = "contacted"
	LeadConverted LeadStatus = "converted"
	LeadRejected  LeadStatus = "rejected"
)

var orderToLead = map[domain.Status]LeadStatus{
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

// LeadStatusFor maps an order status to the inbound lead status mirroring it.
func LeadStatusFor(status domain.Status) (LeadStatus, bool) {
	lead, ok := orderToLead[status]
	return lead, ok
}

// ErrLeadNotFound is returned by a Store when the inbound lead row is gone.
var ErrLeadNotFound = errors.New("inbound lead not found")

// Failure is an open propagation failure waiting for repair.
type Failure struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	InboundLeadID uuid.UUID
	TargetStatus  LeadStatus
	LastError     string
	Attempts      int
	NextAttemptAt time.Time
}

// LeadWriter writes an inbound lead inside a transaction.
type LeadWriter interface {
	// ShareOrder reads the order and holds it unchanged until the transaction ends.
	ShareOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	SetLeadStatus(ctx context.Context, leadID uuid.UUID, status LeadStatus) error
}

// Store persists lead statuses and the failure outbox.
type Store interface {
	InTx(ctx context.Context, fn func(w LeadWriter) error) error
	RecordFailure(ctx context.Context, f Failure) error
	ResolveFailures(ctx context.Context, orderID uuid.UUID) error
	GetFailure(ctx context.Context, failureID uuid.UUID) (Failure, error)
	RescheduleFailure(ctx context.Context, failureID uuid.UUID, lastError string, nextAttemptAt time.Time) error
}

// Synchronizer pushes order statuses to inbound leads.
type Synchronizer struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New creates a synchronizer. bus may be nil.
func New(store Store, bus events.Bus, log *logger.Logger) *Synchronizer {
	return &Synchronizer{store: store, bus: bus, log: log, now: time.Now}
}

// Sync mirrors the committed status of order onto its inbound lead. The
// snapshot only selects the lead; the written status is read from the order
// row, so late or reordered calls cannot leave an older status behind.
// Orders from other sources are ignored. A returned error means the lead is
// stale and a failure row has been recorded for the repair job.
func (s *Synchronizer) Sync(ctx context.Context, order domain.Order) error {
	if order.SourceType != domain.SourceInboundLead || order.SourceLeadID == nil {
		return nil
	}

	leadID := *order.SourceLeadID
	target, err := s.mirror(ctx, order.ID, leadID)
	if err == nil {
		if rerr := s.store.ResolveFailures(ctx, order.ID); rerr != nil {
			s.log.Warn("failed to resolve lead sync failures", "orderId", order.ID, "error", rerr)
		}
		return nil
	}
	if target == "" {
		target, _ = LeadStatusFor(order.Status)
	}

	s.log.SyncFailure(order.ID.String(), leadID.String(), string(target), err)
	recordErr := s.store.RecordFailure(context.WithoutCancel(ctx), Failure{
		OrderID:       order.ID,
		InboundLeadID: leadID,
		TargetStatus:  target,
		LastError:     err.Error(),
		NextAttemptAt: s.now(),
	})
	if recordErr != nil {
		s.log.Error("failed to record lead sync failure", "orderId", order.ID, "error", recordErr)
	}
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadSyncFailed{
			BaseEvent:     events.NewBaseEvent(),
			OrderID:       order.ID,
			InboundLeadID: leadID,
			TargetStatus:  string(target),
		})
	}
	return err
}

// Repair re-applies the mapping for a recorded failure using the order's
// current status, which may have moved on since the failure.
func (s *Synchronizer) Repair(ctx context.Context, failureID uuid.UUID) error {
	failure, err := s.store.GetFailure(ctx, failureID)
	if err != nil {
		return err
	}

	target, err := s.mirror(ctx, failure.OrderID, failure.InboundLeadID)
	if errors.Is(err, ErrLeadNotFound) {
		s.log.Warn("inbound lead deleted, dropping sync failure", "orderId", failure.OrderID, "leadId", failure.InboundLeadID)
		return s.store.ResolveFailures(ctx, failure.OrderID)
	}
	if err != nil {
		return s.reschedule(ctx, failure, err)
	}

	s.log.Info("inbound lead repaired", "orderId", failure.OrderID, "leadId", failure.InboundLeadID, "status", target)
	return s.store.ResolveFailures(ctx, failure.OrderID)
}

// mirror writes the lead status mapped from the order's committed status.
// The share lock keeps a concurrent transition from committing between the
// read and the write. The returned status is set once the order was read.
func (s *Synchronizer) mirror(ctx context.Context, orderID, leadID uuid.UUID) (LeadStatus, error) {
	var target LeadStatus
	err := s.store.InTx(ctx, func(w LeadWriter) error {
		order, err := w.ShareOrder(ctx, orderID)
		if err != nil {
			return err
		}
		mapped, ok := LeadStatusFor(order.Status)
		if !ok {
			return fmt.Errorf("no inbound lead status for order status %q", order.Status)
		}
		target = mapped
		return w.SetLeadStatus(ctx, leadID, mapped)
	})
	return target, err
}

func (s *Synchronizer) reschedule(ctx context.Context, failure Failure, cause error) error {
	next := s.now().Add(Backoff(failure.Attempts + 1))
	if err := s.store.RescheduleFailure(ctx, failure.ID, cause.Error(), next); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Backoff returns the delay before repair attempt n, doubling from 30s up to 1h.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := 30 * time.Second
	for i := 1; i < attempt && delay < time.Hour; i++ {
		delay *= 2
	}
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}
