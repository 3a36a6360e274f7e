// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"callcenter_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Inventory Domain Events
// =============================================================================

// StockLow is published after a committed ledger mutation drops a product's
// stock to or below its low-stock threshold.
type StockLow struct {
	BaseEvent
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Stock       int       `json:"stock"`
	Threshold   int       `json:"threshold"`
}

func (e StockLow) EventName() string { return "inventory.stock.low" }

// =============================================================================
// Lead Sync Events
// =============================================================================

// LeadSyncFailed is published when an inbound lead could not be updated to
// mirror its order's committed status. A failure row already exists for it.
type LeadSyncFailed struct {
	BaseEvent
	OrderID       uuid.UUID `json:"orderId"`
	InboundLeadID uuid.UUID `json:"inboundLeadId"`
	TargetStatus  string    `json:"targetStatus"`
}

func (e LeadSyncFailed) EventName() string { return "leadsync.failed" }
