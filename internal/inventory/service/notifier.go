package service

import (
	"context"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/platform/logger"
)

// Notifier reports committed ledger mutations. Callers invoke it only after
// their transaction has committed.
type Notifier struct {
	bus events.Bus
	log *logger.Logger
}

// NewNotifier creates a notifier. A nil bus disables low-stock events.
func NewNotifier(bus events.Bus, log *logger.Logger) *Notifier {
	return &Notifier{bus: bus, log: log}
}

// Committed logs the movement and publishes StockLow when the threshold was crossed.
func (n *Notifier) Committed(ctx context.Context, res ledger.Result) {
	if n == nil || res.Movement == nil {
		return
	}

	m := res.Movement
	n.log.StockMovement(m.ProductID.String(), string(m.Type), m.Change, m.PreviousStock, m.NewStock)

	if res.CrossedLowStock && n.bus != nil {
		n.bus.Publish(ctx, events.StockLow{
			BaseEvent:   events.NewBaseEvent(),
			ProductID:   res.Product.ID,
			ProductName: res.Product.Name,
			Stock:       res.Product.Stock,
			Threshold:   res.Product.LowStockThreshold,
		})
	}
}

// Logger returns the logger the notifier writes to.
func (n *Notifier) Logger() *logger.Logger {
	return n.log
}
