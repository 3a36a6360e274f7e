// Package domain holds prediction lead types and the promotion table.
package domain

import (
	"errors"
	"strings"
	"time"

	orderdomain "callcenter_backend/internal/orders/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrLeadNotFound is returned by stores when no prediction lead matches.
var ErrLeadNotFound = errors.New("prediction lead not found")

// PromotionActorName is recorded on the history row of an order created from a lead.
const PromotionActorName = "System (from Prediction Lead)"

// Status is a contact outcome on a prediction lead.
type Status string

const (
	StatusNotContacted  Status = "not_contacted"
	StatusNoAnswer      Status = "no_answer"
	StatusInterested    Status = "interested"
	StatusNotInterested Status = "not_interested"
	StatusCallAgain     Status = "call_again"
	StatusConfirmed     Status = "confirmed"
)

var allStatuses = []Status{
	StatusNotContacted, StatusNoAnswer, StatusInterested, StatusNotInterested, StatusCallAgain, StatusConfirmed,
}

// ParseStatus returns the status named by value.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == status {
			return s, true
		}
	}
	return "", false
}

// PromotionTarget returns the order status a lead status promotes to.
// Only call_again and confirmed promote.
func PromotionTarget(status Status) (orderdomain.Status, bool) {
	switch status {
	case StatusCallAgain:
		return orderdomain.StatusCallAgain, true
	case StatusConfirmed:
		return orderdomain.StatusConfirmed, true
	default:
		return "", false
	}
}

// Lead is a row from an uploaded contact list.
type Lead struct {
	ID          uuid.UUID
	ListID      uuid.UUID
	Customer    orderdomain.Customer
	ProductID   *uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Status      Status
	Notes       string
	Assignment  orderdomain.Assignment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder builds the order a lead is promoted into.
func (l Lead) NewOrder(status orderdomain.Status) orderdomain.Order {
	leadID := l.ID
	order := orderdomain.Order{
		ProductID:    l.ProductID,
		ProductName:  l.ProductName,
		Customer:     l.Customer,
		Quantity:     l.Quantity,
		UnitPrice:    l.UnitPrice,
		Status:       status,
		Notes:        l.Notes,
		SourceType:   orderdomain.SourcePredictionLead,
		SourceLeadID: &leadID,
	}
	if order.Quantity < 1 {
		order.Quantity = 1
	}
	if l.Assignment.AgentID != nil {
		order.Assignment = l.Assignment
		if order.Assignment.AssignedAt == nil {
			now := time.Now().UTC()
			order.Assignment.AssignedAt = &now
		}
	}
	return order
}
