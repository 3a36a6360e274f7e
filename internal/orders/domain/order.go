package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned by stores when no order row matches.
var ErrOrderNotFound = errors.New("order not found")

// SourceType records how an order entered the system.
type SourceType string

const (
	SourceManual         SourceType = "manual"
	SourceInboundLead    SourceType = "inbound_lead"
	SourcePredictionLead SourceType = "prediction_lead"
)

// Customer holds the contact details the completeness gate checks.
type Customer struct {
	Name    string
	Phone   string
	City    string
	Address string
}

// MissingFields returns the JSON names of blank contact fields, in form order.
func (c Customer) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"customerName", c.Name},
		{"customerPhone", c.Phone},
		{"customerCity", c.City},
		{"customerAddress", c.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Assignment is who works an order and who handed it to them.
type Assignment struct {
	AgentID    *uuid.UUID
	AgentName  *string
	AssignedAt *time.Time
	AssignedBy *uuid.UUID
}

// Order is the unit of fulfillment.
type Order struct {
	ID           uuid.UUID
	Code         string
	ProductID    *uuid.UUID
	ProductName  string
	Customer     Customer
	Quantity     int
	UnitPrice    decimal.Decimal
	Status       Status
	Notes        string
	Assignment   Assignment
	SourceType   SourceType
	SourceLeadID *uuid.UUID
	CreatedBy    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Total is the order value.
func (o Order) Total() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// IsAssignedTo reports whether userID is the order's agent.
func (o Order) IsAssignedTo(userID uuid.UUID) bool {
	return o.Assignment.AgentID != nil && *o.Assignment.AgentID == userID
}

// HistoryEntry is one accepted status change. FromStatus is nil for the creation row.
type HistoryEntry struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	FromStatus    *Status
	ToStatus      Status
	ChangedBy     *uuid.UUID
	ChangedByName string
	ChangedAt     time.Time
}
