package transport

import (
	ordertransport "callcenter_backend/internal/orders/transport"

	"github.com/google/uuid"
)

// UpdateLeadRequest patches a prediction lead. Nil fields are left unchanged.
type UpdateLeadRequest struct {
	Status          *string `json:"status,omitempty" validate:"omitempty,oneof=not_contacted no_answer interested not_interested call_again confirmed"`
	CustomerName    *string `json:"customerName,omitempty" validate:"omitempty,max=200"`
	CustomerPhone   *string `json:"customerPhone,omitempty" validate:"omitempty,max=50"`
	CustomerCity    *string `json:"customerCity,omitempty" validate:"omitempty,max=120"`
	CustomerAddress *string `json:"customerAddress,omitempty" validate:"omitempty,max=300"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Quantity        *int    `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	UnitPrice       *string `json:"unitPrice,omitempty" validate:"omitempty,numeric"`
}

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	ListID          uuid.UUID  `json:"listId"`
	CustomerName    string     `json:"customerName"`
	CustomerPhone   string     `json:"customerPhone"`
	CustomerCity    string     `json:"customerCity"`
	CustomerAddress string     `json:"customerAddress"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
	ProductName     string     `json:"productName"`
	Quantity        int        `json:"quantity"`
	UnitPrice       string     `json:"unitPrice"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes"`
	AgentID         *uuid.UUID `json:"agentId,omitempty"`
	AgentName       *string    `json:"agentName,omitempty"`
	// Order fields are set once the lead has been promoted. OrderStatus is the canonical stage.
	OrderID     *uuid.UUID `json:"orderId,omitempty"`
	OrderCode   *string    `json:"orderCode,omitempty"`
	OrderStatus *string    `json:"orderStatus,omitempty"`
	UpdatedAt   string     `json:"updatedAt"`
}

type UpdateLeadResponse struct {
	Lead         LeadResponse                  `json:"lead"`
	Order        *ordertransport.OrderResponse `json:"order,omitempty"`
	OrderCreated bool                          `json:"orderCreated"`
	Warnings     []string                      `json:"warnings,omitempty"`
}
