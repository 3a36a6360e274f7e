package transport

import "github.com/google/uuid"

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,max=20"`
}

type CreateOrderRequest struct {
	CustomerName    string     `json:"customerName" validate:"required,notblank,max=200"`
	CustomerPhone   string     `json:"customerPhone" validate:"required,notblank,max=50"`
	CustomerCity    string     `json:"customerCity" validate:"max=120"`
	CustomerAddress string     `json:"customerAddress" validate:"max=300"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
	ProductName     string     `json:"productName" validate:"max=200"`
	Quantity        int        `json:"quantity" validate:"required,min=1,max=10000"`
	UnitPrice       *string    `json:"unitPrice,omitempty" validate:"omitempty,numeric"`
	Notes           string     `json:"notes" validate:"max=2000"`
}

// UpdateOrderRequest patches editable order fields. Nil fields are left unchanged.
type UpdateOrderRequest struct {
	CustomerName    *string    `json:"customerName,omitempty" validate:"omitempty,max=200"`
	CustomerPhone   *string    `json:"customerPhone,omitempty" validate:"omitempty,max=50"`
	CustomerCity    *string    `json:"customerCity,omitempty" validate:"omitempty,max=120"`
	CustomerAddress *string    `json:"customerAddress,omitempty" validate:"omitempty,max=300"`
	Notes           *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
	ProductName     *string    `json:"productName,omitempty" validate:"omitempty,max=200"`
	Quantity        *int       `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	UnitPrice       *string    `json:"unitPrice,omitempty" validate:"omitempty,numeric"`
}

type AssignmentResponse struct {
	AgentID    *uuid.UUID `json:"agentId,omitempty"`
	AgentName  *string    `json:"agentName,omitempty"`
	AssignedAt *string    `json:"assignedAt,omitempty"`
	AssignedBy *uuid.UUID `json:"assignedBy,omitempty"`
}

type OrderResponse struct {
	ID              uuid.UUID          `json:"id"`
	Code            string             `json:"code"`
	ProductID       *uuid.UUID         `json:"productId,omitempty"`
	ProductName     string             `json:"productName"`
	CustomerName    string             `json:"customerName"`
	CustomerPhone   string             `json:"customerPhone"`
	CustomerCity    string             `json:"customerCity"`
	CustomerAddress string             `json:"customerAddress"`
	Quantity        int                `json:"quantity"`
	UnitPrice       string             `json:"unitPrice"`
	Total           string             `json:"total"`
	Status          string             `json:"status"`
	Notes           string             `json:"notes"`
	Assignment      AssignmentResponse `json:"assignment"`
	SourceType      string             `json:"sourceType"`
	SourceLeadID    *uuid.UUID         `json:"sourceLeadId,omitempty"`
	CreatedAt       string             `json:"createdAt"`
	UpdatedAt       string             `json:"updatedAt"`
}

type HistoryResponse struct {
	ID            uuid.UUID  `json:"id"`
	FromStatus    *string    `json:"fromStatus"`
	ToStatus      string     `json:"toStatus"`
	ChangedBy     *uuid.UUID `json:"changedBy,omitempty"`
	ChangedByName string     `json:"changedByName"`
	ChangedAt     string     `json:"changedAt"`
}

type HistoryListResponse struct {
	Items []HistoryResponse `json:"items"`
}

type StockChangeResponse struct {
	ProductID     uuid.UUID `json:"productId"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
}

type StatusChangeResponse struct {
	Order    OrderResponse        `json:"order"`
	Changed  bool                 `json:"changed"`
	History  *HistoryResponse     `json:"history,omitempty"`
	Stock    *StockChangeResponse `json:"stock,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

type AllowedStatusesResponse struct {
	Current string   `json:"current"`
	Allowed []string `json:"allowed"`
}
