package transport

import "github.com/google/uuid"

type AssignOrdersRequest struct {
	OrderIDs []uuid.UUID `json:"orderIds" validate:"required,min=1,max=500"`
	AgentID  uuid.UUID   `json:"agentId" validate:"required"`
}

type AssignLeadsRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=500"`
	AgentID uuid.UUID   `json:"agentId" validate:"required"`
}

type BalanceRequest struct {
	Kind     string      `json:"kind" validate:"required,oneof=orders prediction_leads"`
	ItemIDs  []uuid.UUID `json:"itemIds" validate:"required,min=1,max=1000"`
	AgentIDs []uuid.UUID `json:"agentIds" validate:"required,min=1,max=100"`
}

type AssignmentResponse struct {
	AgentID   uuid.UUID   `json:"agentId"`
	AgentName string      `json:"agentName"`
	ItemIDs   []uuid.UUID `json:"itemIds"`
}

type BalanceResponse struct {
	Kind        string               `json:"kind"`
	Assignments []AssignmentResponse `json:"assignments"`
}
