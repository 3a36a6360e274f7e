package service

import (
	"time"

	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/orders/domain"
	"callcenter_backend/internal/orders/transport"
)

var timeNow = func() time.Time { return time.Now().UTC() }

func toOrderResponse(o domain.Order) transport.OrderResponse {
	resp := transport.OrderResponse{
		ID:              o.ID,
		Code:            o.Code,
		ProductID:       o.ProductID,
		ProductName:     o.ProductName,
		CustomerName:    o.Customer.Name,
		CustomerPhone:   o.Customer.Phone,
		CustomerCity:    o.Customer.City,
		CustomerAddress: o.Customer.Address,
		Quantity:        o.Quantity,
		UnitPrice:       o.UnitPrice.StringFixed(2),
		Total:           o.Total().StringFixed(2),
		Status:          string(o.Status),
		Notes:           o.Notes,
		Assignment: transport.AssignmentResponse{
			AgentID:    o.Assignment.AgentID,
			AgentName:  o.Assignment.AgentName,
			AssignedBy: o.Assignment.AssignedBy,
		},
		SourceType:   string(o.SourceType),
		SourceLeadID: o.SourceLeadID,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    o.UpdatedAt.Format(time.RFC3339),
	}
	if o.Assignment.AssignedAt != nil {
		at := o.Assignment.AssignedAt.Format(time.RFC3339)
		resp.Assignment.AssignedAt = &at
	}
	return resp
}

func toHistoryResponse(e domain.HistoryEntry) transport.HistoryResponse {
	resp := transport.HistoryResponse{
		ID:            e.ID,
		ToStatus:      string(e.ToStatus),
		ChangedBy:     e.ChangedBy,
		ChangedByName: e.ChangedByName,
		ChangedAt:     e.ChangedAt.Format(time.RFC3339Nano),
	}
	if e.FromStatus != nil {
		from := string(*e.FromStatus)
		resp.FromStatus = &from
	}
	return resp
}

func toStockChange(res ledger.Result) *transport.StockChangeResponse {
	if res.Movement == nil {
		return nil
	}
	return &transport.StockChangeResponse{
		ProductID:     res.Product.ID,
		PreviousStock: res.Movement.PreviousStock,
		NewStock:      res.Movement.NewStock,
	}
}

// ToOrderResponse exposes the order projection to modules that embed orders in their responses.
func ToOrderResponse(o domain.Order) transport.OrderResponse {
	return toOrderResponse(o)
}
