package service

import (
	"time"

	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/inventory/transport"
)

func toProductResponse(p ledger.Product) transport.ProductStockResponse {
	return transport.ProductStockResponse{
		ID:                p.ID,
		Name:              p.Name,
		SKU:               p.SKU,
		Price:             p.Price.StringFixed(2),
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		IsLow:             p.LowStockThreshold > 0 && p.Stock <= p.LowStockThreshold,
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}

func toMovementResponse(m ledger.Movement) transport.MovementResponse {
	return transport.MovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		Change:         m.Change,
		PreviousStock:  m.PreviousStock,
		NewStock:       m.NewStock,
		Type:           string(m.Type),
		OrderID:        m.OrderID,
		Note:           m.Note,
		SupplierName:   m.SupplierName,
		InvoiceNumber:  m.InvoiceNumber,
		InvoiceFileKey: m.InvoiceFileKey,
		CreatedBy:      m.CreatedBy,
		CreatedByName:  m.CreatedByName,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func toMutationResponse(res ledger.Result) transport.StockMutationResponse {
	resp := transport.StockMutationResponse{
		Product: toProductResponse(res.Product),
		Changed: res.Changed,
	}
	if res.Movement != nil {
		m := toMovementResponse(*res.Movement)
		resp.Movement = &m
	}
	return resp
}
