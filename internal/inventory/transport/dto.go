package transport

import "github.com/google/uuid"

type RestockRequest struct {
	Quantity       int     `json:"quantity" validate:"required,min=1,max=1000000"`
	Note           string  `json:"note" validate:"max=500"`
	SupplierName   *string `json:"supplierName,omitempty" validate:"omitempty,max=200"`
	InvoiceNumber  *string `json:"invoiceNumber,omitempty" validate:"omitempty,max=100"`
	InvoiceFileKey *string `json:"invoiceFileKey,omitempty" validate:"omitempty,max=500"`
}

type AdjustRequest struct {
	NewQuantity *int   `json:"newQuantity" validate:"required,min=0,max=1000000"`
	Note        string `json:"note" validate:"max=500"`
}

type ListMovementsRequest struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type InvoiceUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=200"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

type InvoiceUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
	ExpiresAt string `json:"expiresAt"`
}

type ProductStockResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	SKU               *string   `json:"sku,omitempty"`
	Price             string    `json:"price"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	IsLow             bool      `json:"isLow"`
	UpdatedAt         string    `json:"updatedAt"`
}

type MovementResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"productId"`
	Change         int        `json:"change"`
	PreviousStock  int        `json:"previousStock"`
	NewStock       int        `json:"newStock"`
	Type           string     `json:"type"`
	OrderID        *uuid.UUID `json:"orderId,omitempty"`
	Note           string     `json:"note,omitempty"`
	SupplierName   *string    `json:"supplierName,omitempty"`
	InvoiceNumber  *string    `json:"invoiceNumber,omitempty"`
	InvoiceFileKey *string    `json:"invoiceFileKey,omitempty"`
	CreatedBy      *uuid.UUID `json:"createdBy,omitempty"`
	CreatedByName  string     `json:"createdByName"`
	CreatedAt      string     `json:"createdAt"`
}

type MovementListResponse struct {
	Items      []MovementResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}

type StockMutationResponse struct {
	Product  ProductStockResponse `json:"product"`
	Movement *MovementResponse    `json:"movement,omitempty"`
	Changed  bool                 `json:"changed"`
}

type LedgerCheckResponse struct {
	ProductID     uuid.UUID `json:"productId"`
	Stock         int       `json:"stock"`
	ReplayedStock int       `json:"replayedStock"`
	Movements     int       `json:"movements"`
	Consistent    bool      `json:"consistent"`
	Problem       string    `json:"problem,omitempty"`
}
