// Package service exposes the stock ledger to HTTP callers and to other
// modules that need post-commit inventory notifications.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callcenter_backend/internal/access"
	"callcenter_backend/internal/adapters/storage"
	"callcenter_backend/internal/inventory/ledger"
	"callcenter_backend/internal/inventory/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/db"
	"callcenter_backend/platform/logger"

	"github.com/google/uuid"
)

// Repository is the storage surface the inventory service needs.
type Repository interface {
	InTx(ctx context.Context, fn func(store ledger.Store) error) error
	GetProduct(ctx context.Context, productID uuid.UUID) (ledger.Product, error)
	ListMovements(ctx context.Context, productID uuid.UUID, limit, offset int) ([]ledger.Movement, int, error)
	ListLedger(ctx context.Context, productID uuid.UUID) ([]ledger.Movement, error)
}

// InvoiceStorage issues presigned uploads for supplier invoice documents.
type InvoiceStorage interface {
	GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*storage.PresignedURL, error)
}

// Service provides ledger operations for warehouse users.
type Service struct {
	repo     Repository
	notifier *Notifier
	invoices InvoiceStorage
	bucket   string
	log      *logger.Logger
}

// New creates a new inventory service.
func New(repo Repository, notifier *Notifier, log *logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log}
}

// SetInvoiceStorage enables presigned invoice uploads.
func (s *Service) SetInvoiceStorage(invoices InvoiceStorage, bucket string) {
	s.invoices = invoices
	s.bucket = bucket
}

// Restock adds received units to a product.
func (s *Service) Restock(ctx context.Context, actor access.Actor, productID uuid.UUID, req transport.RestockRequest) (transport.StockMutationResponse, error) {
	if err := access.RequireStockManager(actor); err != nil {
		return transport.StockMutationResponse{}, err
	}

	var res ledger.Result
	err := s.repo.InTx(ctx, func(store ledger.Store) error {
		var err error
		res, err = ledger.Restock(ctx, store, ledger.RestockRequest{
			ProductID:      productID,
			Quantity:       req.Quantity,
			Note:           req.Note,
			SupplierName:   req.SupplierName,
			InvoiceNumber:  req.InvoiceNumber,
			InvoiceFileKey: req.InvoiceFileKey,
			Actor:          actor,
		})
		return err
	})
	if err != nil {
		return transport.StockMutationResponse{}, db.NormalizeError("inventory.restock", err)
	}

	s.notifier.Committed(ctx, res)
	return toMutationResponse(res), nil
}

// Adjust sets a product's stock to a counted value.
func (s *Service) Adjust(ctx context.Context, actor access.Actor, productID uuid.UUID, req transport.AdjustRequest) (transport.StockMutationResponse, error) {
	if err := access.RequireStockManager(actor); err != nil {
		return transport.StockMutationResponse{}, err
	}
	if req.NewQuantity == nil {
		return transport.StockMutationResponse{}, apperr.Validation("newQuantity is required")
	}

	var res ledger.Result
	err := s.repo.InTx(ctx, func(store ledger.Store) error {
		var err error
		res, err = ledger.Adjust(ctx, store, ledger.AdjustRequest{
			ProductID:   productID,
			NewQuantity: *req.NewQuantity,
			Note:        req.Note,
			Actor:       actor,
		})
		return err
	})
	if err != nil {
		return transport.StockMutationResponse{}, db.NormalizeError("inventory.adjust", err)
	}

	s.notifier.Committed(ctx, res)
	return toMutationResponse(res), nil
}

// GetProduct returns a product's current stock.
func (s *Service) GetProduct(ctx context.Context, productID uuid.UUID) (transport.ProductStockResponse, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return transport.ProductStockResponse{}, notFoundOr(err, "inventory.get_product")
	}
	return toProductResponse(product), nil
}

// ListMovements returns a page of a product's ledger, newest first.
func (s *Service) ListMovements(ctx context.Context, productID uuid.UUID, req transport.ListMovementsRequest) (transport.MovementListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return transport.MovementListResponse{}, notFoundOr(err, "inventory.list_movements")
	}

	items, total, err := s.repo.ListMovements(ctx, productID, pageSize, (page-1)*pageSize)
	if err != nil {
		return transport.MovementListResponse{}, db.NormalizeError("inventory.list_movements", err)
	}

	resp := transport.MovementListResponse{
		Items:      make([]transport.MovementResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, m := range items {
		resp.Items = append(resp.Items, toMovementResponse(m))
	}
	return resp, nil
}

// CheckLedger replays a product's movements and compares the result with its stock.
func (s *Service) CheckLedger(ctx context.Context, productID uuid.UUID) (transport.LedgerCheckResponse, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return transport.LedgerCheckResponse{}, notFoundOr(err, "inventory.check_ledger")
	}
	movements, err := s.repo.ListLedger(ctx, productID)
	if err != nil {
		return transport.LedgerCheckResponse{}, db.NormalizeError("inventory.check_ledger", err)
	}

	replayed, replayErr := ledger.Replay(movements)
	resp := transport.LedgerCheckResponse{
		ProductID:     productID,
		Stock:         product.Stock,
		ReplayedStock: replayed,
		Movements:     len(movements),
		Consistent:    replayErr == nil && replayed == product.Stock,
	}
	switch {
	case replayErr != nil:
		resp.Problem = replayErr.Error()
	case replayed != product.Stock:
		resp.Problem = fmt.Sprintf("ledger sums to %d but product holds %d", replayed, product.Stock)
	}
	if !resp.Consistent {
		s.log.Warn("stock ledger mismatch", "productId", productID, "problem", resp.Problem)
	}
	return resp, nil
}

// PresignInvoiceUpload returns a presigned PUT URL for a supplier invoice.
// The returned file key is passed back on the restock request.
func (s *Service) PresignInvoiceUpload(ctx context.Context, actor access.Actor, productID uuid.UUID, req transport.InvoiceUploadRequest) (transport.InvoiceUploadResponse, error) {
	if err := access.RequireStockManager(actor); err != nil {
		return transport.InvoiceUploadResponse{}, err
	}
	if s.invoices == nil {
		return transport.InvoiceUploadResponse{}, apperr.BadRequest("invoice storage is not configured")
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return transport.InvoiceUploadResponse{}, notFoundOr(err, "inventory.presign_invoice")
	}

	folder := fmt.Sprintf("products/%s/%s", productID, time.Now().UTC().Format("2006-01"))
	presigned, err := s.invoices.GenerateUploadURL(ctx, s.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		return transport.InvoiceUploadResponse{}, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	return transport.InvoiceUploadResponse{
		UploadURL: presigned.URL,
		FileKey:   presigned.FileKey,
		ExpiresAt: presigned.ExpiresAt.Format(time.RFC3339),
	}, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, ledger.ErrProductNotFound) {
		return apperr.NotFound("product not found").WithOp(op)
	}
	return db.NormalizeError(op, err)
}
