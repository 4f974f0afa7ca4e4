// Package service provides the business logic layer (use cases).
// LedgerService handles receipts, items, the to-buy list, income,
// settings, the dashboard and the spreadsheet export.
package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// Sortable columns per list. The first entry is the default.
var (
	ReceiptSortColumns = []string{"date", "total_amount", "merchant_name", "category", "created_at"}
	IncomeSortColumns  = []string{"date", "amount", "source", "category", "created_at"}
	PendingSortColumns = []string{"id", "name", "quantity"}
)

// LedgerStore is what the ledger needs from persistence.
type LedgerStore interface {
	port.ReceiptStore
	port.ItemStore
	port.IncomeStore
	port.SettingsStore
	port.DashboardStore
}

// LedgerService orchestrates a user's receipts, income and settings.
type LedgerService struct {
	store   LedgerStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store LedgerStore, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, metrics: metrics, logger: logger}
}

func receiptNotFound(id int64) error {
	return &domain.ErrNotFound{Resource: "Receipt", ID: strconv.FormatInt(id, 10)}
}

// ============================================================
// Receipts
// ============================================================

// CreateReceipt stores a receipt with its items. Pending items listed in
// in.PendingItemIDs are removed from the to-buy list in the same write.
func (s *LedgerService) CreateReceipt(ctx context.Context, userID string, in *domain.ReceiptCreate) (*domain.Receipt, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("items", len(in.Items)))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_receipt", time.Since(start)) }()

	if err := in.Normalize(); err != nil {
		return nil, err
	}

	r, err := s.store.CreateReceipt(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	s.metrics.IncrReceipt("created")
	s.logger.Info("receipt created",
		zap.String("user_id", userID),
		zap.Int64("receipt_id", r.ID),
		zap.Float64("total_amount", r.TotalAmount),
		zap.Int("paid_pending_items", len(in.PendingItemIDs)),
	)
	return r, nil
}

func (s *LedgerService) GetReceipt(ctx context.Context, userID string, id int64) (*domain.Receipt, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	r, err := s.store.GetReceipt(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	if r == nil {
		return nil, receiptNotFound(id)
	}
	return r, nil
}

// ListReceipts returns one page of receipts matching f.
func (s *LedgerService) ListReceipts(ctx context.Context, userID string, f domain.ReceiptFilter) (*domain.Page[domain.Receipt], error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListReceipts")
	defer span.End()

	if err := f.Normalize(ReceiptSortColumns...); err != nil {
		return nil, err
	}
	if err := validateRange(f.Range); err != nil {
		return nil, err
	}

	items, total, err := s.store.ListReceipts(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return &domain.Page[domain.Receipt]{Items: items, Total: total, Skip: f.Skip, Limit: f.Limit}, nil
}

func (s *LedgerService) UpdateReceipt(ctx context.Context, userID string, id int64, in *domain.ReceiptUpdate) (*domain.Receipt, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	if err := in.Validate(); err != nil {
		return nil, err
	}

	r, err := s.store.UpdateReceipt(ctx, userID, id, in)
	if err != nil {
		return nil, fmt.Errorf("update receipt: %w", err)
	}
	if r == nil {
		return nil, receiptNotFound(id)
	}
	s.metrics.IncrReceipt("updated")
	return r, nil
}

func (s *LedgerService) DeleteReceipt(ctx context.Context, userID string, id int64) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	ok, err := s.store.DeleteReceipt(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if !ok {
		return receiptNotFound(id)
	}

	s.metrics.IncrReceipt("deleted")
	s.logger.Info("receipt deleted", zap.String("user_id", userID), zap.Int64("receipt_id", id))
	return nil
}

func validateRange(r domain.DateRange) error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End.Time) {
		return &domain.ErrValidation{Field: "start_date", Message: "must not be after end_date"}
	}
	return nil
}
