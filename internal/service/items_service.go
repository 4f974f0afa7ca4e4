package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func itemNotFound(id int64) error {
	return &domain.ErrNotFound{Resource: "Item", ID: strconv.FormatInt(id, 10)}
}

// ============================================================
// Receipt items
// ============================================================

// Item edits do not touch the parent receipt's total_amount; clients
// recompute the total and send it with the receipt.

func (s *LedgerService) ListReceiptItems(ctx context.Context, userID string, receiptID int64) ([]domain.Item, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListReceiptItems")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", receiptID))

	items, err := s.store.ListReceiptItems(ctx, userID, receiptID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		return nil, receiptNotFound(receiptID)
	}
	return items, nil
}

func (s *LedgerService) AddReceiptItem(ctx context.Context, userID string, receiptID int64, in domain.ItemInput) (*domain.Item, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.AddReceiptItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", receiptID))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	it, err := s.store.AddReceiptItem(ctx, userID, receiptID, in)
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}
	if it == nil {
		return nil, receiptNotFound(receiptID)
	}
	return it, nil
}

func (s *LedgerService) GetItem(ctx context.Context, userID string, itemID int64) (*domain.Item, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetItem")
	defer span.End()

	it, err := s.store.GetItem(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if it == nil {
		return nil, itemNotFound(itemID)
	}
	return it, nil
}

func (s *LedgerService) UpdateItem(ctx context.Context, userID string, itemID int64, in domain.ItemInput) (*domain.Item, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	it, err := s.store.UpdateItem(ctx, userID, itemID, in)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if it == nil {
		return nil, itemNotFound(itemID)
	}
	return it, nil
}

func (s *LedgerService) DeleteItem(ctx context.Context, userID string, itemID int64) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	ok, err := s.store.DeleteItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !ok {
		return itemNotFound(itemID)
	}
	return nil
}

// ============================================================
// To-buy list
// ============================================================

// ListPendingItems returns one page of the user's to-buy list.
func (s *LedgerService) ListPendingItems(ctx context.Context, userID string, p domain.ListParams) (*domain.Page[domain.Item], error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListPendingItems")
	defer span.End()

	if err := p.Normalize(PendingSortColumns...); err != nil {
		return nil, err
	}
	items, total, err := s.store.ListPendingItems(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	return &domain.Page[domain.Item]{Items: items, Total: total, Skip: p.Skip, Limit: p.Limit}, nil
}

// CreatePendingItem adds a planned purchase. Quantity defaults to 1.
func (s *LedgerService) CreatePendingItem(ctx context.Context, userID string, in *domain.PendingItemCreate) (*domain.Item, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreatePendingItem")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, &domain.ErrValidation{Field: "quantity", Message: "must be at least 1"}
	}

	it, err := s.store.CreatePendingItem(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("create pending item: %w", err)
	}
	s.logger.Debug("pending item added", zap.String("user_id", userID), zap.Int64("item_id", it.ID))
	return it, nil
}

func (s *LedgerService) DeletePendingItem(ctx context.Context, userID string, itemID int64) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeletePendingItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	ok, err := s.store.DeletePendingItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("delete pending item: %w", err)
	}
	if !ok {
		return itemNotFound(itemID)
	}
	return nil
}
