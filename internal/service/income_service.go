package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func incomeNotFound(id int64) error {
	return &domain.ErrNotFound{Resource: "Income", ID: strconv.FormatInt(id, 10)}
}

// ============================================================
// Income
// ============================================================

func (s *LedgerService) CreateIncome(ctx context.Context, userID string, in *domain.IncomeCreate) (*domain.Income, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateIncome")
	defer span.End()

	if err := in.Normalize(); err != nil {
		return nil, err
	}
	inc, err := s.store.CreateIncome(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("create income: %w", err)
	}
	s.logger.Info("income created",
		zap.String("user_id", userID),
		zap.Int64("income_id", inc.ID),
		zap.Float64("amount", inc.Amount),
	)
	return inc, nil
}

func (s *LedgerService) GetIncome(ctx context.Context, userID string, id int64) (*domain.Income, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetIncome")
	defer span.End()
	span.SetAttributes(attribute.Int64("income.id", id))

	inc, err := s.store.GetIncome(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get income: %w", err)
	}
	if inc == nil {
		return nil, incomeNotFound(id)
	}
	return inc, nil
}

// ListIncomes returns one page of income entries matching f.
func (s *LedgerService) ListIncomes(ctx context.Context, userID string, f domain.IncomeFilter) (*domain.Page[domain.Income], error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListIncomes")
	defer span.End()

	if err := f.Normalize(IncomeSortColumns...); err != nil {
		return nil, err
	}
	if f.Category != "" && !domain.IncomeCategory(f.Category).Valid() {
		return nil, &domain.ErrValidation{Field: "category", Message: "unknown category " + f.Category}
	}
	if err := validateRange(f.Range); err != nil {
		return nil, err
	}

	items, total, err := s.store.ListIncomes(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	return &domain.Page[domain.Income]{Items: items, Total: total, Skip: f.Skip, Limit: f.Limit}, nil
}

func (s *LedgerService) UpdateIncome(ctx context.Context, userID string, id int64, in *domain.IncomeUpdate) (*domain.Income, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateIncome")
	defer span.End()
	span.SetAttributes(attribute.Int64("income.id", id))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	inc, err := s.store.UpdateIncome(ctx, userID, id, in)
	if err != nil {
		return nil, fmt.Errorf("update income: %w", err)
	}
	if inc == nil {
		return nil, incomeNotFound(id)
	}
	return inc, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, userID string, id int64) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteIncome")
	defer span.End()
	span.SetAttributes(attribute.Int64("income.id", id))

	ok, err := s.store.DeleteIncome(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if !ok {
		return incomeNotFound(id)
	}
	return nil
}
