package service

import (
	"context"
	"fmt"
	"io"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/infra/export"

	"go.uber.org/zap"
)

// ExportReport writes every receipt and income entry dated in r to w as
// an xlsx workbook and returns the suggested file name.
func (s *LedgerService) ExportReport(ctx context.Context, userID string, r domain.DateRange, w io.Writer) (string, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ExportReport")
	defer span.End()

	if err := validateRange(r); err != nil {
		return "", err
	}

	var rep export.Report
	for skip := 0; ; skip += domain.MaxPageLimit {
		f := domain.ReceiptFilter{
			ListParams: domain.ListParams{Skip: skip, Limit: domain.MaxPageLimit, SortBy: "date", Order: domain.OrderAsc},
			Range:      r,
		}
		page, total, err := s.store.ListReceipts(ctx, userID, f)
		if err != nil {
			return "", fmt.Errorf("export receipts: %w", err)
		}
		rep.Receipts = append(rep.Receipts, page...)
		if len(page) == 0 || len(rep.Receipts) >= total {
			break
		}
	}
	for skip := 0; ; skip += domain.MaxPageLimit {
		f := domain.IncomeFilter{
			ListParams: domain.ListParams{Skip: skip, Limit: domain.MaxPageLimit, SortBy: "date", Order: domain.OrderAsc},
			Range:      r,
		}
		page, total, err := s.store.ListIncomes(ctx, userID, f)
		if err != nil {
			return "", fmt.Errorf("export income: %w", err)
		}
		rep.Income = append(rep.Income, page...)
		if len(page) == 0 || len(rep.Income) >= total {
			break
		}
	}

	if err := export.WriteXLSX(w, rep); err != nil {
		return "", fmt.Errorf("export workbook: %w", err)
	}

	s.logger.Info("report exported",
		zap.String("user_id", userID),
		zap.Int("receipts", len(rep.Receipts)),
		zap.Int("income", len(rep.Income)),
	)
	return export.FileName(r), nil
}
