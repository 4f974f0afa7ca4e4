package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"
)

// ReceiptRows returns every receipt of the user in r, reduced to
// merchant, category, amount and date.
func (s *Store) ReceiptRows(ctx context.Context, userID string, r domain.DateRange) ([]domain.AmountRow, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ReceiptRows")
	defer span.End()
	return s.amountRows(ctx, `SELECT merchant_name, category, total_amount, date FROM receipts`, userID, r)
}

// IncomeRows returns every income entry of the user in r, reduced to
// source, category, amount and date.
func (s *Store) IncomeRows(ctx context.Context, userID string, r domain.DateRange) ([]domain.AmountRow, error) {
	ctx, span := tracer.Start(ctx, "SQLite.IncomeRows")
	defer span.End()
	return s.amountRows(ctx, `SELECT source, category, amount, date FROM income`, userID, r)
}

func (s *Store) amountRows(ctx context.Context, base, userID string, r domain.DateRange) ([]domain.AmountRow, error) {
	where, args := rangeClause("date", r, []string{"user_id = ?"}, []any{userID})
	rows, err := s.db.QueryContext(ctx, base+" WHERE "+strings.Join(where, " AND ")+" ORDER BY date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query amount rows: %w", err)
	}
	defer rows.Close()

	var out []domain.AmountRow
	for rows.Next() {
		var (
			row  domain.AmountRow
			date string
		)
		if err := rows.Scan(&row.Label, &row.Category, &row.Amount, &date); err != nil {
			return nil, fmt.Errorf("scan amount row: %w", err)
		}
		row.Date = parseDate(date)
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountReceipts counts the user's receipts dated in r.
func (s *Store) CountReceipts(ctx context.Context, userID string, r domain.DateRange) (int, error) {
	where, args := rangeClause("date", r, []string{"user_id = ?"}, []any{userID})
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM receipts WHERE `+strings.Join(where, " AND "), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count receipts: %w", err)
	}
	return n, nil
}
