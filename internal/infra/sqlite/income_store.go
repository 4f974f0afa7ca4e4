package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Income
// ============================================================

const incomeColumns = `id, source, amount, currency, category, date, COALESCE(description, ''), created_at`

var incomeSortColumns = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"source":     "source COLLATE NOCASE",
	"category":   "category",
	"created_at": "created_at",
	"id":         "id",
}

func scanIncome(row scanner) (*domain.Income, error) {
	var (
		in        domain.Income
		currency  string
		category  string
		date      string
		createdAt string
	)
	if err := row.Scan(&in.ID, &in.Source, &in.Amount, &currency, &category, &date, &in.Description, &createdAt); err != nil {
		return nil, err
	}
	in.Currency = domain.CurrencyCode(currency)
	in.Category = domain.IncomeCategory(category)
	in.Date = parseDate(date)
	in.CreatedAt = parseTimestamp(createdAt)
	return &in, nil
}

// CreateIncome inserts an income entry.
func (s *Store) CreateIncome(ctx context.Context, userID string, in *domain.IncomeCreate) (*domain.Income, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateIncome")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO income (user_id, source, amount, currency, category, date, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Source, in.Amount, string(in.Currency), string(in.Category), in.Date.String(),
		nullString(in.Description), s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetIncome(ctx, userID, id)
}

// GetIncome returns an income entry, or nil when missing.
func (s *Store) GetIncome(ctx context.Context, userID string, id int64) (*domain.Income, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetIncome")
	defer span.End()
	span.SetAttributes(attribute.Int64("income.id", id))

	row := s.db.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM income WHERE id = ? AND user_id = ?`, id, userID)
	in, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

// ListIncomes returns one page of income entries and the filtered total.
func (s *Store) ListIncomes(ctx context.Context, userID string, f domain.IncomeFilter) ([]domain.Income, int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListIncomes")
	defer span.End()

	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	where, args = rangeClause("date", f.Range, where, args)
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM income`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count income: %w", err)
	}

	q := `SELECT ` + incomeColumns + ` FROM income` + cond + orderClause(f.ListParams, incomeSortColumns) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, f.Limit, f.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	out := []domain.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, *in)
	}
	return out, total, rows.Err()
}

// UpdateIncome applies the non-nil fields of in.
func (s *Store) UpdateIncome(ctx context.Context, userID string, id int64, in *domain.IncomeUpdate) (*domain.Income, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateIncome")
	defer span.End()
	span.SetAttributes(attribute.Int64("income.id", id))

	var sets []string
	var args []any
	if in.Source != nil {
		sets = append(sets, "source = ?")
		args = append(args, strings.TrimSpace(*in.Source))
	}
	if in.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *in.Amount)
	}
	if in.Currency != nil {
		sets = append(sets, "currency = ?")
		args = append(args, string(*in.Currency))
	}
	if in.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*in.Category))
	}
	if in.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, in.Date.String())
	}
	if in.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*in.Description))
	}

	if len(sets) > 0 {
		args = append(args, id, userID)
		res, err := s.db.ExecContext(ctx,
			`UPDATE income SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("update income: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, nil
		}
	}
	return s.GetIncome(ctx, userID, id)
}

// DeleteIncome removes an income entry.
func (s *Store) DeleteIncome(ctx context.Context, userID string, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteIncome")
	defer span.End()
	span.SetAttributes(attribute.Int64("income.id", id))

	res, err := s.db.ExecContext(ctx, `DELETE FROM income WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete income: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
