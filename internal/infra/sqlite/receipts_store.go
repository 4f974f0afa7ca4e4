package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Receipts
// ============================================================

const receiptColumns = `id, merchant_name, date, total_amount, currency, category,
	COALESCE(location, ''), COALESCE(image_url, ''), created_at`

var receiptSortColumns = map[string]string{
	"date":          "date",
	"total_amount":  "total_amount",
	"merchant_name": "merchant_name COLLATE NOCASE",
	"category":      "category",
	"created_at":    "created_at",
	"id":            "id",
}

func scanReceipt(row scanner) (*domain.Receipt, error) {
	var (
		r         domain.Receipt
		date      string
		createdAt string
		currency  string
		category  string
	)
	if err := row.Scan(&r.ID, &r.MerchantName, &date, &r.TotalAmount, &currency, &category,
		&r.Location, &r.ImageURL, &createdAt); err != nil {
		return nil, err
	}
	r.Date = parseDate(date)
	r.CreatedAt = parseTimestamp(createdAt)
	r.Currency = domain.CurrencyCode(currency)
	r.Category = domain.ExpenseCategory(category)
	r.Items = []domain.Item{}
	return &r, nil
}

// CreateReceipt inserts a receipt with its items and removes the pending
// items it pays for, atomically.
func (s *Store) CreateReceipt(ctx context.Context, userID string, in *domain.ReceiptCreate) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateReceipt")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("items", len(in.Items)))

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO receipts (user_id, merchant_name, date, total_amount, currency, category, location, image_url, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, in.MerchantName, in.Date.String(), *in.TotalAmount, string(in.Currency), string(in.Category),
			nullString(in.Location), nullString(in.ImageURL), s.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		if err := insertItems(ctx, tx, userID, id, in.Items); err != nil {
			return err
		}

		if len(in.PendingItemIDs) > 0 {
			args := []any{userID}
			for _, pid := range in.PendingItemIDs {
				args = append(args, pid)
			}
			q := fmt.Sprintf(`DELETE FROM items WHERE user_id = ? AND receipt_id IS NULL AND id IN (%s)`,
				placeholders(len(in.PendingItemIDs)))
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("delete paid pending items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("sqlite: create receipt failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("sqlite: receipt created",
		zap.Int64("receipt_id", id),
		zap.Int("items", len(in.Items)),
		zap.Int("pending_paid", len(in.PendingItemIDs)),
	)
	return s.GetReceipt(ctx, userID, id)
}

func insertItems(ctx context.Context, tx *sql.Tx, userID string, receiptID int64, items []domain.ItemInput) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (user_id, receipt_id, name, price, quantity) VALUES (?, ?, ?, ?, ?)`,
			userID, receiptID, it.Name, it.Price, it.Quantity,
		); err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
	}
	return nil
}

// GetReceipt returns the receipt with its items, or nil when missing.
func (s *Store) GetReceipt(ctx context.Context, userID string, id int64) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	row := s.db.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}

	if err := s.attachItems(ctx, []*domain.Receipt{r}); err != nil {
		return nil, err
	}
	return r, nil
}

// ListReceipts returns one page of receipts and the filtered total.
func (s *Store) ListReceipts(ctx context.Context, userID string, f domain.ReceiptFilter) ([]domain.Receipt, int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListReceipts")
	defer span.End()

	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.MerchantName != "" {
		where = append(where, "LOWER(merchant_name) LIKE '%' || LOWER(?) || '%'")
		args = append(args, f.MerchantName)
	}
	where, args = rangeClause("date", f.Range, where, args)
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM receipts`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count receipts: %w", err)
	}

	q := `SELECT ` + receiptColumns + ` FROM receipts` + cond + orderClause(f.ListParams, receiptSortColumns) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, f.Limit, f.Skip)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list receipts: %w", err)
	}

	var ptrs []*domain.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan receipt: %w", err)
		}
		ptrs = append(ptrs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}
	rows.Close()

	if err := s.attachItems(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	out := make([]domain.Receipt, 0, len(ptrs))
	for _, r := range ptrs {
		out = append(out, *r)
	}
	return out, total, nil
}

// attachItems loads the items of every receipt in one query.
func (s *Store) attachItems(ctx context.Context, receipts []*domain.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Receipt, len(receipts))
	args := make([]any, 0, len(receipts))
	for _, r := range receipts {
		byID[r.ID] = r
		args = append(args, r.ID)
	}

	q := fmt.Sprintf(`SELECT `+itemColumns+` FROM items WHERE receipt_id IN (%s) ORDER BY id`, placeholders(len(args)))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		if r, ok := byID[*it.ReceiptID]; ok {
			r.Items = append(r.Items, *it)
		}
	}
	return rows.Err()
}

// UpdateReceipt applies the non-nil fields of in. A non-nil Items replaces
// every item of the receipt.
func (s *Store) UpdateReceipt(ctx context.Context, userID string, id int64, in *domain.ReceiptUpdate) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	var found bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM receipts WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup receipt: %w", err)
		}
		found = true

		sets, args := receiptUpdateSets(in)
		if len(sets) > 0 {
			args = append(args, id, userID)
			q := `UPDATE receipts SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("update receipt: %w", err)
			}
		}

		if in.Items != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE receipt_id = ?`, id); err != nil {
				return fmt.Errorf("clear items: %w", err)
			}
			if err := insertItems(ctx, tx, userID, id, *in.Items); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return s.GetReceipt(ctx, userID, id)
}

func receiptUpdateSets(in *domain.ReceiptUpdate) ([]string, []any) {
	var sets []string
	var args []any
	if in.MerchantName != nil {
		sets = append(sets, "merchant_name = ?")
		args = append(args, strings.TrimSpace(*in.MerchantName))
	}
	if in.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, in.Date.String())
	}
	if in.TotalAmount != nil {
		sets = append(sets, "total_amount = ?")
		args = append(args, *in.TotalAmount)
	}
	if in.Currency != nil {
		sets = append(sets, "currency = ?")
		args = append(args, string(*in.Currency))
	}
	if in.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*in.Category))
	}
	if in.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, nullString(*in.Location))
	}
	if in.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, nullString(*in.ImageURL))
	}
	return sets, args
}

// DeleteReceipt removes a receipt; its items go with it.
func (s *Store) DeleteReceipt(ctx context.Context, userID string, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	res, err := s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
