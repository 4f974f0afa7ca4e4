package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Receipt items & pending (to-buy) items
// ============================================================

const itemColumns = `id, user_id, receipt_id, name, price, quantity`

var pendingSortColumns = map[string]string{
	"name":     "name COLLATE NOCASE",
	"quantity": "quantity",
	"id":       "id",
}

func scanItem(row scanner) (*domain.Item, error) {
	var (
		it        domain.Item
		receiptID sql.NullInt64
	)
	if err := row.Scan(&it.ID, &it.UserID, &receiptID, &it.Name, &it.Price, &it.Quantity); err != nil {
		return nil, err
	}
	if receiptID.Valid {
		rid := receiptID.Int64
		it.ReceiptID = &rid
	}
	return &it, nil
}

func (s *Store) receiptOwned(ctx context.Context, userID string, receiptID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM receipts WHERE id = ? AND user_id = ?`, receiptID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup receipt: %w", err)
	}
	return true, nil
}

// ListReceiptItems returns the items of a receipt, or nil when the receipt is not the user's.
func (s *Store) ListReceiptItems(ctx context.Context, userID string, receiptID int64) ([]domain.Item, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListReceiptItems")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", receiptID))

	ok, err := s.receiptOwned(ctx, userID, receiptID)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE receipt_id = ? ORDER BY id`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// AddReceiptItem appends an item to one of the user's receipts.
func (s *Store) AddReceiptItem(ctx context.Context, userID string, receiptID int64, in domain.ItemInput) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "SQLite.AddReceiptItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", receiptID))

	ok, err := s.receiptOwned(ctx, userID, receiptID)
	if err != nil || !ok {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (user_id, receipt_id, name, price, quantity) VALUES (?, ?, ?, ?, ?)`,
		userID, receiptID, in.Name, in.Price, in.Quantity)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, userID, id)
}

// GetItem returns a receipt item owned through its parent receipt.
func (s *Store) GetItem(ctx context.Context, userID string, itemID int64) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT i.id, i.user_id, i.receipt_id, i.name, i.price, i.quantity
		 FROM items i JOIN receipts r ON r.id = i.receipt_id
		 WHERE i.id = ? AND r.user_id = ?`, itemID, userID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// UpdateItem replaces the editable fields of a receipt item.
func (s *Store) UpdateItem(ctx context.Context, userID string, itemID int64, in domain.ItemInput) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, price = ?, quantity = ?
		 WHERE id = ? AND receipt_id IN (SELECT id FROM receipts WHERE user_id = ?)`,
		in.Name, in.Price, in.Quantity, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetItem(ctx, userID, itemID)
}

// DeleteItem removes a receipt item.
func (s *Store) DeleteItem(ctx context.Context, userID string, itemID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND receipt_id IN (SELECT id FROM receipts WHERE user_id = ?)`,
		itemID, userID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListPendingItems returns one page of the user's to-buy list.
func (s *Store) ListPendingItems(ctx context.Context, userID string, p domain.ListParams) ([]domain.Item, int, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListPendingItems")
	defer span.End()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE user_id = ? AND receipt_id IS NULL`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending items: %w", err)
	}

	q := `SELECT ` + itemColumns + ` FROM items WHERE user_id = ? AND receipt_id IS NULL` +
		orderClause(p, pendingSortColumns) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, userID, p.Limit, p.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan pending item: %w", err)
		}
		items = append(items, *it)
	}
	return items, total, rows.Err()
}

// CreatePendingItem adds an entry to the to-buy list with price 0.
func (s *Store) CreatePendingItem(ctx context.Context, userID string, in *domain.PendingItemCreate) (*domain.Item, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreatePendingItem")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (user_id, receipt_id, name, price, quantity) VALUES (?, NULL, ?, 0, ?)`,
		userID, in.Name, in.Quantity)
	if err != nil {
		return nil, fmt.Errorf("insert pending item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Item{ID: id, UserID: userID, Name: in.Name, Price: 0, Quantity: in.Quantity}, nil
}

// DeletePendingItem removes an entry from the to-buy list.
func (s *Store) DeletePendingItem(ctx context.Context, userID string, itemID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.DeletePendingItem")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ? AND receipt_id IS NULL`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("delete pending item: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
