package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/spendlog/internal/domain"
)

// listQuery renders pagination and sort parameters. Zero values are omitted
// so the server defaults apply.
func listQuery(p domain.ListParams) url.Values {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.Order != "" {
		q.Set("order", p.Order)
	}
	return q
}

func rangeQuery(q url.Values, r domain.DateRange) url.Values {
	if !r.Start.IsZero() {
		q.Set("start_date", r.Start.String())
	}
	if !r.End.IsZero() {
		q.Set("end_date", r.End.String())
	}
	return q
}

// ============================================================
// Receipts
// ============================================================

func (c *Client) ListReceipts(ctx context.Context, f domain.ReceiptFilter) (*domain.Page[domain.Receipt], error) {
	q := rangeQuery(listQuery(f.ListParams), f.Range)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MerchantName != "" {
		q.Set("merchant_name", f.MerchantName)
	}
	return get[domain.Page[domain.Receipt]](ctx, c, withQuery("/receipts", q))
}

func (c *Client) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	return get[domain.Receipt](ctx, c, fmt.Sprintf("/receipts/%d", id))
}

func (c *Client) CreateReceipt(ctx context.Context, in *domain.ReceiptCreate) (*domain.Receipt, error) {
	return call[domain.Receipt](ctx, c, http.MethodPost, "/receipts", in)
}

// UpdateReceipt replaces the given fields; a non-nil Items replaces every item.
func (c *Client) UpdateReceipt(ctx context.Context, id int64, in *domain.ReceiptUpdate) (*domain.Receipt, error) {
	return call[domain.Receipt](ctx, c, http.MethodPut, fmt.Sprintf("/receipts/%d", id), in)
}

func (c *Client) DeleteReceipt(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/receipts/%d", id), nil, nil)
}

// SubmitDraft creates the draft as a new receipt.
func (c *Client) SubmitDraft(ctx context.Context, d *domain.ReceiptDraft) (*domain.Receipt, error) {
	return c.CreateReceipt(ctx, d.ToCreate())
}

// ============================================================
// Receipt items
// ============================================================

func (c *Client) ListReceiptItems(ctx context.Context, receiptID int64) ([]domain.Item, error) {
	items, err := get[[]domain.Item](ctx, c, fmt.Sprintf("/receipts/%d/items", receiptID))
	if err != nil || items == nil {
		return nil, err
	}
	return *items, nil
}

func (c *Client) AddReceiptItem(ctx context.Context, receiptID int64, in domain.ItemInput) (*domain.Item, error) {
	return call[domain.Item](ctx, c, http.MethodPost, fmt.Sprintf("/receipts/%d/items", receiptID), in)
}

func (c *Client) UpdateItem(ctx context.Context, itemID int64, in domain.ItemInput) (*domain.Item, error) {
	return call[domain.Item](ctx, c, http.MethodPut, fmt.Sprintf("/receipts/items/%d", itemID), in)
}

func (c *Client) DeleteItem(ctx context.Context, itemID int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/receipts/items/%d", itemID), nil, nil)
}

// ============================================================
// Dashboard & export
// ============================================================

// GetDashboardStats aggregates the range; zero dates leave that side open.
func (c *Client) GetDashboardStats(ctx context.Context, start, end domain.Date) (*domain.DashboardData, error) {
	q := rangeQuery(url.Values{}, domain.DateRange{Start: start, End: end})
	return get[domain.DashboardData](ctx, c, withQuery("/receipts/dashboard/stats", q))
}

// ExportReport streams the xlsx report for the range into w and returns
// the file name the server suggested.
func (c *Client) ExportReport(ctx context.Context, r domain.DateRange, w io.Writer) (string, error) {
	var name string
	endpoint := withQuery("/receipts/export", rangeQuery(url.Values{}, r))
	err := c.send(ctx, http.MethodGet, endpoint, nil, "application/json", func(resp *http.Response) error {
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
			name = params["filename"]
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("read report: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if name == "" {
		name = "spendlog_report.xlsx"
	}
	return name, nil
}
