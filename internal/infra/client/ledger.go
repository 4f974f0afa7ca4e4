package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/spendlog/internal/domain"
)

// ============================================================
// Income
// ============================================================

func (c *Client) ListIncomes(ctx context.Context, f domain.IncomeFilter) (*domain.Page[domain.Income], error) {
	q := rangeQuery(listQuery(f.ListParams), f.Range)
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	return get[domain.Page[domain.Income]](ctx, c, withQuery("/income", q))
}

func (c *Client) GetIncome(ctx context.Context, id int64) (*domain.Income, error) {
	return get[domain.Income](ctx, c, fmt.Sprintf("/income/%d", id))
}

func (c *Client) CreateIncome(ctx context.Context, in *domain.IncomeCreate) (*domain.Income, error) {
	return call[domain.Income](ctx, c, http.MethodPost, "/income", in)
}

func (c *Client) UpdateIncome(ctx context.Context, id int64, in *domain.IncomeUpdate) (*domain.Income, error) {
	return call[domain.Income](ctx, c, http.MethodPatch, fmt.Sprintf("/income/%d", id), in)
}

func (c *Client) DeleteIncome(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/income/%d", id), nil, nil)
}

// ============================================================
// To-buy list
// ============================================================

func (c *Client) ListPendingItems(ctx context.Context, p domain.ListParams) (*domain.Page[domain.Item], error) {
	return get[domain.Page[domain.Item]](ctx, c, withQuery("/items/pending", listQuery(p)))
}

func (c *Client) CreatePendingItem(ctx context.Context, in *domain.PendingItemCreate) (*domain.Item, error) {
	return call[domain.Item](ctx, c, http.MethodPost, "/items/pending", in)
}

func (c *Client) DeletePendingItem(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/items/%d", id), nil, nil)
}

// PayPendingItem records the purchase of a to-buy entry as a receipt.
// The server drops the pending item in the same transaction.
func (c *Client) PayPendingItem(ctx context.Context, p domain.Item, merchant string, price float64, d domain.Date) (*domain.Receipt, error) {
	draft := domain.DraftFromPending(p, d)
	draft.MerchantName = merchant
	draft.SetItemPrice(0, price)
	return c.SubmitDraft(ctx, draft)
}

// ============================================================
// Settings
// ============================================================

func (c *Client) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return get[domain.Settings](ctx, c, "/settings")
}

func (c *Client) UpdateSettings(ctx context.Context, in *domain.SettingsUpdate) (*domain.Settings, error) {
	return call[domain.Settings](ctx, c, http.MethodPatch, "/settings", in)
}

// ============================================================
// Users
// ============================================================

// CreateOrSyncUser creates the caller's user or refreshes its profile.
func (c *Client) CreateOrSyncUser(ctx context.Context, in *domain.UserSync) (*domain.User, error) {
	return call[domain.User](ctx, c, http.MethodPost, "/users", in)
}

func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return get[domain.User](ctx, c, "/users/"+id)
}

func (c *Client) UpdateUser(ctx context.Context, id string, in *domain.UserUpdate) (*domain.User, error) {
	return call[domain.User](ctx, c, http.MethodPut, "/users/"+id, in)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/users/"+id, nil, nil)
}
