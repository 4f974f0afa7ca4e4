// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
//
// Store lookups return (nil, nil) when the record does not exist or is not
// owned by the user; services turn that into domain.ErrNotFound.
package port

import (
	"context"
	"io"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
)

// ReceiptStore persists receipts and their items.
type ReceiptStore interface {
	// CreateReceipt inserts the receipt and its items, and deletes the
	// pending items named in in.PendingItemIDs, in one transaction.
	CreateReceipt(ctx context.Context, userID string, in *domain.ReceiptCreate) (*domain.Receipt, error)
	GetReceipt(ctx context.Context, userID string, id int64) (*domain.Receipt, error)
	ListReceipts(ctx context.Context, userID string, f domain.ReceiptFilter) ([]domain.Receipt, int, error)
	UpdateReceipt(ctx context.Context, userID string, id int64, in *domain.ReceiptUpdate) (*domain.Receipt, error)
	DeleteReceipt(ctx context.Context, userID string, id int64) (bool, error)
}

// ItemStore persists receipt items and pending (to-buy) items.
type ItemStore interface {
	ListReceiptItems(ctx context.Context, userID string, receiptID int64) ([]domain.Item, error)
	AddReceiptItem(ctx context.Context, userID string, receiptID int64, in domain.ItemInput) (*domain.Item, error)
	GetItem(ctx context.Context, userID string, itemID int64) (*domain.Item, error)
	UpdateItem(ctx context.Context, userID string, itemID int64, in domain.ItemInput) (*domain.Item, error)
	DeleteItem(ctx context.Context, userID string, itemID int64) (bool, error)

	ListPendingItems(ctx context.Context, userID string, p domain.ListParams) ([]domain.Item, int, error)
	CreatePendingItem(ctx context.Context, userID string, in *domain.PendingItemCreate) (*domain.Item, error)
	DeletePendingItem(ctx context.Context, userID string, itemID int64) (bool, error)
}

// IncomeStore persists income entries.
type IncomeStore interface {
	CreateIncome(ctx context.Context, userID string, in *domain.IncomeCreate) (*domain.Income, error)
	GetIncome(ctx context.Context, userID string, id int64) (*domain.Income, error)
	ListIncomes(ctx context.Context, userID string, f domain.IncomeFilter) ([]domain.Income, int, error)
	UpdateIncome(ctx context.Context, userID string, id int64, in *domain.IncomeUpdate) (*domain.Income, error)
	DeleteIncome(ctx context.Context, userID string, id int64) (bool, error)
}

// SettingsStore persists per-user settings.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*domain.Settings, error)
	CreateSettings(ctx context.Context, userID string, currency domain.CurrencyCode) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, userID string, in *domain.SettingsUpdate) (*domain.Settings, error)
}

// UserStore persists the local mirror of identity provider users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, in *domain.UserSync) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, in *domain.UserUpdate) (*domain.User, error)
	// DeleteUser removes the user and every record it owns.
	DeleteUser(ctx context.Context, id string) (bool, error)
}

// DashboardStore feeds the dashboard aggregation.
type DashboardStore interface {
	ReceiptRows(ctx context.Context, userID string, r domain.DateRange) ([]domain.AmountRow, error)
	IncomeRows(ctx context.Context, userID string, r domain.DateRange) ([]domain.AmountRow, error)
	CountReceipts(ctx context.Context, userID string, r domain.DateRange) (int, error)
}

// Store is everything the ledger needs from persistence.
type Store interface {
	ReceiptStore
	ItemStore
	IncomeStore
	SettingsStore
	UserStore
	DashboardStore
	Ping(ctx context.Context) error
}

// FileStore keeps uploaded receipt attachments.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// TokenVerifier resolves a bearer token to the identity behind it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error)
}

// IdentityAdmin performs privileged operations on the identity provider.
type IdentityAdmin interface {
	DeleteIdentity(ctx context.Context, userID string) error
}

// EventPublisher sends domain events to background workers.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RemoteCache is a shared cache reached over the network.
type RemoteCache[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
