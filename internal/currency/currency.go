// Package currency formats amounts for display and keeps the user's
// preferred currency in sync with the backend settings.
package currency

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.uber.org/zap"
)

var symbols = map[domain.CurrencyCode]string{
	domain.CurrencyTND: "DT",
	domain.CurrencyUSD: "$",
	domain.CurrencyEUR: "€",
}

// Symbol returns the display symbol of code, or the code itself when unknown.
func Symbol(code domain.CurrencyCode) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return string(code)
}

// Format renders amount with two decimals. The default currency puts its
// symbol after the number with a space; the others prefix it. Amounts are
// never converted.
func Format(code domain.CurrencyCode, amount float64) string {
	if amount == 0 {
		// drops the sign of negative zero
		amount = 0
	}
	n := strconv.FormatFloat(amount, 'f', 2, 64)
	if code == domain.DefaultCurrency {
		return n + " " + Symbol(code)
	}
	return Symbol(code) + n
}

// SettingsAPI is the part of the REST client the preference needs.
type SettingsAPI interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, in *domain.SettingsUpdate) (*domain.Settings, error)
}

// Preference is the signed-in user's display currency.
type Preference struct {
	api    SettingsAPI
	logger *zap.Logger

	mu      sync.RWMutex
	code    domain.CurrencyCode
	loading bool
}

// NewPreference starts with the default currency until Load succeeds.
func NewPreference(api SettingsAPI, logger *zap.Logger) *Preference {
	return &Preference{api: api, logger: logger, code: domain.DefaultCurrency, loading: true}
}

// Load fetches the stored currency. On failure the current one is kept.
func (p *Preference) Load(ctx context.Context) error {
	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	settings, err := p.api.GetSettings(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		p.logger.Error("currency: failed to fetch settings", zap.Error(err))
		return fmt.Errorf("load currency: %w", err)
	}
	if settings != nil && settings.Currency.Valid() {
		p.code = settings.Currency
	}
	return nil
}

// OnAuthChange reloads the preference when a user signs in. Signed out,
// it only stops loading.
func (p *Preference) OnAuthChange(ctx context.Context, user *domain.AuthUser) {
	if user == nil {
		p.mu.Lock()
		p.loading = false
		p.mu.Unlock()
		return
	}
	_ = p.Load(ctx)
}

// Set stores code on the backend, then locally. A backend failure leaves
// the local currency unchanged.
func (p *Preference) Set(ctx context.Context, code domain.CurrencyCode) error {
	if !code.Valid() {
		return &domain.ErrValidation{Field: "currency", Message: "must be one of TND, USD, EUR"}
	}
	if _, err := p.api.UpdateSettings(ctx, &domain.SettingsUpdate{Currency: &code}); err != nil {
		p.logger.Error("currency: failed to update", zap.String("currency", string(code)), zap.Error(err))
		return err
	}
	p.mu.Lock()
	p.code = code
	p.mu.Unlock()
	return nil
}

func (p *Preference) Code() domain.CurrencyCode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.code
}

func (p *Preference) Symbol() string { return Symbol(p.Code()) }

// Loading reports whether the first settings fetch is still pending.
func (p *Preference) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Format renders amount in the preferred currency.
func (p *Preference) Format(amount float64) string { return Format(p.Code(), amount) }
