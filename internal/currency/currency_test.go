package currency_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/boddenberg/spendlog/internal/currency"
	"github.com/boddenberg/spendlog/internal/domain"

	"go.uber.org/zap"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		code   domain.CurrencyCode
		amount float64
		want   string
	}{
		{domain.CurrencyTND, 12.5, "12.50 DT"},
		{domain.CurrencyTND, 0, "0.00 DT"},
		{domain.CurrencyUSD, 7, "$7.00"},
		{domain.CurrencyUSD, 1234.567, "$1234.57"},
		{domain.CurrencyEUR, 3.456, "€3.46"},
		{domain.CurrencyEUR, -2, "€-2.00"},
		{domain.CurrencyTND, math.Copysign(0, -1), "0.00 DT"},
		{domain.CurrencyUSD, math.Copysign(0, -1), "$0.00"},
	}
	for _, tt := range tests {
		if got := currency.Format(tt.code, tt.amount); got != tt.want {
			t.Errorf("Format(%s, %v) = %q, want %q", tt.code, tt.amount, got, tt.want)
		}
	}
}

type mockSettings struct {
	current   domain.CurrencyCode
	getErr    error
	updateErr error
	updates   int
}

func (m *mockSettings) GetSettings(context.Context) (*domain.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &domain.Settings{ID: 1, Currency: m.current}, nil
}

func (m *mockSettings) UpdateSettings(_ context.Context, in *domain.SettingsUpdate) (*domain.Settings, error) {
	m.updates++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.current = *in.Currency
	return &domain.Settings{ID: 1, Currency: m.current}, nil
}

func TestPreference_LoadOnSignIn(t *testing.T) {
	api := &mockSettings{current: domain.CurrencyEUR}
	p := currency.NewPreference(api, zap.NewNop())
	if p.Code() != domain.CurrencyTND || !p.Loading() {
		t.Fatalf("expected TND while loading, got %s", p.Code())
	}

	p.OnAuthChange(context.Background(), &domain.AuthUser{ID: "u1"})
	if p.Code() != domain.CurrencyEUR || p.Loading() {
		t.Errorf("expected EUR loaded, got %s loading=%v", p.Code(), p.Loading())
	}
	if p.Format(5) != "€5.00" || p.Symbol() != "€" {
		t.Errorf("unexpected formatting %q %q", p.Format(5), p.Symbol())
	}
}

func TestPreference_LoadFailureKeepsCurrent(t *testing.T) {
	api := &mockSettings{getErr: errors.New("offline")}
	p := currency.NewPreference(api, zap.NewNop())
	if err := p.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if p.Code() != domain.CurrencyTND || p.Loading() {
		t.Errorf("expected TND and loading done, got %s %v", p.Code(), p.Loading())
	}
}

func TestPreference_Set(t *testing.T) {
	api := &mockSettings{current: domain.CurrencyTND}
	p := currency.NewPreference(api, zap.NewNop())

	if err := p.Set(context.Background(), domain.CurrencyUSD); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Code() != domain.CurrencyUSD || api.current != domain.CurrencyUSD {
		t.Errorf("expected USD on both sides, got %s / %s", p.Code(), api.current)
	}

	api.updateErr = errors.New("500")
	if err := p.Set(context.Background(), domain.CurrencyEUR); err == nil {
		t.Fatal("expected the backend error")
	}
	if p.Code() != domain.CurrencyUSD {
		t.Errorf("expected local state unchanged, got %s", p.Code())
	}

	if err := p.Set(context.Background(), "GBP"); err == nil {
		t.Error("expected a validation error")
	}
	if api.updates != 2 {
		t.Errorf("expected invalid code not to reach the backend, got %d updates", api.updates)
	}
}
