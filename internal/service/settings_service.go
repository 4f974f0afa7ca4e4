package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Settings
// ============================================================

// GetSettings returns the user's settings, creating them with the default
// currency on first read.
func (s *LedgerService) GetSettings(ctx context.Context, userID string) (*domain.Settings, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetSettings")
	defer span.End()

	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if st != nil {
		return st, nil
	}

	st, err = s.store.CreateSettings(ctx, userID, domain.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("create settings: %w", err)
	}
	s.logger.Info("settings created with defaults",
		zap.String("user_id", userID),
		zap.String("currency", string(st.Currency)),
	)
	return st, nil
}

func (s *LedgerService) UpdateSettings(ctx context.Context, userID string, in *domain.SettingsUpdate) (*domain.Settings, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateSettings")
	defer span.End()

	if in.Currency != nil && !in.Currency.Valid() {
		return nil, &domain.ErrValidation{Field: "currency", Message: "must be one of TND, USD, EUR"}
	}
	if _, err := s.GetSettings(ctx, userID); err != nil {
		return nil, err
	}

	st, err := s.store.UpdateSettings(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return st, nil
}
