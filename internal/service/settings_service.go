package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// SettingsService manages the payment channel settings shown to users
// submitting deposits.
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	logger       zerolog.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settingsRepo repository.SettingsRepository, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		logger:       logger.With().Str("service", "settings").Logger(),
	}
}

// Get returns the current payment settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load payment settings")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return settings, nil
}

// UpdateSettingsInput contains the payment channel addresses. Empty values
// are stored as-is (a channel can be switched off by blanking it).
type UpdateSettingsInput struct {
	Easypaisa string
	Jazzcash  string
	UPI       string
}

// Update replaces the payment settings.
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (*domain.PaymentSettings, error) {
	settings := &domain.PaymentSettings{
		ID:        domain.PaymentSettingsID,
		Easypaisa: input.Easypaisa,
		Jazzcash:  input.Jazzcash,
		UPI:       input.UPI,
	}

	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		s.logger.Error().Err(err).Msg("failed to update payment settings")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Msg("payment settings updated")

	return settings, nil
}
