package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// PurchaseService handles buying plugins and gating downloads.
type PurchaseService struct {
	userRepo   repository.UserRepository
	pluginRepo repository.PluginRepository
	logger     zerolog.Logger
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(userRepo repository.UserRepository, pluginRepo repository.PluginRepository, logger zerolog.Logger) *PurchaseService {
	return &PurchaseService{
		userRepo:   userRepo,
		pluginRepo: pluginRepo,
		logger:     logger.With().Str("service", "purchase").Logger(),
	}
}

// Buy purchases a plugin for the user. The debit and the entitlement are a
// single repository transaction: a failure at any point leaves the balance
// untouched, and a duplicate buy never debits twice. Returns the user's
// balance after purchase.
func (s *PurchaseService) Buy(ctx context.Context, user *domain.User, pluginID string) (*domain.Plugin, int64, error) {
	plugin, err := s.pluginRepo.GetByID(ctx, pluginID)
	if err != nil {
		if isDomainErr(err) {
			return nil, 0, err
		}
		s.logger.Error().Err(err).Str("plugin_id", pluginID).Msg("failed to load plugin")
		return nil, 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// Fast checks on the in-memory user; the transaction re-checks both
	// against current state.
	if user.Owns(pluginID) {
		return nil, 0, domain.ErrAlreadyPurchased
	}
	if !user.CanAfford(plugin.Price) {
		return nil, 0, domain.ErrInsufficientFunds
	}

	if err := s.userRepo.Purchase(ctx, user.ID, pluginID, plugin.Price); err != nil {
		if isDomainErr(err) {
			return nil, 0, err
		}
		s.logger.Error().Err(err).
			Str("user_id", user.ID).
			Str("plugin_id", pluginID).
			Msg("purchase transaction failed")
		return nil, 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// Counter bump is a statistic, not part of the ledger.
	if err := s.pluginRepo.IncrementDownloads(ctx, pluginID); err != nil {
		s.logger.Warn().Err(err).Str("plugin_id", pluginID).Msg("failed to increment download counter")
	}

	fresh, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to reload user after purchase")
		return nil, 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("plugin_id", pluginID).
		Int64("price", plugin.Price).
		Int64("balance", fresh.Coins).
		Msg("plugin purchased")

	return plugin, fresh.Coins, nil
}

// Download returns the plugin's file locator for an entitled user. Repeat
// downloads are free and do not change the download counter.
func (s *PurchaseService) Download(ctx context.Context, user *domain.User, pluginID string) (*domain.Plugin, error) {
	plugin, err := s.pluginRepo.GetByID(ctx, pluginID)
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("plugin_id", pluginID).Msg("failed to load plugin")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.Owns(pluginID) {
		return nil, domain.ErrNotPurchased
	}

	return plugin, nil
}
