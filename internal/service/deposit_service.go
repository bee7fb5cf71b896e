package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/lock"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// Deposit processing lock parameters.
const (
	depositLockTTL        = 10 * time.Second
	depositLockRetries    = 3
	depositLockRetryDelay = 100 * time.Millisecond
)

// validMethods are the manual payment channels users can report a
// transfer through.
var validMethods = map[string]bool{
	"easypaisa": true,
	"jazzcash":  true,
	"upi":       true,
}

// DepositService handles the manual top-up workflow: users report a
// transfer, admins approve or reject it.
type DepositService struct {
	depositRepo repository.DepositRepository
	locker      lock.Locker
	logger      zerolog.Logger
}

// NewDepositService creates a new DepositService.
func NewDepositService(depositRepo repository.DepositRepository, locker lock.Locker, logger zerolog.Logger) *DepositService {
	return &DepositService{
		depositRepo: depositRepo,
		locker:      locker,
		logger:      logger.With().Str("service", "deposit").Logger(),
	}
}

// SubmitInput contains the data for a deposit request.
type SubmitInput struct {
	Amount int64
	Method string
	TxnID  string
}

// Submit records a new pending deposit for the user.
func (s *DepositService) Submit(ctx context.Context, user *domain.User, input SubmitInput) (*domain.Deposit, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !validMethods[input.Method] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, input.Method)
	}

	deposit := domain.NewDeposit(uuid.New().String(), user.ID, user.Username, input.Amount, input.Method, input.TxnID)

	if err := s.depositRepo.Create(ctx, deposit); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to create deposit")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("deposit_id", deposit.ID).
		Str("user_id", user.ID).
		Int64("amount", input.Amount).
		Str("method", input.Method).
		Msg("deposit submitted")

	return deposit, nil
}

// ListMine returns the user's own deposits.
func (s *DepositService) ListMine(ctx context.Context, userID string) ([]*domain.Deposit, error) {
	deposits, err := s.depositRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list deposits")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return deposits, nil
}

// ListAll returns every deposit, for admin review.
func (s *DepositService) ListAll(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Deposit], error) {
	result, err := s.depositRepo.ListAll(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list deposits")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// Approve credits the deposit amount to the user exactly once. Concurrent
// approvals of the same deposit are serialized by a per-deposit lock; the
// repository transaction's Pending guard is the hard backstop.
func (s *DepositService) Approve(ctx context.Context, id string) (*domain.Deposit, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	deposit, err := s.depositRepo.Approve(ctx, id)
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("deposit_id", id).Msg("failed to approve deposit")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("deposit_id", id).
		Str("user_id", deposit.UserID).
		Int64("amount", deposit.Amount).
		Msg("deposit approved")

	return deposit, nil
}

// Reject marks a pending deposit rejected. No coins move.
func (s *DepositService) Reject(ctx context.Context, id string) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.depositRepo.Reject(ctx, id); err != nil {
		if isDomainErr(err) {
			return err
		}
		s.logger.Error().Err(err).Str("deposit_id", id).Msg("failed to reject deposit")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("deposit_id", id).Msg("deposit rejected")

	return nil
}

func (s *DepositService) acquire(ctx context.Context, depositID string) (func(), error) {
	l := lock.NewLock(s.locker, lock.Keys.Deposit(depositID))

	acquired, err := l.AcquireWithRetry(ctx, depositLockTTL, depositLockRetries, depositLockRetryDelay)
	if err != nil {
		s.logger.Error().Err(err).Str("deposit_id", depositID).Msg("lock acquisition failed")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return nil, ErrLockContention
	}

	return func() {
		if err := l.Release(context.Background()); err != nil {
			s.logger.Warn().Err(err).Str("deposit_id", depositID).Msg("lock release failed")
		}
	}, nil
}
