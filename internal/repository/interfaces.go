// Package repository defines data access interfaces for Pluginverse.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while
// keeping the service layer clean.
package repository

import (
	"context"

	"github.com/pluginverse/pluginverse/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user. Returns domain.ErrUserAlreadyExists when
	// the username or email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID, including the purchase set.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// SetAdmin sets the admin flag for a user.
	SetAdmin(ctx context.Context, id string, isAdmin bool) error

	// AdjustCoins atomically applies a balance delta. The write is rejected
	// with domain.ErrInsufficientFunds if it would drive the balance negative.
	AdjustCoins(ctx context.Context, id string, delta int64) error

	// AddPurchase records an entitlement. Idempotent: adding an already
	// owned plugin is a no-op.
	AddPurchase(ctx context.Context, userID, pluginID string) error

	// Purchase atomically debits price coins and records the entitlement
	// in a single transaction. Returns domain.ErrInsufficientFunds if the
	// balance cannot cover the price and domain.ErrAlreadyPurchased if the
	// entitlement already exists; an already owned plugin reports
	// ErrAlreadyPurchased even when the balance is also short.
	// Either both effects happen or neither.
	Purchase(ctx context.Context, userID, pluginID string, price int64) error
}

// =============================================================================
// Plugin Repository
// =============================================================================

// PluginRepository defines the interface for catalog data access.
type PluginRepository interface {
	// Create creates a new plugin.
	Create(ctx context.Context, plugin *domain.Plugin) error

	// GetByID retrieves a plugin by ID.
	GetByID(ctx context.Context, id string) (*domain.Plugin, error)

	// List returns all plugins. Order is not guaranteed unless opts request one.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Plugin], error)

	// Update applies a partial update. Nil fields retain their previous value.
	Update(ctx context.Context, id string, update domain.PluginUpdate) (*domain.Plugin, error)

	// Delete deletes a plugin by ID.
	Delete(ctx context.Context, id string) error

	// IncrementDownloads atomically increments the download counter.
	IncrementDownloads(ctx context.Context, id string) error
}

// =============================================================================
// Deposit Repository
// =============================================================================

// DepositRepository defines the interface for the deposit ledger.
type DepositRepository interface {
	// Create records a new Pending deposit.
	Create(ctx context.Context, deposit *domain.Deposit) error

	// GetByID retrieves a deposit by ID.
	GetByID(ctx context.Context, id string) (*domain.Deposit, error)

	// ListByUser returns all deposits submitted by a user.
	ListByUser(ctx context.Context, userID string) ([]*domain.Deposit, error)

	// ListAll returns all deposits.
	ListAll(ctx context.Context, opts ListOptions) (*ListResult[domain.Deposit], error)

	// Approve transitions a Pending deposit to Approved and credits the
	// owning user's balance in the same transaction. Returns the approved
	// deposit. Returns domain.ErrDepositProcessed if the deposit is no
	// longer Pending; in that case no coins are credited.
	Approve(ctx context.Context, id string) (*domain.Deposit, error)

	// Reject transitions a Pending deposit to Rejected with no coin effect.
	// Returns domain.ErrDepositProcessed if the deposit is no longer Pending.
	Reject(ctx context.Context, id string) error
}

// =============================================================================
// Payment Settings Repository
// =============================================================================

// SettingsRepository defines the interface for the singleton payment
// settings record.
type SettingsRepository interface {
	// Get returns the current payment settings. Returns defaults (empty
	// channel addresses) when the record has never been written.
	Get(ctx context.Context) (*domain.PaymentSettings, error)

	// Upsert creates or replaces the payment settings record.
	Upsert(ctx context.Context, settings *domain.PaymentSettings) error
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return. Zero means no limit.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// DatabaseHealth is an interface for database health checks and lifecycle.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Repositories holds all repository instances.
type Repositories struct {
	Users    UserRepository
	Plugins  PluginRepository
	Deposits DepositRepository
	Settings SettingsRepository
}
