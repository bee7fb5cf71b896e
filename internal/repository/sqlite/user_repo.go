package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, coins, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Coins,
		boolToInt(user.IsAdmin),
		user.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username or email already exists", domain.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID, including the purchase set.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, `id = ?`, id)
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, `username = ?`, username)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, `email = ?`, email)
}

// getBy fetches a single user matching the given predicate and loads its
// purchases in a second query.
func (r *userRepository) getBy(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, coins, is_admin, created_at
		FROM users
		WHERE ` + where

	user := &domain.User{}
	var isAdmin int
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Coins,
		&isAdmin,
		&createdAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.IsAdmin = isAdmin != 0
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	purchases, err := r.loadPurchases(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Purchases = purchases

	return user, nil
}

// loadPurchases returns the plugin IDs owned by a user.
func (r *userRepository) loadPurchases(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plugin_id FROM purchases WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchases: %w", err)
	}
	defer rows.Close()

	purchases := []string{}
	for rows.Next() {
		var pluginID string
		if err := rows.Scan(&pluginID); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, pluginID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	return purchases, nil
}

// List returns all users with pagination.
func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = int(total)
	}

	query := `
		SELECT id, username, email, password_hash, coins, is_admin, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		var isAdmin int
		var createdAt string

		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Coins,
			&isAdmin,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		user.IsAdmin = isAdmin != 0
		user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	for _, user := range users {
		purchases, err := r.loadPurchases(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Purchases = purchases
	}

	return &repository.ListResult[domain.User]{
		Items:  users,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// ExistsByUsername checks if a user with the given username exists.
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return count > 0, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

// SetAdmin sets the admin flag for a user.
func (r *userRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE id = ?`, boolToInt(isAdmin), id)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// AdjustCoins atomically applies a balance delta. The WHERE guard keeps the
// balance from going negative; the CHECK constraint is the backstop.
func (r *userRepository) AdjustCoins(ctx context.Context, id string, delta int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET coins = coins + ? WHERE id = ? AND coins + ? >= 0`, delta, id, delta)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientFunds
		}
		return fmt.Errorf("failed to adjust coins: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		// Either the user is missing or the delta would underflow.
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrUserNotFound
		}
		return domain.ErrInsufficientFunds
	}

	return nil
}

// AddPurchase records an entitlement. Idempotent.
func (r *userRepository) AddPurchase(ctx context.Context, userID, pluginID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO purchases (user_id, plugin_id, created_at) VALUES (?, ?, ?)`,
		userID, pluginID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to add purchase: %w", err)
	}
	return nil
}

// Purchase atomically debits coins and records the entitlement.
// Both writes happen in one transaction so a crash or concurrent purchase
// can never leave coins debited without the entitlement, or vice versa.
func (r *userRepository) Purchase(ctx context.Context, userID, pluginID string, price int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var coins int64
		err := tx.QueryRowContext(ctx, `SELECT coins FROM users WHERE id = ?`, userID).Scan(&coins)
		if err != nil {
			if isNoRows(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to read balance: %w", err)
		}

		// Record the entitlement before checking funds: a repeat purchase
		// must surface as a duplicate, not as a balance problem.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO purchases (user_id, plugin_id, created_at) VALUES (?, ?, ?)`,
			userID, pluginID, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyPurchased
			}
			return fmt.Errorf("failed to record entitlement: %w", err)
		}

		if coins < price {
			return domain.ErrInsufficientFunds
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE users SET coins = coins - ? WHERE id = ? AND coins >= ?`, price, userID, price)
		if err != nil {
			return fmt.Errorf("failed to debit coins: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return domain.ErrInsufficientFunds
		}

		return nil
	})
}

// exists checks if a user row is present.
func (r *userRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

// boolToInt converts a boolean to an integer (SQLite doesn't have native boolean).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
