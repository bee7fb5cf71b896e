package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// depositRepository implements repository.DepositRepository for SQLite.
type depositRepository struct {
	db *DB
}

// NewDepositRepository creates a new SQLite deposit repository.
func NewDepositRepository(db *DB) repository.DepositRepository {
	return &depositRepository{db: db}
}

// Create records a new deposit request.
func (r *depositRepository) Create(ctx context.Context, deposit *domain.Deposit) error {
	query := `
		INSERT INTO deposits (id, user_id, username, amount, method, txn_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		deposit.ID,
		deposit.UserID,
		deposit.Username,
		deposit.Amount,
		deposit.Method,
		deposit.TxnID,
		string(deposit.Status),
		deposit.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// GetByID retrieves a deposit by ID.
func (r *depositRepository) GetByID(ctx context.Context, id string) (*domain.Deposit, error) {
	query := `
		SELECT id, user_id, username, amount, method, txn_id, status, created_at
		FROM deposits
		WHERE id = ?
	`
	return r.scanDeposit(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns all deposits belonging to a user, newest first.
func (r *depositRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Deposit, error) {
	query := `
		SELECT id, user_id, username, amount, method, txn_id, status, created_at
		FROM deposits
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	return r.collectDeposits(rows)
}

// ListAll returns every deposit, newest first.
func (r *depositRepository) ListAll(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Deposit], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deposits`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count deposits: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = int(total)
	}

	query := `
		SELECT id, user_id, username, amount, method, txn_id, status, created_at
		FROM deposits
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	deposits, err := r.collectDeposits(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Deposit]{
		Items:  deposits,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Approve transitions a pending deposit to approved and credits the user's
// coins in the same transaction. A deposit that is not pending fails with
// ErrDepositProcessed; the balance is never credited twice.
func (r *depositRepository) Approve(ctx context.Context, id string) (*domain.Deposit, error) {
	var deposit *domain.Deposit

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE deposits SET status = ? WHERE id = ? AND status = ?`,
			string(domain.DepositApproved), id, string(domain.DepositPending))
		if err != nil {
			return fmt.Errorf("failed to approve deposit: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT status FROM deposits WHERE id = ?`, id).Scan(&status)
			if err != nil {
				if isNoRows(err) {
					return domain.ErrDepositNotFound
				}
				return fmt.Errorf("failed to check deposit: %w", err)
			}
			return domain.ErrDepositProcessed
		}

		var userID string
		var amount int64
		var username, method, txnID, createdAt string
		err = tx.QueryRowContext(ctx, `
			SELECT user_id, username, amount, method, txn_id, created_at
			FROM deposits
			WHERE id = ?
		`, id).Scan(&userID, &username, &amount, &method, &txnID, &createdAt)
		if err != nil {
			return fmt.Errorf("failed to load deposit: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET coins = coins + ? WHERE id = ?`, amount, userID)
		if err != nil {
			return fmt.Errorf("failed to credit user: %w", err)
		}

		deposit = &domain.Deposit{
			ID:       id,
			UserID:   userID,
			Username: username,
			Amount:   amount,
			Method:   method,
			TxnID:    txnID,
			Status:   domain.DepositApproved,
		}
		deposit.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return deposit, nil
}

// Reject transitions a pending deposit to rejected. No coins move.
func (r *depositRepository) Reject(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE deposits SET status = ? WHERE id = ? AND status = ?`,
		string(domain.DepositRejected), id, string(domain.DepositPending))
	if err != nil {
		return fmt.Errorf("failed to reject deposit: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrDepositProcessed
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *depositRepository) scanDeposit(row rowScanner) (*domain.Deposit, error) {
	deposit := &domain.Deposit{}
	var status, createdAt string

	err := row.Scan(
		&deposit.ID,
		&deposit.UserID,
		&deposit.Username,
		&deposit.Amount,
		&deposit.Method,
		&deposit.TxnID,
		&status,
		&createdAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	deposit.Status = domain.DepositStatus(status)
	deposit.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return deposit, nil
}

func (r *depositRepository) collectDeposits(rows *sql.Rows) ([]*domain.Deposit, error) {
	var deposits []*domain.Deposit
	for rows.Next() {
		deposit, err := r.scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, deposit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return deposits, nil
}

// Ensure depositRepository implements repository.DepositRepository.
var _ repository.DepositRepository = (*depositRepository)(nil)
