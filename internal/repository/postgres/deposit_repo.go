package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// depositRepository implements repository.DepositRepository for PostgreSQL.
type depositRepository struct {
	db *DB
}

// NewDepositRepository creates a new PostgreSQL deposit repository.
func NewDepositRepository(db *DB) repository.DepositRepository {
	return &depositRepository{db: db}
}

// Create records a new deposit request.
func (r *depositRepository) Create(ctx context.Context, deposit *domain.Deposit) error {
	query := `
		INSERT INTO deposits (id, user_id, username, amount, method, txn_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		deposit.ID,
		deposit.UserID,
		deposit.Username,
		deposit.Amount,
		deposit.Method,
		deposit.TxnID,
		string(deposit.Status),
		deposit.CreatedAt,
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
		WHERE id = $1
	`
	return scanDeposit(r.db.Pool.QueryRow(ctx, query, id))
}

// ListByUser returns all deposits belonging to a user, newest first.
func (r *depositRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Deposit, error) {
	query := `
		SELECT id, user_id, username, amount, method, txn_id, status, created_at
		FROM deposits
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	return collectDeposits(rows)
}

// ListAll returns every deposit, newest first.
func (r *depositRepository) ListAll(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Deposit], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM deposits`).Scan(&total); err != nil {
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
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	deposits, err := collectDeposits(rows)
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
// coins in the same transaction.
func (r *depositRepository) Approve(ctx context.Context, id string) (*domain.Deposit, error) {
	var deposit *domain.Deposit

	err := r.db.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE deposits SET status = $1 WHERE id = $2 AND status = $3`,
			string(domain.DepositApproved), id, string(domain.DepositPending))
		if err != nil {
			return fmt.Errorf("failed to approve deposit: %w", err)
		}

		if tag.RowsAffected() == 0 {
			var status string
			err := tx.QueryRow(ctx,
				`SELECT status FROM deposits WHERE id = $1`, id).Scan(&status)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrDepositNotFound
				}
				return fmt.Errorf("failed to check deposit: %w", err)
			}
			return domain.ErrDepositProcessed
		}

		deposit, err = scanDeposit(tx.QueryRow(ctx, `
			SELECT id, user_id, username, amount, method, txn_id, status, created_at
			FROM deposits
			WHERE id = $1
		`, id))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET coins = coins + $1 WHERE id = $2`,
			deposit.Amount, deposit.UserID)
		if err != nil {
			return fmt.Errorf("failed to credit user: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return deposit, nil
}

// Reject transitions a pending deposit to rejected. No coins move.
func (r *depositRepository) Reject(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE deposits SET status = $1 WHERE id = $2 AND status = $3`,
		string(domain.DepositRejected), id, string(domain.DepositPending))
	if err != nil {
		return fmt.Errorf("failed to reject deposit: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrDepositProcessed
	}

	return nil
}

func scanDeposit(row pgx.Row) (*domain.Deposit, error) {
	deposit := &domain.Deposit{}
	var status string

	err := row.Scan(
		&deposit.ID,
		&deposit.UserID,
		&deposit.Username,
		&deposit.Amount,
		&deposit.Method,
		&deposit.TxnID,
		&status,
		&deposit.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}

	deposit.Status = domain.DepositStatus(status)

	return deposit, nil
}

func collectDeposits(rows pgx.Rows) ([]*domain.Deposit, error) {
	var deposits []*domain.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
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
