package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// settingsRepository implements repository.SettingsRepository for PostgreSQL.
type settingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new PostgreSQL settings repository.
func NewSettingsRepository(db *DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the payment settings singleton, or defaults when unset.
func (r *settingsRepository) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	query := `
		SELECT id, easypaisa, jazzcash, upi
		FROM payment_settings
		WHERE id = $1
	`

	settings := &domain.PaymentSettings{}
	err := r.db.Pool.QueryRow(ctx, query, domain.PaymentSettingsID).Scan(
		&settings.ID,
		&settings.Easypaisa,
		&settings.Jazzcash,
		&settings.UPI,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultPaymentSettings(), nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings, nil
}

// Upsert replaces the payment settings singleton.
func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.PaymentSettings) error {
	query := `
		INSERT INTO payment_settings (id, easypaisa, jazzcash, upi)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			easypaisa = EXCLUDED.easypaisa,
			jazzcash = EXCLUDED.jazzcash,
			upi = EXCLUDED.upi
	`

	_, err := r.db.Pool.Exec(ctx, query,
		domain.PaymentSettingsID,
		settings.Easypaisa,
		settings.Jazzcash,
		settings.UPI,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	return nil
}

// Ensure settingsRepository implements repository.SettingsRepository.
var _ repository.SettingsRepository = (*settingsRepository)(nil)
