package sqlite

import (
	"context"
	"fmt"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// settingsRepository implements repository.SettingsRepository for SQLite.
type settingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SQLite settings repository.
func NewSettingsRepository(db *DB) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the payment settings singleton. If no row exists yet the
// defaults are returned without creating one.
func (r *settingsRepository) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	query := `
		SELECT id, easypaisa, jazzcash, upi
		FROM payment_settings
		WHERE id = ?
	`

	settings := &domain.PaymentSettings{}
	err := r.db.QueryRowContext(ctx, query, domain.PaymentSettingsID).Scan(
		&settings.ID,
		&settings.Easypaisa,
		&settings.Jazzcash,
		&settings.UPI,
	)

	if err != nil {
		if isNoRows(err) {
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
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			easypaisa = excluded.easypaisa,
			jazzcash = excluded.jazzcash,
			upi = excluded.upi
	`

	_, err := r.db.ExecContext(ctx, query,
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
