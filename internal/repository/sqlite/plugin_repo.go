package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// pluginRepository implements repository.PluginRepository for SQLite.
type pluginRepository struct {
	db *DB
}

// NewPluginRepository creates a new SQLite plugin repository.
func NewPluginRepository(db *DB) repository.PluginRepository {
	return &pluginRepository{db: db}
}

// Create creates a new plugin.
func (r *pluginRepository) Create(ctx context.Context, plugin *domain.Plugin) error {
	query := `
		INSERT INTO plugins (id, name, description, price, logo_url, file_url, downloads, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		plugin.ID,
		plugin.Name,
		plugin.Description,
		plugin.Price,
		plugin.LogoURL,
		plugin.FileURL,
		plugin.Downloads,
		plugin.UploadDate.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create plugin: %w", err)
	}

	return nil
}

// GetByID retrieves a plugin by ID.
func (r *pluginRepository) GetByID(ctx context.Context, id string) (*domain.Plugin, error) {
	query := `
		SELECT id, name, description, price, logo_url, file_url, downloads, upload_date
		FROM plugins
		WHERE id = ?
	`

	plugin := &domain.Plugin{}
	var uploadDate string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&plugin.ID,
		&plugin.Name,
		&plugin.Description,
		&plugin.Price,
		&plugin.LogoURL,
		&plugin.FileURL,
		&plugin.Downloads,
		&uploadDate,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrPluginNotFound
		}
		return nil, fmt.Errorf("failed to get plugin: %w", err)
	}

	plugin.UploadDate, _ = time.Parse(time.RFC3339, uploadDate)

	return plugin, nil
}

// List returns all plugins.
func (r *pluginRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Plugin], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plugins`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count plugins: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = int(total)
	}

	query := `
		SELECT id, name, description, price, logo_url, file_url, downloads, upload_date
		FROM plugins
		ORDER BY upload_date DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	defer rows.Close()

	var plugins []*domain.Plugin
	for rows.Next() {
		plugin := &domain.Plugin{}
		var uploadDate string

		err := rows.Scan(
			&plugin.ID,
			&plugin.Name,
			&plugin.Description,
			&plugin.Price,
			&plugin.LogoURL,
			&plugin.FileURL,
			&plugin.Downloads,
			&uploadDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plugin: %w", err)
		}

		plugin.UploadDate, _ = time.Parse(time.RFC3339, uploadDate)

		plugins = append(plugins, plugin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plugins: %w", err)
	}

	return &repository.ListResult[domain.Plugin]{
		Items:  plugins,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

// Update applies a partial update. Only non-nil fields change.
func (r *pluginRepository) Update(ctx context.Context, id string, update domain.PluginUpdate) (*domain.Plugin, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *update.Price)
	}
	if update.LogoURL != nil {
		sets = append(sets, "logo_url = ?")
		args = append(args, *update.LogoURL)
	}
	if update.FileURL != nil {
		sets = append(sets, "file_url = ?")
		args = append(args, *update.FileURL)
	}

	args = append(args, id)
	query := `UPDATE plugins SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update plugin: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, domain.ErrPluginNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete deletes a plugin by ID.
func (r *pluginRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plugins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plugin: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrPluginNotFound
	}

	return nil
}

// IncrementDownloads atomically increments the download counter.
func (r *pluginRepository) IncrementDownloads(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE plugins SET downloads = downloads + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment downloads: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrPluginNotFound
	}

	return nil
}

// Ensure pluginRepository implements repository.PluginRepository.
var _ repository.PluginRepository = (*pluginRepository)(nil)
