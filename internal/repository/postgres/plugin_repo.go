package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

// pluginRepository implements repository.PluginRepository for PostgreSQL.
type pluginRepository struct {
	db *DB
}

// NewPluginRepository creates a new PostgreSQL plugin repository.
func NewPluginRepository(db *DB) repository.PluginRepository {
	return &pluginRepository{db: db}
}

// Create creates a new plugin.
func (r *pluginRepository) Create(ctx context.Context, plugin *domain.Plugin) error {
	query := `
		INSERT INTO plugins (id, name, description, price, logo_url, file_url, downloads, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		plugin.ID,
		plugin.Name,
		plugin.Description,
		plugin.Price,
		plugin.LogoURL,
		plugin.FileURL,
		plugin.Downloads,
		plugin.UploadDate,
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
		WHERE id = $1
	`

	plugin := &domain.Plugin{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&plugin.ID,
		&plugin.Name,
		&plugin.Description,
		&plugin.Price,
		&plugin.LogoURL,
		&plugin.FileURL,
		&plugin.Downloads,
		&plugin.UploadDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPluginNotFound
		}
		return nil, fmt.Errorf("failed to get plugin: %w", err)
	}

	return plugin, nil
}

// List returns all plugins.
func (r *pluginRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Plugin], error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM plugins`).Scan(&total); err != nil {
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
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	defer rows.Close()

	var plugins []*domain.Plugin
	for rows.Next() {
		plugin := &domain.Plugin{}
		err := rows.Scan(
			&plugin.ID,
			&plugin.Name,
			&plugin.Description,
			&plugin.Price,
			&plugin.LogoURL,
			&plugin.FileURL,
			&plugin.Downloads,
			&plugin.UploadDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plugin: %w", err)
		}
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
	args := make([]any, 0, 6)

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		addSet("name", *update.Name)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.Price != nil {
		addSet("price", *update.Price)
	}
	if update.LogoURL != nil {
		addSet("logo_url", *update.LogoURL)
	}
	if update.FileURL != nil {
		addSet("file_url", *update.FileURL)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE plugins SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update plugin: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil, domain.ErrPluginNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete deletes a plugin by ID.
func (r *pluginRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM plugins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plugin: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrPluginNotFound
	}

	return nil
}

// IncrementDownloads atomically increments the download counter.
func (r *pluginRepository) IncrementDownloads(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE plugins SET downloads = downloads + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment downloads: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrPluginNotFound
	}

	return nil
}

// Ensure pluginRepository implements repository.PluginRepository.
var _ repository.PluginRepository = (*pluginRepository)(nil)
