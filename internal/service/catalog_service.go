package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
	"github.com/pluginverse/pluginverse/internal/storage"
)

// Upload describes an incoming file stream (plugin archive or logo).
type Upload struct {
	Reader      io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// CatalogService manages the plugin catalog and its files.
type CatalogService struct {
	pluginRepo repository.PluginRepository
	backend    storage.Backend
	logger     zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(pluginRepo repository.PluginRepository, backend storage.Backend, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		pluginRepo: pluginRepo,
		backend:    backend,
		logger:     logger.With().Str("service", "catalog").Logger(),
	}
}

// List returns all plugins.
func (s *CatalogService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Plugin], error) {
	result, err := s.pluginRepo.List(ctx, opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list plugins")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return result, nil
}

// Get returns a plugin by id.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Plugin, error) {
	plugin, err := s.pluginRepo.GetByID(ctx, id)
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("plugin_id", id).Msg("failed to get plugin")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return plugin, nil
}

// CreatePluginInput contains the data for publishing a plugin.
type CreatePluginInput struct {
	Name        string
	Description string
	Price       int64
	Archive     *Upload
	Logo        *Upload
}

// Create publishes a new plugin. Files are uploaded before the catalog
// record is written, so a failed upload never leaves a dangling record.
func (s *CatalogService) Create(ctx context.Context, input CreatePluginInput) (*domain.Plugin, error) {
	if input.Name == "" {
		return nil, ErrInvalidName
	}
	if input.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if input.Archive == nil {
		return nil, ErrMissingFile
	}

	fileURL, err := s.put(ctx, "plugins", input.Archive)
	if err != nil {
		return nil, err
	}

	var logoURL string
	if input.Logo != nil {
		logoURL, err = s.put(ctx, "logos", input.Logo)
		if err != nil {
			s.discard(ctx, fileURL)
			return nil, err
		}
	}

	plugin := domain.NewPlugin(uuid.New().String(), input.Name, input.Description, input.Price, logoURL, fileURL)

	if err := s.pluginRepo.Create(ctx, plugin); err != nil {
		s.discard(ctx, fileURL)
		s.discard(ctx, logoURL)
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create plugin")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("plugin_id", plugin.ID).
		Str("name", plugin.Name).
		Int64("price", plugin.Price).
		Msg("plugin published")

	return plugin, nil
}

// UpdatePluginInput contains the fields to change. Nil fields keep their
// previous value; non-nil uploads replace the stored file.
type UpdatePluginInput struct {
	Name        *string
	Description *string
	Price       *int64
	Archive     *Upload
	Logo        *Upload
}

// Update applies a partial update to a plugin.
func (s *CatalogService) Update(ctx context.Context, id string, input UpdatePluginInput) (*domain.Plugin, error) {
	if input.Name != nil && *input.Name == "" {
		return nil, ErrInvalidName
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, ErrInvalidPrice
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	update := domain.PluginUpdate{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
	}

	if input.Archive != nil {
		fileURL, err := s.put(ctx, "plugins", input.Archive)
		if err != nil {
			return nil, err
		}
		update.FileURL = &fileURL
	}
	if input.Logo != nil {
		logoURL, err := s.put(ctx, "logos", input.Logo)
		if err != nil {
			s.discardUpdate(ctx, update)
			return nil, err
		}
		update.LogoURL = &logoURL
	}

	plugin, err := s.pluginRepo.Update(ctx, id, update)
	if err != nil {
		s.discardUpdate(ctx, update)
		if isDomainErr(err) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("plugin_id", id).Msg("failed to update plugin")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// Old files are unreachable once the record points elsewhere.
	if update.FileURL != nil && current.FileURL != "" {
		s.discard(ctx, current.FileURL)
	}
	if update.LogoURL != nil && current.LogoURL != "" {
		s.discard(ctx, current.LogoURL)
	}

	s.logger.Info().Str("plugin_id", id).Msg("plugin updated")

	return plugin, nil
}

// Delete removes a plugin and its stored files.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	plugin, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.pluginRepo.Delete(ctx, id); err != nil {
		if isDomainErr(err) {
			return err
		}
		s.logger.Error().Err(err).Str("plugin_id", id).Msg("failed to delete plugin")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.discard(ctx, plugin.FileURL)
	s.discard(ctx, plugin.LogoURL)

	s.logger.Info().Str("plugin_id", id).Str("name", plugin.Name).Msg("plugin deleted")

	return nil
}

func (s *CatalogService) put(ctx context.Context, folder string, upload *Upload) (string, error) {
	locator, err := s.backend.Put(ctx, folder, upload.Filename, upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		s.logger.Error().Err(err).Str("folder", folder).Str("filename", upload.Filename).Msg("file upload failed")
		return "", fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return locator, nil
}

// discard removes an uploaded file after the catalog write failed or
// superseded it. Best effort.
func (s *CatalogService) discard(ctx context.Context, locator string) {
	if locator == "" {
		return
	}
	if err := s.backend.Delete(ctx, locator); err != nil {
		s.logger.Warn().Err(err).Str("locator", locator).Msg("failed to remove stored file")
	}
}

func (s *CatalogService) discardUpdate(ctx context.Context, update domain.PluginUpdate) {
	if update.FileURL != nil {
		s.discard(ctx, *update.FileURL)
	}
	if update.LogoURL != nil {
		s.discard(ctx, *update.LogoURL)
	}
}
