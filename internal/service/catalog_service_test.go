package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
)

func archiveUpload(name string) *Upload {
	return &Upload{
		Reader:      strings.NewReader("archive-bytes"),
		Size:        13,
		Filename:    name,
		ContentType: "application/zip",
	}
}

func logoUpload() *Upload {
	return &Upload{
		Reader:      strings.NewReader("png"),
		Size:        3,
		Filename:    "logo.png",
		ContentType: "image/png",
	}
}

func TestCatalogService_Create(t *testing.T) {
	ctx := context.Background()
	plugins := newMockPluginRepo()
	backend := newMockBackend()
	svc := NewCatalogService(plugins, backend, zerolog.Nop())

	plugin, err := svc.Create(ctx, CreatePluginInput{
		Name:        "Formatter",
		Description: "formats code",
		Price:       300,
		Archive:     archiveUpload("formatter.zip"),
		Logo:        logoUpload(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, plugin.ID)
	assert.Contains(t, plugin.FileURL, "/api/files/plugins/")
	assert.Contains(t, plugin.LogoURL, "/api/files/logos/")
	assert.Equal(t, int64(0), plugin.Downloads)

	stored, err := plugins.GetByID(ctx, plugin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Formatter", stored.Name)
}

func TestCatalogService_CreateValidation(t *testing.T) {
	svc := NewCatalogService(newMockPluginRepo(), newMockBackend(), zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreatePluginInput
		wantErr error
	}{
		{
			name:    "empty name",
			input:   CreatePluginInput{Name: "", Price: 100, Archive: archiveUpload("a.zip")},
			wantErr: ErrInvalidName,
		},
		{
			name:    "negative price",
			input:   CreatePluginInput{Name: "X", Price: -1, Archive: archiveUpload("a.zip")},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "missing archive",
			input:   CreatePluginInput{Name: "X", Price: 100},
			wantErr: ErrMissingFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCatalogService_CreateUploadFailure(t *testing.T) {
	ctx := context.Background()
	plugins := newMockPluginRepo()
	backend := newMockBackend()
	backend.failPut = true
	svc := NewCatalogService(plugins, backend, zerolog.Nop())

	_, err := svc.Create(ctx, CreatePluginInput{
		Name:    "Formatter",
		Price:   300,
		Archive: archiveUpload("formatter.zip"),
	})
	assert.ErrorIs(t, err, domain.ErrStorageFailure)

	// Upload failed before the catalog write: no record exists.
	result, err := svc.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestCatalogService_CreateRecordFailureDiscardsFiles(t *testing.T) {
	ctx := context.Background()
	plugins := newMockPluginRepo()
	plugins.failAll = true
	backend := newMockBackend()
	svc := NewCatalogService(plugins, backend, zerolog.Nop())

	_, err := svc.Create(ctx, CreatePluginInput{
		Name:    "Formatter",
		Price:   300,
		Archive: archiveUpload("formatter.zip"),
		Logo:    logoUpload(),
	})
	assert.ErrorIs(t, err, ErrInternalError)

	// Both uploads were cleaned up.
	assert.Len(t, backend.deletes, 2)
	assert.Empty(t, backend.files)
}

func TestCatalogService_Update(t *testing.T) {
	ctx := context.Background()
	plugins := newMockPluginRepo()
	backend := newMockBackend()
	svc := NewCatalogService(plugins, backend, zerolog.Nop())

	plugin, err := svc.Create(ctx, CreatePluginInput{
		Name:    "Formatter",
		Price:   300,
		Archive: archiveUpload("v1.zip"),
	})
	require.NoError(t, err)
	oldFileURL := plugin.FileURL

	newName := "Formatter Pro"
	newPrice := int64(400)
	updated, err := svc.Update(ctx, plugin.ID, UpdatePluginInput{
		Name:    &newName,
		Price:   &newPrice,
		Archive: archiveUpload("v2.zip"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Formatter Pro", updated.Name)
	assert.Equal(t, int64(400), updated.Price)
	assert.NotEqual(t, oldFileURL, updated.FileURL)

	// The superseded archive is gone.
	assert.Contains(t, backend.deletes, oldFileURL)
}

func TestCatalogService_UpdateMissing(t *testing.T) {
	svc := NewCatalogService(newMockPluginRepo(), newMockBackend(), zerolog.Nop())

	name := "X"
	_, err := svc.Update(context.Background(), "no-such-plugin", UpdatePluginInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)
}

func TestCatalogService_Delete(t *testing.T) {
	ctx := context.Background()
	plugins := newMockPluginRepo()
	backend := newMockBackend()
	svc := NewCatalogService(plugins, backend, zerolog.Nop())

	plugin, err := svc.Create(ctx, CreatePluginInput{
		Name:    "Formatter",
		Price:   300,
		Archive: archiveUpload("formatter.zip"),
		Logo:    logoUpload(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, plugin.ID))

	_, err = svc.Get(ctx, plugin.ID)
	assert.ErrorIs(t, err, domain.ErrPluginNotFound)

	// Stored files were removed as well.
	assert.Empty(t, backend.files)
}
