package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// locatorPrefix is the URL path under which the file handler serves
// filesystem-backed objects.
const locatorPrefix = "/api/files/"

// FilesystemBackend stores files on the local disk under a data directory.
// Locators have the form /api/files/<folder>/<uuid>_<name> and are served
// back by the file handler.
type FilesystemBackend struct {
	dataDir string
	logger  zerolog.Logger
}

// NewFilesystemBackend creates a filesystem backend rooted at dataDir.
// The directory is created if it does not exist.
func NewFilesystemBackend(dataDir string, logger zerolog.Logger) (*FilesystemBackend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &FilesystemBackend{
		dataDir: dataDir,
		logger:  logger.With().Str("storage", "filesystem").Logger(),
	}, nil
}

// Put writes the content to <dataDir>/<folder>/<uuid>_<name>.
func (b *FilesystemBackend) Put(ctx context.Context, folder, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	folder = sanitizeSegment(folder)
	stored := uuid.New().String() + "_" + sanitizeSegment(filename)

	dir := filepath.Join(b.dataDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	path := filepath.Join(dir, stored)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if contentType != "" {
		if err := b.writeMeta(path, filename, contentType); err != nil {
			b.logger.Warn().Err(err).Str("path", path).Msg("failed to write file metadata")
		}
	}

	b.logger.Debug().
		Str("folder", folder).
		Str("stored", stored).
		Int64("bytes", written).
		Msg("file stored")

	return locatorPrefix + folder + "/" + stored, nil
}

// Get opens the file behind a /api/files/... locator.
func (b *FilesystemBackend) Get(ctx context.Context, locator string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folder, stored, err := splitLocator(locator)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(b.dataDir, folder, stored)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	name, contentType := b.readMeta(path, stored)

	return &Object{
		Body:        f,
		Name:        name,
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

// Delete removes the file behind a locator. Missing files are ignored.
func (b *FilesystemBackend) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	folder, stored, err := splitLocator(locator)
	if err != nil {
		return err
	}

	path := filepath.Join(b.dataDir, folder, stored)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	_ = os.Remove(path + metaSuffix)

	return nil
}

// metaSuffix marks the sidecar file holding the original name and MIME type.
const metaSuffix = ".meta.json"

type fileMeta struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

func (b *FilesystemBackend) writeMeta(path, name, contentType string) error {
	data, err := json.Marshal(fileMeta{Name: name, ContentType: contentType})
	if err != nil {
		return err
	}
	return os.WriteFile(path+metaSuffix, data, 0o644)
}

func (b *FilesystemBackend) readMeta(path, stored string) (name, contentType string) {
	// Fall back to the stored filename with its uuid prefix trimmed.
	name = stored
	if idx := strings.Index(stored, "_"); idx >= 0 {
		name = stored[idx+1:]
	}
	contentType = mime.TypeByExtension(filepath.Ext(stored))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := os.ReadFile(path + metaSuffix)
	if err != nil {
		return name, contentType
	}

	var meta fileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return name, contentType
	}

	if meta.Name != "" {
		name = meta.Name
	}
	if meta.ContentType != "" {
		contentType = meta.ContentType
	}
	return name, contentType
}

// splitLocator parses /api/files/<folder>/<stored> into its parts and
// rejects anything that could escape the data directory.
func splitLocator(locator string) (folder, stored string, err error) {
	rest, ok := strings.CutPrefix(locator, locatorPrefix)
	if !ok {
		return "", "", ErrInvalidLocator
	}

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidLocator
	}

	folder, stored = parts[0], parts[1]
	if folder != sanitizeSegment(folder) || stored != sanitizeSegment(stored) {
		return "", "", ErrInvalidLocator
	}

	return folder, stored, nil
}

// sanitizeSegment strips path separators and traversal sequences from a
// single path segment.
func sanitizeSegment(s string) string {
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "..", "_")
	s = strings.TrimSpace(s)
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Ensure FilesystemBackend implements Backend.
var _ Backend = (*FilesystemBackend)(nil)
