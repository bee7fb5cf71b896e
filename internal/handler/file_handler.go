package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/storage"
)

// FileHandler serves stored files (logos and plugin archives) when the
// filesystem backend is in use. With the S3 backend, locators point at the
// bucket's public URL and never hit this handler.
type FileHandler struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(backend storage.Backend, logger zerolog.Logger) *FileHandler {
	return &FileHandler{
		backend: backend,
		logger:  logger.With().Str("handler", "file").Logger(),
	}
}

// RegisterRoutes registers the file-serving endpoint.
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/files/{folder}/{filename}", h.handleGet)
}

func (h *FileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	filename := chi.URLParam(r, "filename")
	locator := "/api/files/" + folder + "/" + filename

	obj, err := h.backend.Get(r.Context(), locator)
	if err != nil {
		writeError(w, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn().Err(err).Str("locator", locator).Msg("file transfer interrupted")
	}
}
