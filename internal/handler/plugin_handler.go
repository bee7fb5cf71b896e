package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/metrics"
	"github.com/pluginverse/pluginverse/internal/service"
	"github.com/pluginverse/pluginverse/internal/storage"
)

// PluginHandler serves the public catalog, purchases and downloads.
type PluginHandler struct {
	catalog   *service.CatalogService
	purchases *service.PurchaseService
	backend   storage.Backend
	logger    zerolog.Logger
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(catalog *service.CatalogService, purchases *service.PurchaseService, backend storage.Backend, logger zerolog.Logger) *PluginHandler {
	return &PluginHandler{
		catalog:   catalog,
		purchases: purchases,
		backend:   backend,
		logger:    logger.With().Str("handler", "plugin").Logger(),
	}
}

// RegisterPublicRoutes registers the unauthenticated catalog endpoints.
func (h *PluginHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/plugins", h.handleList)
	r.Get("/plugins/{id}", h.handleGet)
}

// RegisterProtectedRoutes registers the token-gated purchase endpoints.
func (h *PluginHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/plugins/{id}/buy", h.handleBuy)
	r.Get("/plugins/{id}/download", h.handleDownload)
}

func (h *PluginHandler) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.List(r.Context(), pageOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items:  result.Items,
		Total:  result.Total,
		Offset: result.Offset,
		Limit:  result.Limit,
	})
}

func (h *PluginHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	plugin, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plugin)
}

type buyResponse struct {
	Plugin any   `json:"plugin"`
	Coins  int64 `json:"coins"`
}

func (h *PluginHandler) handleBuy(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	pluginID := chi.URLParam(r, "id")

	plugin, coins, err := h.purchases.Buy(r.Context(), user, pluginID)
	if err != nil {
		metrics.RecordPurchase("failed")
		writeError(w, err)
		return
	}
	metrics.RecordPurchase("ok")

	h.logger.Info().
		Str("user_id", user.ID).
		Str("plugin_id", pluginID).
		Int64("price", plugin.Price).
		Msg("plugin purchased")

	writeJSON(w, http.StatusOK, buyResponse{Plugin: plugin, Coins: coins})
}

func (h *PluginHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	pluginID := chi.URLParam(r, "id")

	plugin, err := h.purchases.Download(r.Context(), user, pluginID)
	if err != nil {
		writeError(w, err)
		return
	}

	obj, err := h.backend.Get(r.Context(), plugin.FileURL)
	if err != nil {
		h.logger.Error().Err(err).Str("plugin_id", pluginID).Msg("failed to fetch plugin file")
		writeError(w, err)
		return
	}
	defer obj.Body.Close()

	metrics.RecordDownload()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", obj.Name))
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn().Err(err).Str("plugin_id", pluginID).Msg("download interrupted")
	}
}
