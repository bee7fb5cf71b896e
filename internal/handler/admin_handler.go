package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/metrics"
	"github.com/pluginverse/pluginverse/internal/service"
)

// AdminHandler handles catalog management, deposit review, user listing
// and payment settings. All routes require an admin token.
type AdminHandler struct {
	catalog   *service.CatalogService
	deposits  *service.DepositService
	users     *service.UserService
	settings  *service.SettingsService
	maxUpload int64
	logger    zerolog.Logger
}

// AdminConfig contains the dependencies for the admin handler.
type AdminConfig struct {
	Catalog   *service.CatalogService
	Deposits  *service.DepositService
	Users     *service.UserService
	Settings  *service.SettingsService
	MaxUpload int64
	Logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		catalog:   cfg.Catalog,
		deposits:  cfg.Deposits,
		users:     cfg.Users,
		settings:  cfg.Settings,
		maxUpload: cfg.MaxUpload,
		logger:    cfg.Logger.With().Str("handler", "admin").Logger(),
	}
}

// RegisterRoutes registers the admin endpoints. The passed router must
// already enforce admin authorization.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/plugins", h.handleCreatePlugin)
	r.Put("/plugins/{id}", h.handleUpdatePlugin)
	r.Delete("/plugins/{id}", h.handleDeletePlugin)

	r.Get("/deposits", h.handleListDeposits)
	r.Post("/deposits/{id}/approve", h.handleApproveDeposit)
	r.Post("/deposits/{id}/reject", h.handleRejectDeposit)

	r.Get("/users", h.handleListUsers)

	r.Put("/payment-settings", h.handleUpdateSettings)
}

func (h *AdminHandler) handleCreatePlugin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	defer cleanupMultipart(r)

	price, err := strconv.ParseInt(r.FormValue("price"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid price"})
		return
	}

	archive, closeArchive, err := formUpload(r, "plugin_file")
	if err != nil {
		writeError(w, service.ErrMissingFile)
		return
	}
	defer closeArchive()

	logo, closeLogo, err := formUpload(r, "logo")
	if err == nil {
		defer closeLogo()
	}

	plugin, err := h.catalog.Create(r.Context(), service.CreatePluginInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		Archive:     archive,
		Logo:        logo,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, plugin)
}

func (h *AdminHandler) handleUpdatePlugin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	defer cleanupMultipart(r)

	var input service.UpdatePluginInput
	if v, ok := formValue(r, "name"); ok {
		input.Name = &v
	}
	if v, ok := formValue(r, "description"); ok {
		input.Description = &v
	}
	if v, ok := formValue(r, "price"); ok {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid price"})
			return
		}
		input.Price = &price
	}

	if archive, closeArchive, err := formUpload(r, "plugin_file"); err == nil {
		defer closeArchive()
		input.Archive = archive
	}
	if logo, closeLogo, err := formUpload(r, "logo"); err == nil {
		defer closeLogo()
		input.Logo = logo
	}

	plugin, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, plugin)
}

func (h *AdminHandler) handleDeletePlugin(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *AdminHandler) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	result, err := h.deposits.ListAll(r.Context(), pageOptions(r))
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

func (h *AdminHandler) handleApproveDeposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deposit, err := h.deposits.Approve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordDeposit("approved")

	h.logger.Info().
		Str("deposit_id", id).
		Str("user_id", deposit.UserID).
		Int64("amount", deposit.Amount).
		Msg("deposit approved")

	writeJSON(w, http.StatusOK, deposit)
}

func (h *AdminHandler) handleRejectDeposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.deposits.Reject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordDeposit("rejected")

	h.logger.Info().Str("deposit_id", id).Msg("deposit rejected")
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.users.List(r.Context(), pageOptions(r))
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

type updateSettingsRequest struct {
	Easypaisa string `json:"easypaisa"`
	Jazzcash  string `json:"jazzcash"`
	UPI       string `json:"upi"`
}

func (h *AdminHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	settings, err := h.settings.Update(r.Context(), service.UpdateSettingsInput{
		Easypaisa: req.Easypaisa,
		Jazzcash:  req.Jazzcash,
		UPI:       req.UPI,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// formValue returns a form field and whether it was present at all, so
// absent fields can be told apart from fields set to the empty string.
func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	vals, ok := r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// formUpload opens a multipart file field as an upload stream.
func formUpload(r *http.Request, key string) (*service.Upload, func(), error) {
	file, hdr, err := r.FormFile(key)
	if err != nil {
		return nil, nil, err
	}
	upload := &service.Upload{
		Reader:      file,
		Size:        hdr.Size,
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
	}
	return upload, func() { _ = file.Close() }, nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
