package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/metrics"
	"github.com/pluginverse/pluginverse/internal/service"
)

// DepositHandler handles deposit submission and the public payment settings.
type DepositHandler struct {
	deposits *service.DepositService
	settings *service.SettingsService
	logger   zerolog.Logger
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(deposits *service.DepositService, settings *service.SettingsService, logger zerolog.Logger) *DepositHandler {
	return &DepositHandler{
		deposits: deposits,
		settings: settings,
		logger:   logger.With().Str("handler", "deposit").Logger(),
	}
}

// RegisterPublicRoutes registers the unauthenticated endpoints.
func (h *DepositHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/payment-settings", h.handleGetSettings)
}

// RegisterProtectedRoutes registers the token-gated deposit endpoints.
func (h *DepositHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/deposits", h.handleSubmit)
	r.Get("/deposits/my", h.handleListMine)
}

type submitDepositRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
	TxnID  string `json:"txn_id"`
}

func (h *DepositHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req submitDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	deposit, err := h.deposits.Submit(r.Context(), user, service.SubmitInput{
		Amount: req.Amount,
		Method: req.Method,
		TxnID:  req.TxnID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordDeposit("submitted")

	writeJSON(w, http.StatusCreated, deposit)
}

func (h *DepositHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	deposits, err := h.deposits.ListMine(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

func (h *DepositHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
