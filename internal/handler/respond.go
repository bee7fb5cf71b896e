// Package handler provides the HTTP API for Pluginverse.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/pluginverse/pluginverse/internal/domain"
	"github.com/pluginverse/pluginverse/internal/repository"
	"github.com/pluginverse/pluginverse/internal/service"
	"github.com/pluginverse/pluginverse/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// errorResponse is the uniform error body for all API failures.
type errorResponse struct {
	Error string `json:"error"`
}

// listResponse is the uniform paging envelope for list endpoints.
type listResponse struct {
	Items  any   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps business outcomes to HTTP status codes. Anything not
// recognized is reported as an internal error without leaking details.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: publicMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrMissingFile),
		errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrNotPurchased):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPluginNotFound),
		errors.Is(err, domain.ErrDepositNotFound),
		errors.Is(err, domain.ErrFileNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrAlreadyPurchased),
		errors.Is(err, domain.ErrDepositProcessed),
		errors.Is(err, service.ErrLockContention):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return service.ErrInternalError.Error()
	}
	return err.Error()
}

// decodeJSON parses a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pageOptions extracts offset/limit query parameters with sane bounds.
func pageOptions(r *http.Request) repository.ListOptions {
	opts := repository.ListOptions{Limit: defaultPageLimit}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if opts.Limit > maxPageLimit {
		opts.Limit = maxPageLimit
	}
	return opts
}
