// Package service provides business logic services for Pluginverse.
package service

import (
	"errors"

	"github.com/pluginverse/pluginverse/internal/domain"
)

// Common service errors.
var (
	// Validation errors
	ErrInvalidUsername = errors.New("invalid username: must be 3-255 characters")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidPassword = errors.New("invalid password: must be at least 8 characters")
	ErrInvalidName     = errors.New("invalid name: must not be empty")
	ErrInvalidPrice    = errors.New("invalid price: must not be negative")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrMissingFile     = errors.New("plugin file is required")

	// General errors
	ErrLockContention = errors.New("resource is busy, try again")
	ErrInternalError  = errors.New("internal server error")
)

// domainSentinels are the business-rule errors repositories surface.
// Anything outside this list is treated as an infrastructure failure.
var domainSentinels = []error{
	domain.ErrUserNotFound,
	domain.ErrUserAlreadyExists,
	domain.ErrInvalidCredentials,
	domain.ErrPluginNotFound,
	domain.ErrAlreadyPurchased,
	domain.ErrNotPurchased,
	domain.ErrInsufficientFunds,
	domain.ErrDepositNotFound,
	domain.ErrDepositProcessed,
	domain.ErrInvalidAmount,
	domain.ErrFileNotFound,
	domain.ErrAccessDenied,
	domain.ErrInvalidToken,
}

// isDomainErr reports whether err is a business-rule outcome that should be
// passed through to the caller unchanged.
func isDomainErr(err error) bool {
	for _, sentinel := range domainSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
