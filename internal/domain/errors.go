// Package domain contains the core business entities for Pluginverse.
package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, storage, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username/email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ===========================================
	// Plugin Errors
	// ===========================================

	// ErrPluginNotFound indicates the requested plugin does not exist.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyPurchased indicates the user already owns the plugin.
	ErrAlreadyPurchased = errors.New("plugin already purchased")

	// ErrNotPurchased indicates the user has not bought the plugin.
	ErrNotPurchased = errors.New("plugin not purchased")

	// ErrInsufficientFunds indicates the balance does not cover the price.
	ErrInsufficientFunds = errors.New("insufficient coins")

	// ===========================================
	// Deposit Errors
	// ===========================================

	// ErrDepositNotFound indicates the requested deposit does not exist.
	ErrDepositNotFound = errors.New("deposit not found")

	// ErrDepositProcessed indicates the deposit already left the Pending state.
	ErrDepositProcessed = errors.New("deposit already processed")

	// ErrInvalidAmount indicates a zero or negative deposit amount.
	ErrInvalidAmount = errors.New("deposit amount must be positive")

	// ===========================================
	// File Storage Errors
	// ===========================================

	// ErrFileNotFound indicates the requested stored file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrStorageFailure indicates the storage backend rejected the operation.
	ErrStorageFailure = errors.New("file storage failure")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the user does not have permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidToken indicates the bearer token is missing, malformed,
	// expired, or carries a bad signature.
	ErrInvalidToken = errors.New("invalid token")
)
