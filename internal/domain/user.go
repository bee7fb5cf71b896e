// Package domain contains the core business entities for Pluginverse.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the plugin marketplace.
package domain

import (
	"time"
)

// User represents a registered user in the marketplace.
// Users hold a coin balance funded through approved deposits and own a
// set of purchased plugins.
type User struct {
	// ID is the unique identifier for the user (UUID string).
	ID string `json:"id"`

	// Username is the unique username for login and display.
	// Constraints: 3-255 characters.
	Username string `json:"username"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Coins is the virtual-currency balance. Never negative.
	Coins int64 `json:"coins"`

	// Purchases is the set of plugin IDs the user owns.
	// A plugin ID appears at most once.
	Purchases []string `json:"purchases"`

	// IsAdmin indicates whether the user has administrative privileges.
	// Admins manage the catalog, deposits, and payment settings.
	IsAdmin bool `json:"is_admin"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new User with default values.
func NewUser(id, username, email, passwordHash string) *User {
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Coins:        0,
		Purchases:    []string{},
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}
}

// Owns returns true if the user has purchased the given plugin.
func (u *User) Owns(pluginID string) bool {
	for _, id := range u.Purchases {
		if id == pluginID {
			return true
		}
	}
	return false
}

// CanAfford returns true if the user's balance covers the given price.
func (u *User) CanAfford(price int64) bool {
	return u.Coins >= price
}
