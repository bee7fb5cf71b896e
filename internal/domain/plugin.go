package domain

import (
	"time"
)

// Plugin represents a purchasable add-on in the catalog.
type Plugin struct {
	// ID is the unique identifier for the plugin (UUID string).
	ID string `json:"id"`

	// Name is the display name of the plugin.
	Name string `json:"name"`

	// Description explains what the plugin does.
	Description string `json:"description"`

	// Price is the cost in coins. Never negative. Zero means free.
	Price int64 `json:"price"`

	// LogoURL is the opaque locator of the logo image, resolved by the
	// file storage backend.
	LogoURL string `json:"logo_url"`

	// FileURL is the opaque locator of the plugin binary.
	FileURL string `json:"file_url"`

	// Downloads counts distinct purchases. Monotonically non-decreasing,
	// incremented exactly once per successful purchase.
	Downloads int64 `json:"downloads"`

	// UploadDate is the timestamp when the plugin was added to the catalog.
	UploadDate time.Time `json:"upload_date"`
}

// NewPlugin creates a new Plugin with zero downloads.
func NewPlugin(id, name, description string, price int64, logoURL, fileURL string) *Plugin {
	return &Plugin{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		LogoURL:     logoURL,
		FileURL:     fileURL,
		Downloads:   0,
		UploadDate:  time.Now().UTC(),
	}
}

// PluginUpdate describes a partial update to a plugin.
// Nil fields are left unchanged.
type PluginUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	LogoURL     *string
	FileURL     *string
}

// IsEmpty returns true if the update changes nothing.
func (u PluginUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil &&
		u.LogoURL == nil && u.FileURL == nil
}
