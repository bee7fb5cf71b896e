// Package storage provides backends for plugin archives and logo images.
// A backend turns an uploaded stream into an opaque locator (a URL path for
// the filesystem backend, a public object URL for S3) that is persisted on
// the catalog record and later resolved for download.
package storage

import (
	"context"
	"errors"
	"io"
)

// Storage errors.
var (
	// ErrNotFound is returned when a locator resolves to nothing.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidLocator is returned for locators this backend did not issue.
	ErrInvalidLocator = errors.New("invalid file locator")
)

// Object describes a stored file returned by Get.
type Object struct {
	// Body is the content stream. The caller must close it.
	Body io.ReadCloser

	// Name is the original filename as uploaded.
	Name string

	// ContentType is the MIME type recorded at upload time.
	ContentType string

	// Size is the content length in bytes, or -1 when unknown.
	Size int64
}

// Backend is the interface for file storage backends.
type Backend interface {
	// Put stores the content under the given folder ("plugins", "logos")
	// and returns the locator to persist on the catalog record. The
	// original filename is kept, prefixed with a random ID to avoid
	// collisions.
	Put(ctx context.Context, folder, filename string, reader io.Reader, size int64, contentType string) (locator string, err error)

	// Get resolves a locator issued by Put. Returns ErrNotFound when the
	// underlying object is gone and ErrInvalidLocator for foreign locators.
	Get(ctx context.Context, locator string) (*Object, error)

	// Delete removes the object behind a locator. Deleting an already
	// missing object is not an error.
	Delete(ctx context.Context, locator string) error
}
