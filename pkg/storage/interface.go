package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

var ErrInvalidKey = errors.New("invalid object key")

// Provider defines the interface for storage providers
type Provider interface {
	// GetSignedURL returns a time-limited GET URL for the object stored under key
	GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedURL, error)

	// Name returns the provider identifier used in logs
	Name() string

	// Close releases clients held by the provider
	Close() error
}

// SignedURL represents a presigned download URL
type SignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// cleanKey normalizes an object key and rejects keys that escape the bucket root
func cleanKey(key string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// contentDisposition makes browsers save the object under its base name
func contentDisposition(key string) string {
	name := strings.ReplaceAll(path.Base(key), `"`, "")
	return fmt.Sprintf(`attachment; filename="%s"`, name)
}
