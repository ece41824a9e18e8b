package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"download-gate/pkg/auth"
	"download-gate/pkg/config"
)

// LocalFilesRoute is the path prefix under which signed local files are served
const LocalFilesRoute = "/files"

// LocalProvider implements storage for local filesystem.
// Signed URLs point back at this service, which verifies them before serving the file.
type LocalProvider struct {
	basePath string
	baseURL  string
	signer   *auth.URLSigner
}

// NewLocalProvider creates a new local storage provider
func NewLocalProvider(basePath, baseURL, signingKey string) (*LocalProvider, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("local storage signing key is required")
	}

	// ensure the base path exists
	err := os.MkdirAll(basePath, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		signer:   auth.NewURLSigner(signingKey),
	}, nil
}

// GetSignedURL returns an HMAC signed URL served by the files route
func (l *LocalProvider) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedURL, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	escaped := (&url.URL{Path: key}).EscapedPath()
	query := l.signer.SignedQuery(key, expiresIn)

	return &SignedURL{
		URL:       fmt.Sprintf("%s/%s?%s", l.baseURL, escaped, query.Encode()),
		Method:    "GET",
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

// ResolveSigned verifies a signed request for key and returns the file path to serve
func (l *LocalProvider) ResolveSigned(key, expires, signature string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	err = l.signer.Verify(key, expires, signature)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	info, err := os.Stat(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidKey, key)
	}

	return fullPath, nil
}

func (l *LocalProvider) Name() string {
	return config.StorageProviderLocal
}

func (l *LocalProvider) Close() error {
	return nil
}
