package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"download-gate/pkg/config"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSProvider implements storage for Google Cloud Storage
type GCSProvider struct {
	client *storage.Client
	bucket string
}

// NewGCSProvider creates a new GCS storage provider.
// An empty credentialsPath uses Application Default Credentials.
func NewGCSProvider(ctx context.Context, bucketName, credentialsPath string) (*GCSProvider, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSProvider{
		client: client,
		bucket: bucketName,
	}, nil
}

// GetSignedURL returns a V4 signed URL for downloading the object
func (g *GCSProvider) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedURL, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(expiresIn)
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expiresAt,
		QueryParameters: url.Values{
			"response-content-disposition": []string{contentDisposition(key)},
		},
	}

	// signing credentials are detected from the client
	signed, err := g.client.Bucket(g.bucket).SignedURL(key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return &SignedURL{
		URL:       signed,
		Method:    "GET",
		ExpiresAt: expiresAt,
	}, nil
}

func (g *GCSProvider) Name() string {
	return config.StorageProviderGCS
}

// Close closes the GCS client
func (g *GCSProvider) Close() error {
	return g.client.Close()
}
