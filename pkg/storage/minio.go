package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioProvider implements the Provider interface using MinIO
type minioProvider struct {
	client         *minio.Client
	bucket         string
	publicClient   *minio.Client // Client configured with public endpoint for signing URLs
	publicEndpoint string        // Public endpoint for generating URLs accessible from browser
}

// NewMinIOProvider creates a new MinIO storage provider
func NewMinIOProvider(ctx context.Context, cfg *config.StorageConfig) (Provider, error) {
	publicEndpoint := cfg.PublicEndpoint
	if publicEndpoint == "" {
		publicEndpoint = cfg.Endpoint
	}

	logger.Infof("Creating MinIO provider with endpoint: %s, publicEndpoint: %s, useSSL: %v, pathStyle: %v",
		cfg.Endpoint, publicEndpoint, cfg.UseSSL, cfg.UsePathStyle)

	// create MinIO client for internal operations
	client, err := minio.New(cfg.Endpoint, minioOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// signatures cover the host, so URLs handed to clients are signed against the public endpoint
	publicClient, err := minio.New(publicEndpoint, minioOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create public MinIO client: %w", err)
	}

	provider := &minioProvider{
		client:         client,
		bucket:         cfg.Bucket,
		publicClient:   publicClient,
		publicEndpoint: publicEndpoint,
	}

	err = provider.checkBucket(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("MinIO provider initialized successfully")
	return provider, nil
}

func minioOptions(cfg *config.StorageConfig) *minio.Options {
	lookup := minio.BucketLookupDNS
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	return &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	}
}

// checkBucket verifies the bucket is reachable; buckets are never created here
func (m *minioProvider) checkBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}

// GetSignedURL returns a presigned URL for downloading an object
func (m *minioProvider) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedURL, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", contentDisposition(key))

	presignedURL, err := m.publicClient.PresignedGetObject(ctx, m.bucket, key, expiresIn, reqParams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &SignedURL{
		URL:       presignedURL.String(),
		Method:    "GET",
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

func (m *minioProvider) Name() string {
	return config.StorageProviderMinIO
}

// Close is a no-op; minio clients hold no long-lived resources
func (m *minioProvider) Close() error {
	return nil
}
