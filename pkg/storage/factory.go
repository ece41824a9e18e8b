package storage

import (
	"context"
	"fmt"
	"strings"

	"download-gate/pkg/config"
)

// NewStorageProvider creates a storage provider based on configuration
func NewStorageProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	storageCfg := &cfg.Storage

	switch storageCfg.Provider {
	case config.StorageProviderLocal:
		baseURL := strings.TrimRight(cfg.Token.PublicBaseURL, "/") + LocalFilesRoute
		provider, err := NewLocalProvider(storageCfg.LocalPath, baseURL, storageCfg.LocalSigningKey)
		if err != nil {
			return nil, err
		}
		return provider, nil

	case config.StorageProviderMinIO:
		return NewMinIOProvider(ctx, storageCfg)

	case config.StorageProviderS3:
		return NewS3Provider(ctx, storageCfg)

	case config.StorageProviderGCS:
		if storageCfg.Bucket == "" {
			return nil, fmt.Errorf("GCS bucket name is required")
		}
		provider, err := NewGCSProvider(ctx, storageCfg.Bucket, storageCfg.GCSCredentialsPath)
		if err != nil {
			return nil, err
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", storageCfg.Provider)
	}
}
