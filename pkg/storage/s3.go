package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Provider implements the Provider interface using AWS S3 or an S3-compatible service
type s3Provider struct {
	presigner *s3.PresignClient
	bucket    string
}

// NewS3Provider creates a new S3 storage provider.
// Region and credentials fall back to the default AWS config chain when empty.
func NewS3Provider(ctx context.Context, cfg *config.StorageConfig) (Provider, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// presigned URLs embed the endpoint host, so prefer the public one when set
	endpoint := cfg.PublicEndpoint
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	if endpoint != "" {
		logger.Infof("S3 provider using custom endpoint: %s (path-style: %v)", endpoint, cfg.UsePathStyle)
	} else {
		logger.Infof("S3 provider using AWS S3 in region: %s (path-style: %v)", awsCfg.Region, cfg.UsePathStyle)
	}

	return &s3Provider{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
	}, nil
}

// GetSignedURL returns a presigned GET URL for the object
func (s *s3Provider) GetSignedURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedURL, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(contentDisposition(key)),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return nil, fmt.Errorf("failed to presign S3 object: %w", err)
	}

	return &SignedURL{
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

func (s *s3Provider) Name() string {
	return config.StorageProviderS3
}

func (s *s3Provider) Close() error {
	return nil
}

// endpointURL adds a scheme to bare host:port endpoints
func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
