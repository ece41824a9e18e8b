package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SecretManagerConfig represents the JSON structure stored in Secret Manager
type SecretManagerConfig struct {
	Application SecretApplicationConfig `json:"application"`
	Redis       SecretRedisConfig       `json:"redis"`
	Storage     SecretStorageConfig     `json:"storage"`
	Token       SecretTokenConfig       `json:"token"`
}

// SecretApplicationConfig holds application-specific settings from Secret Manager
type SecretApplicationConfig struct {
	Port               string `json:"port"`
	AdminJWTSecret     string `json:"admin_jwt_secret"`
	LogLevel           string `json:"log_level"`
	LogFormat          string `json:"log_format"`
	CORSAllowedOrigins string `json:"cors_allowed_origins"`
	RateLimitPerMinute string `json:"rate_limit_per_minute"`
	RateLimitBurst     string `json:"rate_limit_burst"`
	TrustedProxies     string `json:"trusted_proxies"`
}

// SecretRedisConfig holds Redis connection settings from Secret Manager
type SecretRedisConfig struct {
	Host           string `json:"host"`
	Port           string `json:"port"`
	Password       string `json:"password"`
	DB             string `json:"db"`
	TimeoutSeconds string `json:"timeout_seconds"`
}

// SecretStorageConfig holds storage provider settings from Secret Manager
type SecretStorageConfig struct {
	Provider           string `json:"provider"`
	Bucket             string `json:"bucket"`
	Region             string `json:"region"`
	Endpoint           string `json:"endpoint"`
	PublicEndpoint     string `json:"public_endpoint"`
	AccessKey          string `json:"access_key"`
	SecretKey          string `json:"secret_key"`
	UsePathStyle       string `json:"use_path_style"`
	UseSSL             string `json:"use_ssl"`
	GCSCredentialsPath string `json:"gcs_credentials_path"`
}

// SecretTokenConfig holds download token settings from Secret Manager
type SecretTokenConfig struct {
	TTLSeconds          string `json:"ttl_seconds"`
	MaxDownloads        string `json:"max_downloads"`
	SignedURLTTLSeconds string `json:"signed_url_ttl_seconds"`
	PublicBaseURL       string `json:"public_base_url"`
	ConsumeMode         string `json:"consume_mode"`
}

// LoadFromSecretManager loads configuration from a single JSON secret in Google Secret Manager
func LoadFromSecretManager(ctx context.Context, projectID, secretName string) (*Config, error) {
	data, err := readSecret(ctx, latestSecretVersion(projectID, secretName))
	if err != nil {
		return nil, err
	}

	var secretConfig SecretManagerConfig
	if err := json.Unmarshal([]byte(data), &secretConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config JSON: %w", err)
	}

	cfg, err := convertSecretToConfig(&secretConfig)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in secret %s: %w", secretName, err)
	}

	return cfg, nil
}

// convertSecretToConfig converts SecretManagerConfig to the Config structure, applying the same defaults as NewConfig
func convertSecretToConfig(secret *SecretManagerConfig) (*Config, error) {
	redisDB, err := atoiOr(secret.Redis.DB, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid redis db: %w", err)
	}

	redisTimeout, err := secondsOr(secret.Redis.TimeoutSeconds, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid redis timeout_seconds: %w", err)
	}

	usePathStyle, err := boolOr(secret.Storage.UsePathStyle, false)
	if err != nil {
		return nil, fmt.Errorf("invalid use_path_style: %w", err)
	}

	useSSL, err := boolOr(secret.Storage.UseSSL, true)
	if err != nil {
		return nil, fmt.Errorf("invalid use_ssl: %w", err)
	}

	tokenTTL, err := secondsOr(secret.Token.TTLSeconds, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid token ttl_seconds: %w", err)
	}

	maxDownloads, err := atoiOr(secret.Token.MaxDownloads, 3)
	if err != nil {
		return nil, fmt.Errorf("invalid max_downloads: %w", err)
	}

	signedURLTTL, err := secondsOr(secret.Token.SignedURLTTLSeconds, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid signed_url_ttl_seconds: %w", err)
	}

	ratePerMinute, err := atoiOr(secret.Application.RateLimitPerMinute, 60)
	if err != nil {
		return nil, fmt.Errorf("invalid rate_limit_per_minute: %w", err)
	}

	rateBurst, err := atoiOr(secret.Application.RateLimitBurst, 10)
	if err != nil {
		return nil, fmt.Errorf("invalid rate_limit_burst: %w", err)
	}

	return &Config{
		Port: stringOr(secret.Application.Port, "8080"),
		Log: LogConfig{
			Level:  stringOr(secret.Application.LogLevel, "info"),
			Format: stringOr(secret.Application.LogFormat, "json"),
		},
		Redis: RedisConfig{
			Host:     stringOr(secret.Redis.Host, "localhost"),
			Port:     stringOr(secret.Redis.Port, "6379"),
			Password: secret.Redis.Password,
			DB:       redisDB,
			Timeout:  redisTimeout,
		},
		Storage: StorageConfig{
			Provider:           stringOr(secret.Storage.Provider, StorageProviderS3),
			Bucket:             secret.Storage.Bucket,
			Region:             secret.Storage.Region,
			Endpoint:           secret.Storage.Endpoint,
			PublicEndpoint:     secret.Storage.PublicEndpoint,
			AccessKey:          secret.Storage.AccessKey,
			SecretKey:          secret.Storage.SecretKey,
			UsePathStyle:       usePathStyle,
			UseSSL:             useSSL,
			GCSCredentialsPath: secret.Storage.GCSCredentialsPath,
		},
		Token: TokenConfig{
			TTL:           tokenTTL,
			MaxDownloads:  maxDownloads,
			SignedURLTTL:  signedURLTTL,
			PublicBaseURL: stringOr(secret.Token.PublicBaseURL, "http://localhost:8080"),
			ConsumeMode:   stringOr(secret.Token.ConsumeMode, ConsumeModeAuto),
		},
		Admin: AdminConfig{
			JWTSecret: secret.Application.AdminJWTSecret,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: ratePerMinute,
			Burst:             rateBurst,
			TrustedProxies:    splitList(secret.Application.TrustedProxies),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(secret.Application.CORSAllowedOrigins),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}, nil
}

func stringOr(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func atoiOr(value string, defaultValue int) (int, error) {
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func secondsOr(value string, defaultValue time.Duration) (time.Duration, error) {
	if value == "" {
		return defaultValue, nil
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func boolOr(value string, defaultValue bool) (bool, error) {
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(value)
}
