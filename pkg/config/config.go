package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage provider names
const (
	StorageProviderS3    = "s3"
	StorageProviderMinIO = "minio"
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

// Consume modes for the token store
const (
	ConsumeModeAuto     = "auto"
	ConsumeModeScript   = "script"
	ConsumeModeFallback = "fallback"
)

type Config struct {
	Port      string          `json:"port"`
	Log       LogConfig       `json:"log"`
	Redis     RedisConfig     `json:"redis"`
	Storage   StorageConfig   `json:"storage"`
	Token     TokenConfig     `json:"token"`
	Admin     AdminConfig     `json:"admin"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "json" or "console"
}

type RedisConfig struct {
	Host     string        `json:"host"`
	Port     string        `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	Timeout  time.Duration `json:"timeout"` // read/write/dial timeout per operation
}

// Addr returns the host:port pair of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type StorageConfig struct {
	Provider           string `json:"provider"`
	Bucket             string `json:"bucket"`
	Region             string `json:"region"`
	Endpoint           string `json:"endpoint"`
	PublicEndpoint     string `json:"public_endpoint"` // host used when signing URLs handed to clients
	AccessKey          string `json:"access_key"`
	SecretKey          string `json:"secret_key"`
	UsePathStyle       bool   `json:"use_path_style"`
	UseSSL             bool   `json:"use_ssl"`
	LocalPath          string `json:"local_path"`
	LocalSigningKey    string `json:"local_signing_key"`
	GCSCredentialsPath string `json:"gcs_credentials_path"`
}

type TokenConfig struct {
	TTL           time.Duration `json:"ttl"`
	MaxDownloads  int           `json:"max_downloads"`
	SignedURLTTL  time.Duration `json:"signed_url_ttl"`
	PublicBaseURL string        `json:"public_base_url"`
	ConsumeMode   string        `json:"consume_mode"`
}

type AdminConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

type RateLimitConfig struct {
	RequestsPerMinute int      `json:"requests_per_minute"`
	Burst             int      `json:"burst"`
	TrustedProxies    []string `json:"trusted_proxies"` // IPs or CIDRs allowed to set X-Forwarded-For, empty trusts none
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
}

func init() {
	if !isGCP {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Could not find or load .env file.")
		}
	}
}

func NewConfig() *Config {
	cfg := &Config{
		Port: getOptionalSecret("PORT", "8080"),
		Log: LogConfig{
			Level:  getOptionalSecret("LOG_LEVEL", "info"),
			Format: getOptionalSecret("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Host:     getOptionalSecret("REDIS_HOST", "localhost"),
			Port:     getOptionalSecret("REDIS_PORT", "6379"),
			Password: getOptionalSecret("REDIS_PASSWORD", ""),
			DB:       parseOptionalInt("REDIS_DB", 0),
			Timeout:  parseOptionalSeconds("REDIS_TIMEOUT_SECONDS", 3*time.Second),
		},
		Storage: StorageConfig{
			Provider:           getOptionalSecret("STORAGE_PROVIDER", StorageProviderS3),
			Bucket:             getOptionalSecret("STORAGE_BUCKET", ""),
			Region:             getOptionalSecret("STORAGE_REGION", ""),
			Endpoint:           getOptionalSecret("STORAGE_ENDPOINT", ""),
			PublicEndpoint:     getOptionalSecret("STORAGE_PUBLIC_ENDPOINT", ""),
			AccessKey:          getOptionalSecret("STORAGE_ACCESS_KEY", ""),
			SecretKey:          getOptionalSecret("STORAGE_SECRET_KEY", ""),
			UsePathStyle:       parseOptionalBool("STORAGE_USE_PATH_STYLE", false),
			UseSSL:             parseOptionalBool("STORAGE_USE_SSL", true),
			LocalPath:          getOptionalSecret("STORAGE_LOCAL_PATH", "./data"),
			LocalSigningKey:    getOptionalSecret("STORAGE_LOCAL_SIGNING_KEY", ""),
			GCSCredentialsPath: getOptionalSecret("GCS_CREDENTIALS_PATH", ""),
		},
		Token: TokenConfig{
			TTL:           parseOptionalSeconds("TOKEN_TTL_SECONDS", 24*time.Hour),
			MaxDownloads:  parseOptionalInt("MAX_DOWNLOADS", 3),
			SignedURLTTL:  parseOptionalSeconds("SIGNED_URL_TTL_SECONDS", time.Minute),
			PublicBaseURL: getOptionalSecret("PUBLIC_BASE_URL", "http://localhost:8080"),
			ConsumeMode:   getOptionalSecret("TOKEN_CONSUME_MODE", ConsumeModeAuto),
		},
		Admin: AdminConfig{
			JWTSecret: getRequiredSecret("ADMIN_JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: parseOptionalInt("RATE_LIMIT_PER_MINUTE", 60),
			Burst:             parseOptionalInt("RATE_LIMIT_BURST", 10),
			TrustedProxies:    splitList(getOptionalSecret("TRUSTED_PROXIES", "")),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getOptionalSecret("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}

	err := cfg.Validate()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	return cfg
}

// Validate checks the cross-field constraints the rest of the service relies on
func (c *Config) Validate() error {
	var errs []error

	if c.Token.MaxDownloads < 1 {
		errs = append(errs, fmt.Errorf("MAX_DOWNLOADS must be at least 1, got %d", c.Token.MaxDownloads))
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL_SECONDS must be positive"))
	}
	if c.Token.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL_SECONDS must be positive"))
	}
	if c.Token.SignedURLTTL >= c.Token.TTL {
		errs = append(errs, errors.New("SIGNED_URL_TTL_SECONDS must be shorter than TOKEN_TTL_SECONDS"))
	}
	if c.Token.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required"))
	}

	switch c.Token.ConsumeMode {
	case ConsumeModeAuto, ConsumeModeScript, ConsumeModeFallback:
	default:
		errs = append(errs, fmt.Errorf("unsupported TOKEN_CONSUME_MODE: %s", c.Token.ConsumeMode))
	}

	switch c.Storage.Provider {
	case StorageProviderS3, StorageProviderMinIO, StorageProviderGCS:
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("STORAGE_BUCKET is required for provider %s", c.Storage.Provider))
		}
	case StorageProviderLocal:
		if c.Storage.LocalSigningKey == "" {
			errs = append(errs, errors.New("STORAGE_LOCAL_SIGNING_KEY is required for the local provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage provider: %s", c.Storage.Provider))
	}

	if c.Storage.Provider == StorageProviderMinIO && c.Storage.Endpoint == "" {
		errs = append(errs, errors.New("STORAGE_ENDPOINT is required for the minio provider"))
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate limit settings must not be negative"))
	}

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
