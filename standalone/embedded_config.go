package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"download-gate/pkg/config"
)

const (
	standalonePort      = "8080"
	standaloneJWTSecret = "embedded-admin-secret-change-in-production"
	sampleObject        = "files/sample.txt"
)

// createEmbeddedConfig creates a hardcoded configuration for the standalone application
func createEmbeddedConfig() *config.Config {
	return &config.Config{
		Port: standalonePort,
		Log: config.LogConfig{
			Level:  "info",
			Format: "console",
		},
		Redis: config.RedisConfig{
			Host:    "localhost",
			Port:    "6379",
			Timeout: 3 * time.Second,
		},
		Storage: config.StorageConfig{
			Provider:        config.StorageProviderLocal,
			LocalPath:       "./data",
			LocalSigningKey: "embedded-signing-key-change-in-production",
		},
		Token: config.TokenConfig{
			TTL:           24 * time.Hour,
			MaxDownloads:  3,
			SignedURLTTL:  time.Minute,
			PublicBaseURL: fmt.Sprintf("http://localhost:%s", standalonePort),
			ConsumeMode:   config.ConsumeModeAuto,
		},
		Admin: config.AdminConfig{
			JWTSecret: standaloneJWTSecret,
		},
		RateLimit: config.RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}
}

// updateConfigWithEmbeddedServices points the config at the embedded Redis
func updateConfigWithEmbeddedServices(cfg *config.Config) {
	if embeddedRedis != nil {
		cfg.Redis.Host = embeddedRedis.Host()
		cfg.Redis.Port = embeddedRedis.Port()
	}
}

// seedSampleObject writes a small file so a fresh install has something to hand out
func seedSampleObject(cfg *config.Config) error {
	fullPath := filepath.Join(cfg.Storage.LocalPath, filepath.FromSlash(sampleObject))
	_, err := os.Stat(fullPath)
	if err == nil {
		return nil
	}

	err = os.MkdirAll(filepath.Dir(fullPath), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(fullPath, []byte("hello from download-gate\n"), 0644)
}
