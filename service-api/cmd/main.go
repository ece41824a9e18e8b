package main

import (
	"context"
	"os"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"
	"download-gate/service-api/internal/app"
)

func main() {
	// Initialize configuration
	cfg := loadConfig()

	// Initialize logger
	logger.InitLogger(cfg)

	// Create and start the application server
	server := app.NewAppServer(cfg)
	server.Serve()
}

// loadConfig reads one JSON config secret when CONFIG_SECRET_NAME is set on GCP,
// otherwise the environment
func loadConfig() *config.Config {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	secretName := os.Getenv("CONFIG_SECRET_NAME")
	if projectID == "" || secretName == "" {
		return config.NewConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadFromSecretManager(ctx, projectID, secretName)
	if err != nil {
		logger.Fatalf("failed to load config from secret %s: %v", secretName, err)
	}
	return cfg
}
