package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"download-gate/pkg/logger"
)

func main() {

	// Create centralized configuration
	cfg := createEmbeddedConfig()

	logger.InitLogger(cfg)

	logger.Info("🚀 Starting Download Gate Standalone Application...")
	logger.Info("This includes: embedded Redis, local file storage and the API service")

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	// Start embedded Redis
	redisReady := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		startEmbeddedRedis(ctx, redisReady)
	}()

	// Wait for embedded services to be ready
	logger.Info("⏳ Waiting for embedded Redis to be ready...")
	select {
	case <-redisReady:
	case <-time.After(30 * time.Second):
		logger.Fatalf("Embedded Redis failed to become ready within 30 seconds")
	}

	// Update config with actual embedded service addresses
	updateConfigWithEmbeddedServices(cfg)

	err := seedSampleObject(cfg)
	if err != nil {
		logger.Fatalf("Failed to seed sample object: %v", err)
	}

	logger.Info("🚀 Starting application services...")

	// Start API service with config
	wg.Add(1)
	go func() {
		defer wg.Done()
		startAPIService(ctx, cfg)
	}()

	logAdminToken(cfg)

	// Setup graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	logger.Info("Shutting down...")
	cancel()
	wg.Wait()
	logger.Info("Shutdown complete")
}
