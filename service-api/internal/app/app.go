package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"download-gate/pkg/config"
	"download-gate/pkg/logger"
	"download-gate/pkg/metrics"
	"download-gate/pkg/redis"
	"download-gate/pkg/storage"
	mdw "download-gate/service-api/internal/app/middleware"
	ctl "download-gate/service-api/internal/controller"
	tokenRepo "download-gate/service-api/internal/repository/token"
	downloadService "download-gate/service-api/internal/service/download"
	tokenService "download-gate/service-api/internal/service/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

type AppServer struct {
	config             *config.Config
	redis              *redis.Client
	storageProvider    storage.Provider
	registry           *prometheus.Registry
	middleware         mdw.MiddlewareProvider
	downloadService    downloadService.Service
	downloadController *ctl.DownloadController
	fileController     *ctl.FileController
}

// NewAppServer connects to the token store and the storage backend and wires the handlers.
// Any failure here is fatal.
func NewAppServer(cfg *config.Config) *AppServer {
	ctx := context.Background()

	// initialize token store
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatalf("failed to initialize token store: %v", err)
	}

	// initialize storage provider
	storageProvider, err := storage.NewStorageProvider(ctx, cfg)
	if err != nil {
		redisClient.Close()
		logger.Fatalf("failed to initialize storage provider: %v", err)
	}

	server, err := newAppServer(ctx, cfg, redisClient, storageProvider)
	if err != nil {
		storageProvider.Close()
		redisClient.Close()
		logger.Fatalf("failed to initialize app server: %v", err)
	}

	return server
}

// newAppServer builds the server around already connected clients
func newAppServer(ctx context.Context, cfg *config.Config, redisClient *redis.Client, storageProvider storage.Provider) (*AppServer, error) {
	// initialize repositories
	tokenRepository, err := tokenRepo.NewRepository(ctx, redisClient, cfg.Token.ConsumeMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token repository: %w", err)
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	m.SetConsumeMode(string(tokenRepository.Mode()))

	// initialize services
	tokenSvc := tokenService.NewTokenService(&cfg.Token, tokenRepository)
	downloadSvc := downloadService.NewDownloadService(&cfg.Token, tokenSvc, storageProvider, m)

	// initialize controllers
	var fileController *ctl.FileController
	if local, ok := storageProvider.(*storage.LocalProvider); ok {
		fileController = ctl.NewFileController(local)
	}

	logger.WithFields(map[string]interface{}{
		"storage_provider": storageProvider.Name(),
		"consume_mode":     tokenSvc.ConsumeMode(),
		"max_downloads":    cfg.Token.MaxDownloads,
		"token_ttl":        cfg.Token.TTL.String(),
		"signed_url_ttl":   cfg.Token.SignedURLTTL.String(),
	}, "download gate configured")

	return &AppServer{
		config:             cfg,
		redis:              redisClient,
		storageProvider:    storageProvider,
		registry:           registry,
		middleware:         mdw.NewMiddleware(&cfg.RateLimit),
		downloadService:    downloadSvc,
		downloadController: ctl.NewDownloadController(downloadSvc),
		fileController:     fileController,
	}, nil
}

// Serve runs the server until SIGINT, SIGTERM or SIGHUP
func (a *AppServer) Serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	a.Run(ctx)
}

// Run serves until ctx is done, then shuts down and releases the store and storage clients
func (a *AppServer) Run(ctx context.Context) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.config.Port),
		Handler:           a.RegisterHandlers(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// serve the server
	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed to start: %v", err)
		}
	}()

	logger.Infof("server started on port %s", a.config.Port)

	<-ctx.Done()
	a.gracefulShutdown(server)

	logger.Info("server shutdown complete")
}

func (a *AppServer) gracefulShutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		logger.Error(err, "server shutdown error")
	} else {
		logger.Info("server graceful shutdown")
	}

	err = a.storageProvider.Close()
	if err != nil {
		logger.Error(err, "failed to close storage provider")
	}

	err = a.redis.Close()
	if err != nil {
		logger.Error(err, "failed to close token store connection")
	}
}
