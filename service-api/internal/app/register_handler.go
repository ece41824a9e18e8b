package app

import (
	"context"
	"net/http"
	"time"

	"download-gate/pkg/auth"
	"download-gate/pkg/logger"
	"download-gate/pkg/storage"
	mdw "download-gate/service-api/internal/app/middleware"
	ctl "download-gate/service-api/internal/controller"
	tokenRepo "download-gate/service-api/internal/repository/token"
	downloadService "download-gate/service-api/internal/service/download"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *AppServer) RegisterHandlers() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler := gin.New()

	// client IPs key the rate limiter, so forwarded headers are honoured only from configured proxies
	err := handler.SetTrustedProxies(a.config.RateLimit.TrustedProxies)
	if err != nil {
		logger.Errorf(err, "invalid trusted proxies %v, trusting none", a.config.RateLimit.TrustedProxies)
		_ = handler.SetTrustedProxies(nil)
	}

	// middlewares
	logger.Debugf("allowing CORS origins: %v", a.config.CORS.AllowedOrigins)

	// cors middleware
	corsConfig := cors.Config{
		AllowOrigins:  a.config.CORS.AllowedOrigins,
		AllowMethods:  a.config.CORS.AllowedMethods,
		AllowHeaders:  a.config.CORS.AllowedHeaders,
		ExposeHeaders: []string{ctl.RemainingHeader, mdw.RequestIDHeader},
		MaxAge:        12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			for _, allowedOrigin := range a.config.CORS.AllowedOrigins {
				if origin == allowedOrigin {
					return true
				}
			}
			return false
		},
	}
	handler.Use(a.middleware.RequestID())
	handler.Use(cors.New(corsConfig))
	handler.Use(a.middleware.RequestLogger())
	handler.Use(gin.Recovery())

	// create JWT middleware
	jwtManager := auth.NewJWTManager(a.config.Admin.JWTSecret)
	authMiddleware := auth.AuthMiddleware(jwtManager)
	adminMiddleware := auth.RequireRole(auth.RoleAdmin)

	// health check
	handler.GET("/health", a.health)

	// metrics
	handler.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	// public redemption route, the token itself is the credential
	handler.GET(downloadService.DownloadRoute+"/:token", a.middleware.RateLimit(), a.downloadController.Redeem)

	// signed local files, only when objects live on this host
	if a.fileController != nil {
		handler.GET(storage.LocalFilesRoute+"/*path", a.middleware.RateLimit(), a.fileController.ServeFile)
	}

	// api routes
	api := handler.Group("/api/v1")

	// admin-only routes (authentication + admin role required)
	adminRoutes := api.Group("/admin")
	adminRoutes.Use(authMiddleware)
	adminRoutes.Use(adminMiddleware)
	{
		adminRoutes.POST("/links", a.downloadController.CreateLink)
		adminRoutes.GET("/links/:token", a.downloadController.GetLink)
	}

	return handler
}

// health reports store reachability and the active consume mode
func (a *AppServer) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	mode := a.downloadService.ConsumeMode()
	body := gin.H{
		"status":       "healthy",
		"consume_mode": mode,
		"degraded":     mode != string(tokenRepo.ConsumeModeScript),
		"storage":      a.storageProvider.Name(),
	}

	err := a.redis.Ping(ctx)
	if err != nil {
		logger.Error(err, "health check failed")
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	c.JSON(http.StatusOK, body)
}
