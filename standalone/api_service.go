package main

import (
	"context"
	"time"

	"download-gate/pkg/auth"
	"download-gate/pkg/config"
	"download-gate/pkg/logger"
	api "download-gate/service-api"
)

func startAPIService(ctx context.Context, cfg *config.Config) {
	app := api.NewAppServer(cfg)
	app.Run(ctx)
}

// logAdminToken prints a ready-to-use admin bearer token for local testing
func logAdminToken(cfg *config.Config) {
	token, err := auth.NewJWTManager(cfg.Admin.JWTSecret).GenerateToken("standalone-admin", auth.RoleAdmin, 24*time.Hour)
	if err != nil {
		logger.Error(err, "Failed to generate admin token")
		return
	}

	logger.Infof("Admin token (24h): %s", token)
	logger.Infof(`Create a link: curl -X POST -H "Authorization: Bearer <token>" -H "Content-Type: application/json" -d '{"storageReference":"%s"}' %s/api/v1/admin/links`, sampleObject, cfg.Token.PublicBaseURL)
}
