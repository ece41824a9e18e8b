package helper

import (
	"download-gate/pkg/config"
	"download-gate/service-api/internal/app"
)

// NewAppServer exposes the API server to other binaries in this module
func NewAppServer(
	cfg *config.Config,
) *app.AppServer {
	return app.NewAppServer(cfg)
}
