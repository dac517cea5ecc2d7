package app

import (
	apphttp "github.com/yungbote/lessongen/internal/http"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		Metrics:           observability.Current(),
		ServiceName:       cfg.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		AdminAuth:         middleware.AdminAuth,
		GenerationHandler: handlers.Generation,
		AdminHandler:      handlers.Admin,
		HealthHandler:     handlers.Health,
	})
}
