package app

import (
	"context"
	"time"

	httpH "github.com/yungbote/lessongen/internal/http/handlers"
	httpMW "github.com/yungbote/lessongen/internal/http/middleware"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Handlers struct {
	Generation *httpH.GenerationHandler
	Admin      *httpH.AdminHandler
	Health     *httpH.HealthHandler
}

type Middleware struct {
	AdminAuth *httpMW.AdminAuth
}

func wireHandlers(log *logger.Logger, services Services, probes map[string]httpH.Probe) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Generation: httpH.NewGenerationHandler(log, services.Orchestrator),
		Admin:      httpH.NewAdminHandler(log, services.Ledger.Config(), services.Ledger),
		Health:     httpH.NewHealthHandler(probes),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	if cfg.AdminJWTSecret == "" {
		log.Warn("ADMIN_JWT_SECRET not set; admin API disabled")
	}
	return Middleware{AdminAuth: httpMW.NewAdminAuth(log, cfg.AdminJWTSecret)}
}

func (a *App) probes() map[string]httpH.Probe {
	out := map[string]httpH.Probe{
		"db": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Clients.Redis != nil {
		rdb := a.Clients.Redis
		out["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return out
}
