package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lessongen/internal/http/handlers"
	httpMW "github.com/yungbote/lessongen/internal/http/middleware"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AdminAuth *httpMW.AdminAuth

	GenerationHandler *httpH.GenerationHandler
	AdminHandler      *httpH.AdminHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	v1 := r.Group("/v1")
	{
		if cfg.GenerationHandler != nil {
			v1.POST("/generate/:kind", cfg.GenerationHandler.Generate)
		}
	}

	admin := v1.Group("/")
	{
		if cfg.AdminAuth != nil {
			admin.Use(cfg.AdminAuth.RequireAdmin())
		}
		if cfg.AdminHandler != nil {
			admin.GET("/admin/config", cfg.AdminHandler.GetConfig)
			admin.PUT("/admin/config", cfg.AdminHandler.UpdateConfig)
			admin.GET("/spend/:user_id", cfg.AdminHandler.GetSpend)
		}
	}

	return r
}
