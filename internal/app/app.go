package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/lessongen/internal/data/db"
	apphttp "github.com/yungbote/lessongen/internal/http"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/envutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	server       *apphttp.Server
	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig()
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	observability.Init(log)

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	theDB := dbs.DB()

	reposet := wireRepos(theDB, log)

	clientset, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(log, cfg, reposet, clientset)
	if err != nil {
		clientset.Close()
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}

	handlerset := wireHandlers(log, serviceset, a.probes())
	middleware := wireMiddleware(log, cfg)
	a.server = wireServer(log, cfg, handlerset, middleware)
	a.Router = a.server.Engine
	return a, nil
}

// Start launches background collectors. Safe to call once.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if fb := a.Services.Fallback; fb != nil {
		go func() {
			a.Log.Info("fallback index warmed", "chunks", fb.Warm(ctx))
		}()
	}

	if m := observability.Current(); m != nil {
		m.StartDBCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			m.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	if addr == "" {
		addr = a.Cfg.Addr
	}
	return a.server.Run(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Alerter != nil {
		a.Services.Alerter.Wait()
	}
	a.Clients.Close()
	var errs []error
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(context.Background()))
	}
	if a.dbService != nil {
		errs = append(errs, a.dbService.Close())
	}
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("shutdown incomplete", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
