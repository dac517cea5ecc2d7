package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/lessongen/internal/data/db"
	"github.com/yungbote/lessongen/internal/modules/generation"
	"github.com/yungbote/lessongen/internal/modules/generation/budget"
	"github.com/yungbote/lessongen/internal/modules/generation/content"
	"github.com/yungbote/lessongen/internal/platform/envutil"
)

const (
	LLMProviderOpenAI = "openai"
	LLMProviderMock   = "mock"

	VectorProviderNone     = "none"
	VectorProviderPinecone = "pinecone"
	VectorProviderQdrant   = "qdrant"

	RollupBackendDB    = "db"
	RollupBackendRedis = "redis"
)

type Config struct {
	LogMode     string
	Addr        string
	ServiceName string
	Environment string
	CORSOrigins []string

	DB db.Config

	LLMProvider    string
	VectorProvider string
	RollupBackend  string
	// EventsEnabled publishes generation.completed to RabbitMQ.
	EventsEnabled bool

	AdminJWTSecret string
	AdminConfigTTL time.Duration
	BudgetDefaults budget.AdminConfig
	ModelRates     map[string]budget.Rate

	Generation generation.Config
	// FallbackPacks are corpus pack files embedded into the in-memory
	// fallback index when the database holds no chunks.
	FallbackPacks []string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		Addr:        envutil.String("HTTP_ADDR", ":8080"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "lessongen"),
		Environment: envutil.String("APP_ENV", "dev"),
		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		DB: db.Config{
			Driver:        envutil.String("DB_DRIVER", db.DriverPostgres),
			DSN:           envutil.String("DB_DSN", ""),
			SlowThreshold: envutil.Duration("DB_SLOW_THRESHOLD", time.Second),
			MaxOpenConns:  envutil.Int("DB_MAX_OPEN_CONNS", 20),
		},
		LLMProvider:    strings.ToLower(envutil.String("LLM_PROVIDER", LLMProviderOpenAI)),
		VectorProvider: strings.ToLower(envutil.String("VECTOR_PROVIDER", VectorProviderNone)),
		RollupBackend:  strings.ToLower(envutil.String("ROLLUP_BACKEND", RollupBackendDB)),
		EventsEnabled:  envutil.String("RABBITMQ_URL", "") != "",
		AdminJWTSecret: envutil.String("ADMIN_JWT_SECRET", ""),
		AdminConfigTTL: envutil.Duration("ADMIN_CONFIG_TTL", 30*time.Second),
		BudgetDefaults: budget.AdminConfig{
			DailyUserBudgetUSD:   envutil.Float("DAILY_USER_BUDGET_USD", 1),
			DailyGlobalBudgetUSD: envutil.Float("DAILY_GLOBAL_BUDGET_USD", 100),
			DisabledEndpoints:    envutil.List("DISABLED_ENDPOINTS", nil),
			AlertWebhook:         envutil.String("BUDGET_ALERT_WEBHOOK", ""),
		},
		Generation:    generation.ConfigFromEnv(),
		FallbackPacks: envutil.List("CORPUS_FALLBACK_PACKS", nil),
	}

	rates, err := budget.ParseRates(envutil.String("MODEL_RATES", ""))
	if err != nil {
		return cfg, fmt.Errorf("MODEL_RATES: %w", err)
	}
	cfg.ModelRates = rates

	switch cfg.LLMProvider {
	case LLMProviderOpenAI, LLMProviderMock:
	default:
		return cfg, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	switch cfg.VectorProvider {
	case VectorProviderNone, VectorProviderPinecone, VectorProviderQdrant:
	default:
		return cfg, fmt.Errorf("unsupported VECTOR_PROVIDER %q", cfg.VectorProvider)
	}
	switch cfg.RollupBackend {
	case RollupBackendDB, RollupBackendRedis:
	default:
		return cfg, fmt.Errorf("unsupported ROLLUP_BACKEND %q", cfg.RollupBackend)
	}
	if cfg.BudgetDefaults.DailyUserBudgetUSD < 0 || cfg.BudgetDefaults.DailyGlobalBudgetUSD < 0 {
		return cfg, fmt.Errorf("budget defaults must not be negative")
	}
	for _, k := range cfg.BudgetDefaults.DisabledEndpoints {
		if !content.KnownKind(strings.ToLower(k)) {
			return cfg, fmt.Errorf("DISABLED_ENDPOINTS: unknown endpoint %q", k)
		}
	}
	if cfg.Generation.Retry.MaxAttempts < 1 {
		return cfg, fmt.Errorf("GEN_MAX_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}
