package app

import (
	"fmt"

	"github.com/yungbote/lessongen/internal/modules/generation"
	"github.com/yungbote/lessongen/internal/modules/generation/budget"
	"github.com/yungbote/lessongen/internal/modules/generation/cache"
	"github.com/yungbote/lessongen/internal/modules/generation/corpus"
	"github.com/yungbote/lessongen/internal/modules/generation/retrieval"
	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/redisdb"
)

type Services struct {
	AdminConfig  *budget.AdminConfigSource
	Alerter      *budget.Alerter
	Ledger       *budget.Ledger
	Estimator    *budget.Estimator
	Cache        *cache.Store
	Fallback     *retrieval.FallbackIndex
	Retriever    *retrieval.Retriever
	Ingester     *corpus.Ingester
	Orchestrator *generation.Orchestrator
}

func wireServices(log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	// Budget
	adminCfg := budget.NewAdminConfigSource(log, r.AdminConfig, cfg.BudgetDefaults, cfg.AdminConfigTTL)
	var counter budget.SpendCounter = budget.RepoCounter(r.SpendRollup)
	if c.Redis != nil {
		counter = redisdb.NewSpendCounter(c.Redis, log, c.RedisPrefix)
	}
	alerter := budget.NewAlerter(log, nil)
	ledger := budget.NewLedger(log, adminCfg, counter, r.CallRecord, alerter)
	estimator := budget.NewEstimator(log, cfg.ModelRates)

	// Retrieval
	loader := retrieval.RepoLoader(r.CorpusChunk)
	if len(cfg.FallbackPacks) > 0 {
		loader = retrieval.FirstNonEmpty(loader, retrieval.PackLoader(c.LLM, cfg.FallbackPacks...))
	}
	fallback := retrieval.NewFallbackIndex(log, loader)
	retriever := retrieval.NewRetriever(log, c.LLM, c.Vector, r.CorpusChunk, fallback)
	ingester := corpus.NewIngester(log, c.LLM, r.CorpusChunk, c.Vector, corpus.IngesterConfig{})

	// Generation
	store := cache.New(log, r.Template, r.DayUnit, r.UserUnit)
	deps := generation.Deps{
		Cache:     store,
		Ledger:    ledger,
		Estimator: estimator,
		Retriever: retriever,
		LLM:       c.LLM,
	}
	if c.Publisher != nil {
		deps.Publisher = c.Publisher
	}
	orch, err := generation.New(log, deps, cfg.Generation)
	if err != nil {
		return Services{}, fmt.Errorf("init orchestrator: %w", err)
	}

	return Services{
		AdminConfig:  adminCfg,
		Alerter:      alerter,
		Ledger:       ledger,
		Estimator:    estimator,
		Cache:        store,
		Fallback:     fallback,
		Retriever:    retriever,
		Ingester:     ingester,
		Orchestrator: orch,
	}, nil
}
