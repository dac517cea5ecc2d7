package budget

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

// AdminConfig is the runtime control surface for generation spend.
// Budgets ≤ 0 mean "no cap".
type AdminConfig struct {
	DailyUserBudgetUSD   float64   `json:"daily_user_budget_usd"`
	DailyGlobalBudgetUSD float64   `json:"daily_global_budget_usd"`
	DisabledEndpoints    []string  `json:"disabled_endpoints"`
	AlertWebhook         string    `json:"alert_webhook,omitempty"`
	UpdatedBy            string    `json:"updated_by,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (c AdminConfig) Disabled(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for _, k := range c.DisabledEndpoints {
		if strings.EqualFold(strings.TrimSpace(k), kind) {
			return true
		}
	}
	return false
}

func fromRow(row *types.GenerationAdminConfig) AdminConfig {
	return AdminConfig{
		DailyUserBudgetUSD:   row.DailyUserBudgetUSD,
		DailyGlobalBudgetUSD: row.DailyGlobalBudgetUSD,
		DisabledEndpoints:    row.Disabled(),
		AlertWebhook:         row.AlertWebhook,
		UpdatedBy:            row.UpdatedBy,
		UpdatedAt:            row.UpdatedAt,
	}
}

// AdminConfigSource serves the singleton admin config from a short-lived
// cache. Concurrent refreshes share one load.
type AdminConfigSource struct {
	log      *logger.Logger
	repo     repos.AdminConfigRepo
	defaults AdminConfig
	ttl      time.Duration
	now      func() time.Time

	sf       singleflight.Group
	mu       sync.RWMutex
	cached   AdminConfig
	loadedAt time.Time
	loaded   bool
}

func NewAdminConfigSource(log *logger.Logger, repo repos.AdminConfigRepo, defaults AdminConfig, ttl time.Duration) *AdminConfigSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AdminConfigSource{
		log:      log.With("service", "AdminConfigSource"),
		repo:     repo,
		defaults: defaults,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the current config. When a refresh fails the last good value
// is served; with nothing cached the defaults are returned with the error.
func (s *AdminConfigSource) Get(ctx context.Context) (AdminConfig, error) {
	s.mu.RLock()
	if s.loaded && s.now().Sub(s.loadedAt) < s.ttl {
		cfg := s.cached
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sf.Do("admin_config", func() (any, error) {
		row, err := s.repo.Get(dbctx.New(ctx))
		if err != nil {
			return nil, err
		}
		cfg := s.defaults
		if row != nil {
			cfg = fromRow(row)
		}
		s.store(cfg)
		return cfg, nil
	})
	if err != nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.loaded {
			s.log.Warn("admin config refresh failed; serving stale value", "error", err)
			return s.cached, nil
		}
		return s.defaults, err
	}
	return v.(AdminConfig), nil
}

// Update persists cfg and replaces the cached value.
func (s *AdminConfigSource) Update(ctx context.Context, cfg AdminConfig) (AdminConfig, error) {
	row := &types.GenerationAdminConfig{
		DailyUserBudgetUSD:   cfg.DailyUserBudgetUSD,
		DailyGlobalBudgetUSD: cfg.DailyGlobalBudgetUSD,
		AlertWebhook:         strings.TrimSpace(cfg.AlertWebhook),
		UpdatedBy:            cfg.UpdatedBy,
	}
	disabled := make([]string, 0, len(cfg.DisabledEndpoints))
	for _, k := range cfg.DisabledEndpoints {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			disabled = append(disabled, k)
		}
	}
	row.SetDisabled(disabled)
	if err := s.repo.Save(dbctx.New(ctx), row); err != nil {
		return AdminConfig{}, err
	}
	out := fromRow(row)
	s.store(out)
	s.log.Info("admin config updated",
		"updated_by", out.UpdatedBy,
		"daily_user_budget_usd", out.DailyUserBudgetUSD,
		"daily_global_budget_usd", out.DailyGlobalBudgetUSD,
		"disabled_endpoints", out.DisabledEndpoints,
	)
	return out, nil
}

func (s *AdminConfigSource) store(cfg AdminConfig) {
	s.mu.Lock()
	s.cached = cfg
	s.loadedAt = s.now()
	s.loaded = true
	s.mu.Unlock()
}
