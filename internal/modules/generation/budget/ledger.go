package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/modules/generation/keys"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

// Ledger gates generation on spend and records every model-call attempt.
// The gate is advisory: rollups only move after a call completes, so
// concurrent requests near a cap can overshoot it.
type Ledger struct {
	log     *logger.Logger
	config  *AdminConfigSource
	counter SpendCounter
	records repos.CallRecordRepo
	alerter *Alerter
	now     func() time.Time
}

func NewLedger(log *logger.Logger, config *AdminConfigSource, counter SpendCounter, records repos.CallRecordRepo, alerter *Alerter) *Ledger {
	return &Ledger{
		log:     log.With("service", "BudgetLedger"),
		config:  config,
		counter: counter,
		records: records,
		alerter: alerter,
		now:     time.Now,
	}
}

// CheckBudgetOrFail runs the gate in order: endpoint kill switch, per-user
// cap, global cap. userID may be uuid.Nil for anonymous callers, which skips
// the per-user check.
func (l *Ledger) CheckBudgetOrFail(ctx context.Context, userID uuid.UUID, kind string) error {
	cfg, err := l.config.Get(ctx)
	if err != nil {
		l.log.Warn("admin config unavailable; using defaults", "error", err)
	}
	if cfg.Disabled(kind) {
		observability.Current().IncBudgetRejection("endpoint_disabled")
		return fmt.Errorf("%w: %s", ErrEndpointDisabled, strings.ToLower(kind))
	}
	day := keys.RollupDay(l.now())

	if userID != uuid.Nil && cfg.DailyUserBudgetUSD > 0 {
		scope := types.UserScope(userID)
		spent, err := l.counter.Get(ctx, scope, day)
		if err != nil {
			return fmt.Errorf("read user spend: %w", err)
		}
		if spent >= cfg.DailyUserBudgetUSD {
			observability.Current().IncBudgetRejection("user_budget")
			l.alerter.Notify(cfg.AlertWebhook, Alert{Event: "user_budget_exceeded", Scope: scope, Day: day, SpentUSD: spent, CapUSD: cfg.DailyUserBudgetUSD})
			return fmt.Errorf("%w: spent %.4f of %.4f", ErrUserBudgetExceeded, spent, cfg.DailyUserBudgetUSD)
		}
	}

	if cfg.DailyGlobalBudgetUSD > 0 {
		spent, err := l.counter.Get(ctx, types.ScopeGlobal, day)
		if err != nil {
			return fmt.Errorf("read global spend: %w", err)
		}
		if spent >= cfg.DailyGlobalBudgetUSD {
			observability.Current().IncBudgetRejection("global_budget")
			l.alerter.Notify(cfg.AlertWebhook, Alert{Event: "global_budget_exceeded", Scope: types.ScopeGlobal, Day: day, SpentUSD: spent, CapUSD: cfg.DailyGlobalBudgetUSD})
			return fmt.Errorf("%w: spent %.4f of %.4f", ErrGlobalBudgetExceeded, spent, cfg.DailyGlobalBudgetUSD)
		}
	}
	return nil
}

// Record appends rec and, for a successful billable call, adds its cost to
// the user and global rollups for the record's UTC day.
func (l *Ledger) Record(ctx context.Context, rec *types.GenerationCallRecord) error {
	if rec == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now().UTC()
	}
	if _, err := l.records.Create(dbctx.New(ctx), []*types.GenerationCallRecord{rec}); err != nil {
		return fmt.Errorf("append call record: %w", err)
	}
	if !rec.Success || rec.CostUSD <= 0 {
		return nil
	}
	observability.Current().AddCost(rec.EndpointKind, rec.Model, rec.CostUSD)
	day := keys.RollupDay(rec.CreatedAt)
	if rec.UserID != nil && *rec.UserID != uuid.Nil {
		if _, err := l.counter.Increment(ctx, types.UserScope(*rec.UserID), day, rec.CostUSD); err != nil {
			return fmt.Errorf("increment user rollup: %w", err)
		}
	}
	if _, err := l.counter.Increment(ctx, types.ScopeGlobal, day, rec.CostUSD); err != nil {
		return fmt.Errorf("increment global rollup: %w", err)
	}
	return nil
}

type SpendSnapshot struct {
	Day          string  `json:"day"`
	UserSpentUSD float64 `json:"user_spent_usd"`
	UserCapUSD   float64 `json:"user_cap_usd"`
	GlobalSpent  float64 `json:"global_spent_usd"`
	GlobalCapUSD float64 `json:"global_cap_usd"`
}

// Spend reports today's rollups for userID alongside the configured caps.
func (l *Ledger) Spend(ctx context.Context, userID uuid.UUID) (SpendSnapshot, error) {
	cfg, _ := l.config.Get(ctx)
	day := keys.RollupDay(l.now())
	out := SpendSnapshot{Day: day, UserCapUSD: cfg.DailyUserBudgetUSD, GlobalCapUSD: cfg.DailyGlobalBudgetUSD}
	var err error
	if userID != uuid.Nil {
		if out.UserSpentUSD, err = l.counter.Get(ctx, types.UserScope(userID), day); err != nil {
			return out, err
		}
	}
	if out.GlobalSpent, err = l.counter.Get(ctx, types.ScopeGlobal, day); err != nil {
		return out, err
	}
	return out, nil
}

// Recent lists userID's call records from the last 24 hours, newest first.
func (l *Ledger) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.GenerationCallRecord, error) {
	return l.records.ListByUser(dbctx.New(ctx), userID, l.now().Add(-24*time.Hour), limit)
}

// Config exposes the admin config source for the HTTP layer.
func (l *Ledger) Config() *AdminConfigSource { return l.config }
