package budget

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lessongen/internal/data/repos"
	"github.com/yungbote/lessongen/internal/data/repos/testutil"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEstimatorCost(t *testing.T) {
	e := NewEstimator(logger.NewNop(), nil)
	if got := e.Cost("gpt-4o-mini", 1000, 1000); !approx(got, 0.00075) {
		t.Fatalf("gpt-4o-mini: got %v", got)
	}
	if got := e.Cost("gpt-4o-mini-2024-07-18", 2000, 0); !approx(got, 0.0003) {
		t.Fatalf("dated variant should match prefix: got %v", got)
	}
	if got := e.Cost("mock-1", 5000, 5000); got != 0 {
		t.Fatalf("mock model should be free: got %v", got)
	}
	if got := e.Cost("gpt-4o-mini", -5, 0); got != 0 {
		t.Fatalf("negative tokens: got %v", got)
	}
}

func TestEstimatorUnknownModelUsesHighestRate(t *testing.T) {
	e := NewEstimator(logger.NewNop(), map[string]Rate{"house-model": {Input: 0.05, Output: 0.1}})
	rate, known := e.RateFor("mystery-9000")
	if known {
		t.Fatalf("mystery model should not be known")
	}
	if rate.Input != 0.05 || rate.Output != 0.1 {
		t.Fatalf("want highest rate, got %+v", rate)
	}
	if got := e.Cost("mystery-9000", 1000, 1000); !approx(got, 0.15) {
		t.Fatalf("unknown cost: got %v", got)
	}
}

func TestParseRates(t *testing.T) {
	got, err := ParseRates(" gpt-x=0.5:1.5 , , local=0:0")
	if err != nil {
		t.Fatalf("ParseRates: %v", err)
	}
	if got["gpt-x"].Output != 1.5 || len(got) != 2 {
		t.Fatalf("unexpected: %#v", got)
	}
	for _, bad := range []string{"nope", "m=1", "m=a:1", "m=1:-2"} {
		if _, err := ParseRates(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

type countingConfigRepo struct {
	repos.AdminConfigRepo
	gets atomic.Int32
	fail atomic.Bool
}

func (c *countingConfigRepo) Get(dbc dbctx.Context) (*types.GenerationAdminConfig, error) {
	c.gets.Add(1)
	if c.fail.Load() {
		return nil, errors.New("db down")
	}
	time.Sleep(5 * time.Millisecond)
	return c.AdminConfigRepo.Get(dbc)
}

func TestAdminConfigSourceCachesAndCollapses(t *testing.T) {
	db := testutil.DB(t)
	repo := &countingConfigRepo{AdminConfigRepo: repos.NewAdminConfigRepo(db, testutil.Logger(t))}
	defaults := AdminConfig{DailyUserBudgetUSD: 1, DailyGlobalBudgetUSD: 100}
	src := NewAdminConfigSource(logger.NewNop(), repo, defaults, time.Minute)
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return clock }

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := src.Get(context.Background())
			if err != nil || cfg.DailyUserBudgetUSD != 1 {
				t.Errorf("Get: %+v err=%v", cfg, err)
			}
		}()
	}
	wg.Wait()
	if n := repo.gets.Load(); n < 1 || n > 2 {
		t.Fatalf("expected collapsed loads, got %d", n)
	}

	before := repo.gets.Load()
	_, _ = src.Get(context.Background())
	if repo.gets.Load() != before {
		t.Fatalf("fresh cache should not reload")
	}

	updated, err := src.Update(context.Background(), AdminConfig{DailyUserBudgetUSD: 2, DisabledEndpoints: []string{" Quiz "}, UpdatedBy: "ops"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Disabled("quiz") {
		t.Fatalf("quiz should be disabled: %+v", updated)
	}

	clock = clock.Add(2 * time.Minute)
	repo.fail.Store(true)
	stale, err := src.Get(context.Background())
	if err != nil || stale.DailyUserBudgetUSD != 2 {
		t.Fatalf("stale value should be served on refresh failure: %+v err=%v", stale, err)
	}
}

func TestAdminConfigSourceDefaultsOnColdFailure(t *testing.T) {
	repo := &countingConfigRepo{}
	repo.fail.Store(true)
	src := NewAdminConfigSource(logger.NewNop(), repo, AdminConfig{DailyGlobalBudgetUSD: 9}, 0)
	cfg, err := src.Get(context.Background())
	if err == nil || cfg.DailyGlobalBudgetUSD != 9 {
		t.Fatalf("want defaults with error, got %+v err=%v", cfg, err)
	}
}

type ledgerFixture struct {
	ledger  *Ledger
	config  *AdminConfigSource
	records repos.CallRecordRepo
	counter SpendCounter
}

func newLedger(t *testing.T, cfg AdminConfig, alerter *Alerter) ledgerFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	src := NewAdminConfigSource(log, repos.NewAdminConfigRepo(db, log), AdminConfig{}, time.Millisecond)
	if _, err := src.Update(context.Background(), cfg); err != nil {
		t.Fatalf("seed admin config: %v", err)
	}
	records := repos.NewCallRecordRepo(db, log)
	counter := RepoCounter(repos.NewSpendRollupRepo(db, log))
	return ledgerFixture{
		ledger:  NewLedger(log, src, counter, records, alerter),
		config:  src,
		records: records,
		counter: counter,
	}
}

func TestLedgerRecordIncrementsRollups(t *testing.T) {
	f := newLedger(t, AdminConfig{}, nil)
	ctx := context.Background()
	user := uuid.New()

	ok := &types.GenerationCallRecord{UserID: testutil.PtrUUID(user), EndpointKind: "quiz", Model: "gpt-4o-mini", Attempt: 1, CostUSD: 0.25, Success: true}
	failed := &types.GenerationCallRecord{UserID: testutil.PtrUUID(user), EndpointKind: "quiz", Model: "gpt-4o-mini", Attempt: 2, CostUSD: 0, Success: false, ErrorDetail: "timeout"}
	for _, rec := range []*types.GenerationCallRecord{failed, ok} {
		if err := f.ledger.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	snap, err := f.ledger.Spend(ctx, user)
	if err != nil {
		t.Fatalf("Spend: %v", err)
	}
	if !approx(snap.UserSpentUSD, 0.25) || !approx(snap.GlobalSpent, 0.25) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	rows, _ := f.records.ListByUser(dbctx.New(ctx), user, time.Time{}, 10)
	if len(rows) != 2 {
		t.Fatalf("want 2 call records, got %d", len(rows))
	}
}

func TestLedgerBudgetGateOrder(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	f := newLedger(t, AdminConfig{DailyUserBudgetUSD: 1, DailyGlobalBudgetUSD: 10}, nil)
	if err := f.ledger.CheckBudgetOrFail(ctx, user, "lesson"); err != nil {
		t.Fatalf("fresh user should pass: %v", err)
	}
	_ = f.ledger.Record(ctx, &types.GenerationCallRecord{UserID: testutil.PtrUUID(user), EndpointKind: "lesson", Model: "m", CostUSD: 1, Success: true})
	if err := f.ledger.CheckBudgetOrFail(ctx, user, "lesson"); !errors.Is(err, ErrUserBudgetExceeded) {
		t.Fatalf("want user budget exceeded, got %v", err)
	}
	if err := f.ledger.CheckBudgetOrFail(ctx, uuid.New(), "lesson"); err != nil {
		t.Fatalf("other user should pass: %v", err)
	}

	_ = f.ledger.Record(ctx, &types.GenerationCallRecord{EndpointKind: "plan", Model: "m", CostUSD: 9, Success: true})
	if err := f.ledger.CheckBudgetOrFail(ctx, uuid.New(), "lesson"); !errors.Is(err, ErrGlobalBudgetExceeded) {
		t.Fatalf("want global budget exceeded, got %v", err)
	}
	if err := f.ledger.CheckBudgetOrFail(ctx, user, "lesson"); !errors.Is(err, ErrUserBudgetExceeded) {
		t.Fatalf("user cap is checked before global: %v", err)
	}
}

func TestLedgerCircuitBreaker(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, AdminConfig{DisabledEndpoints: []string{"quiz"}}, nil)
	if err := f.ledger.CheckBudgetOrFail(ctx, uuid.New(), "quiz"); !errors.Is(err, ErrEndpointDisabled) {
		t.Fatalf("want endpoint disabled, got %v", err)
	}
	if err := f.ledger.CheckBudgetOrFail(ctx, uuid.New(), "lesson"); err != nil {
		t.Fatalf("lesson should pass: %v", err)
	}
	if _, err := f.config.Update(ctx, AdminConfig{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := f.ledger.CheckBudgetOrFail(ctx, uuid.New(), "quiz"); err != nil {
		t.Fatalf("quiz re-enabled: %v", err)
	}
}

func TestLedgerAlertsOncePerScopeDay(t *testing.T) {
	var hits atomic.Int32
	var last Alert
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(raw, &last)
		mu.Unlock()
	}))
	defer srv.Close()

	alerter := NewAlerter(logger.NewNop(), srv.Client())
	f := newLedger(t, AdminConfig{DailyGlobalBudgetUSD: 0.5, AlertWebhook: srv.URL}, alerter)
	ctx := context.Background()
	_ = f.ledger.Record(ctx, &types.GenerationCallRecord{EndpointKind: "plan", Model: "m", CostUSD: 1, Success: true})

	for i := 0; i < 3; i++ {
		if err := f.ledger.CheckBudgetOrFail(ctx, uuid.Nil, "plan"); !errors.Is(err, ErrGlobalBudgetExceeded) {
			t.Fatalf("want global exceeded, got %v", err)
		}
	}
	alerter.Wait()
	if hits.Load() != 1 {
		t.Fatalf("want 1 alert, got %d", hits.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if last.Scope != types.ScopeGlobal || last.Event != "global_budget_exceeded" || last.CapUSD != 0.5 {
		t.Fatalf("unexpected alert: %+v", last)
	}
}

func TestAlerterForgetsPreviousDays(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	a := NewAlerter(logger.NewNop(), srv.Client())
	for i := 0; i < 50; i++ {
		a.Notify(srv.URL, Alert{Event: "user_budget_exceeded", Scope: uuid.NewString(), Day: "2026-10-17"})
	}
	a.Notify(srv.URL, Alert{Event: "global_budget_exceeded", Scope: types.ScopeGlobal, Day: "2026-10-18"})
	a.Notify(srv.URL, Alert{Event: "global_budget_exceeded", Scope: types.ScopeGlobal, Day: "2026-10-18"})
	a.Notify(srv.URL, Alert{Event: "user_budget_exceeded", Scope: "late", Day: "2026-10-17"})
	a.Wait()

	if hits.Load() != 51 {
		t.Fatalf("want 51 alerts, got %d", hits.Load())
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.day != "2026-10-18" || len(a.sent) != 1 {
		t.Fatalf("previous day retained: day=%s entries=%d", a.day, len(a.sent))
	}
}
