package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/lessongen/internal/platform/envutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	generations       *CounterVec
	generationLatency *HistogramVec
	attempts          *CounterVec
	cacheLookups      *CounterVec
	cacheRaces        *CounterVec
	costTotal         *CounterVec
	budgetRejections  *CounterVec
	retrievalTiers    *CounterVec
	eventsPublished   *CounterVec
	vectorOps         *CounterVec
	vectorLatency     *HistogramVec

	dbStats   *GaugeVec
	redisUp   *GaugeVec
	redisPing *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process metrics, or nil when metrics are disabled.
// Every method is nil-safe.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("lg_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"lg_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		apiInflight: NewGaugeVec("lg_api_inflight_requests", "In-flight API requests.", nil),
		llmRequests: NewCounterVec("lg_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"lg_llm_request_duration_seconds",
			"LLM request latency in seconds by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		llmTokens:   NewCounterVec("lg_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),
		generations: NewCounterVec("lg_generations_total", "Generation requests by kind/outcome.", []string{"kind", "outcome"}),
		generationLatency: NewHistogramVec(
			"lg_generation_duration_seconds",
			"End-to-end generation latency by kind/outcome.",
			[]string{"kind", "outcome"},
			[]float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 240},
		),
		attempts:         NewCounterVec("lg_generation_attempts_total", "Model attempts by kind/status.", []string{"kind", "status"}),
		cacheLookups:     NewCounterVec("lg_cache_lookups_total", "Content cache lookups by layer/result.", []string{"layer", "result"}),
		cacheRaces:       NewCounterVec("lg_cache_insert_races_total", "Inserts that lost the race and returned the canonical row.", []string{"layer"}),
		costTotal:        NewCounterVec("lg_cost_usd_total", "Estimated model spend in USD by kind/model.", []string{"kind", "model"}),
		budgetRejections: NewCounterVec("lg_budget_rejections_total", "Requests rejected before a model call, by reason.", []string{"reason"}),
		retrievalTiers:   NewCounterVec("lg_retrieval_tier_total", "Retrieval results by serving tier.", []string{"tier"}),
		eventsPublished:  NewCounterVec("lg_events_published_total", "Generation events by publish status.", []string{"status"}),
		vectorOps:        NewCounterVec("lg_vector_store_operations_total", "Vector store calls by provider/operation/status.", []string{"provider", "operation", "status"}),
		vectorLatency: NewHistogramVec(
			"lg_vector_store_operation_duration_seconds",
			"Vector store call latency by provider/operation.",
			[]string{"provider", "operation"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		dbStats:          NewGaugeVec("lg_db_pool", "Database pool statistics.", []string{"stat"}),
		redisUp:          NewGaugeVec("lg_redis_up", "Redis reachability (1 up, 0 down).", nil),
		redisPing:        NewGaugeVec("lg_redis_ping_seconds", "Redis ping latency.", nil),
	}
}

func (m *Metrics) collectors() []collector {
	return []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.generations, m.generationLatency, m.attempts,
		m.cacheLookups, m.cacheRaces, m.costTotal,
		m.budgetRejections, m.retrievalTiers, m.eventsPublished,
		m.vectorOps, m.vectorLatency,
		m.dbStats, m.redisUp, m.redisPing,
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method, route, status = orUnknown(method), orUnknown(route), orUnknown(status)
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model, endpoint, status = orUnknown(model), orUnknown(endpoint), orUnknown(status)
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveGeneration records one Generate call. outcome is one of
// cache_hit, generated, rejected, failed.
func (m *Metrics) ObserveGeneration(kind, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	kind, outcome = orUnknown(kind), orUnknown(outcome)
	m.generations.Inc(kind, outcome)
	m.generationLatency.Observe(dur.Seconds(), kind, outcome)
}

func (m *Metrics) IncAttempt(kind, status string) {
	if m == nil {
		return
	}
	m.attempts.Inc(orUnknown(kind), orUnknown(status))
}

func (m *Metrics) ObserveCacheLookup(layer string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(orUnknown(layer), result)
}

func (m *Metrics) IncCacheRace(layer string) {
	if m == nil {
		return
	}
	m.cacheRaces.Inc(orUnknown(layer))
}

func (m *Metrics) AddCost(kind, model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.costTotal.Add(usd, orUnknown(kind), orUnknown(model))
}

func (m *Metrics) IncBudgetRejection(reason string) {
	if m == nil {
		return
	}
	m.budgetRejections.Inc(orUnknown(reason))
}

func (m *Metrics) IncRetrievalTier(tier string) {
	if m == nil {
		return
	}
	m.retrievalTiers.Inc(orUnknown(tier))
}

func (m *Metrics) IncEventPublished(status string) {
	if m == nil {
		return
	}
	m.eventsPublished.Inc(orUnknown(status))
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	provider, operation = orUnknown(provider), orUnknown(operation)
	m.vectorOps.Inc(provider, operation, orUnknown(status))
	m.vectorLatency.Observe(dur.Seconds(), provider, operation)
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The caller owns rdb.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *goredis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
