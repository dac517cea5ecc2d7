package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/lessongen/internal/domain"
	httpH "github.com/yungbote/lessongen/internal/http/handlers"
	httpMW "github.com/yungbote/lessongen/internal/http/middleware"
	"github.com/yungbote/lessongen/internal/modules/generation"
	"github.com/yungbote/lessongen/internal/modules/generation/budget"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type echoGenerator struct{ requestID string }

func (g *echoGenerator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	g.requestID = req.RequestID
	return &generation.Result{Kind: req.Kind, Content: json.RawMessage(`{}`)}, nil
}

type staticConfig struct{}

func (staticConfig) Get(ctx context.Context) (budget.AdminConfig, error) {
	return budget.AdminConfig{DailyGlobalBudgetUSD: 10}, nil
}
func (staticConfig) Update(ctx context.Context, cfg budget.AdminConfig) (budget.AdminConfig, error) {
	return cfg, nil
}

type zeroSpend struct{}

func (zeroSpend) Spend(ctx context.Context, userID uuid.UUID) (budget.SpendSnapshot, error) {
	return budget.SpendSnapshot{}, nil
}
func (zeroSpend) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.GenerationCallRecord, error) {
	return nil, nil
}

func TestRouterWiring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	auth := httpMW.NewAdminAuth(log, "s3cret")
	gen := &echoGenerator{}
	r := NewRouter(RouterConfig{
		Log:               log,
		AdminAuth:         auth,
		GenerationHandler: httpH.NewGenerationHandler(log, gen),
		AdminHandler:      httpH.NewAdminHandler(log, staticConfig{}, zeroSpend{}),
		HealthHandler:     httpH.NewHealthHandler(map[string]httpH.Probe{"db": func(context.Context) error { return nil }}),
	})

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(nethttp.MethodGet, "/healthcheck", "", ""); rec.Code != nethttp.StatusOK {
		t.Fatalf("healthcheck: %d", rec.Code)
	}
	if rec := do(nethttp.MethodGet, "/readyz", "", ""); rec.Code != nethttp.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}

	rec := do(nethttp.MethodPost, "/v1/generate/plan", `{"topic":"go"}`, "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("generate: %d %s", rec.Code, rec.Body.String())
	}
	reqID := rec.Header().Get("X-Request-Id")
	if len(reqID) != 26 || gen.requestID != reqID {
		t.Fatalf("request id: header=%q seen=%q", reqID, gen.requestID)
	}

	if rec := do(nethttp.MethodGet, "/v1/admin/config", "", ""); rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("admin without token: %d", rec.Code)
	}
	tok, err := auth.IssueToken("ops", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if rec := do(nethttp.MethodGet, "/v1/admin/config", "", tok); rec.Code != nethttp.StatusOK {
		t.Fatalf("admin with token: %d", rec.Code)
	}
	if rec := do(nethttp.MethodGet, "/v1/spend/"+uuid.NewString(), "", tok); rec.Code != nethttp.StatusOK {
		t.Fatalf("spend: %d", rec.Code)
	}
}

func TestReadyReportsFailingProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Probe{
			"redis": func(context.Context) error { return context.DeadlineExceeded },
		}),
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/readyz", nil))
	if rec.Code != nethttp.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body.String())
	}
}
