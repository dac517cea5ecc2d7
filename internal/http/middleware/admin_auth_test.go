package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

func adminRouter(a *AdminAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(a.RequireAdmin())
	r.GET("/v1/admin/config", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("admin_subject"))
	})
	return r
}

func doGet(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/config", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	a := NewAdminAuth(logger.NewNop(), "s3cret")
	r := adminRouter(a)

	tok, err := a.IssueToken("ops@example.com", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	rec := doGet(r, "Bearer "+tok)
	if rec.Code != http.StatusOK || rec.Body.String() != "ops@example.com" {
		t.Fatalf("valid token: %d %q", rec.Code, rec.Body.String())
	}

	if rec := doGet(r, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rec.Code)
	}

	other := NewAdminAuth(logger.NewNop(), "different")
	forged, _ := other.IssueToken("ops@example.com", time.Minute)
	if rec := doGet(r, "Bearer "+forged); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", rec.Code)
	}

	expired, _ := a.IssueToken("ops@example.com", -time.Minute)
	if rec := doGet(r, "Bearer "+expired); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: %d", rec.Code)
	}

	learner := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role:             "learner",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	})
	signed, _ := learner.SignedString([]byte("s3cret"))
	if rec := doGet(r, "Bearer "+signed); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin role: %d", rec.Code)
	}
}

func TestRequireAdminUnconfigured(t *testing.T) {
	r := adminRouter(NewAdminAuth(logger.NewNop(), ""))
	if rec := doGet(r, "Bearer anything"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured: %d", rec.Code)
	}
}
