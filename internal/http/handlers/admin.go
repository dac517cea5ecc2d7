package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/http/response"
	"github.com/yungbote/lessongen/internal/modules/generation/budget"
	"github.com/yungbote/lessongen/internal/modules/generation/content"
	"github.com/yungbote/lessongen/internal/platform/apierr"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type SpendReader interface {
	Spend(ctx context.Context, userID uuid.UUID) (budget.SpendSnapshot, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.GenerationCallRecord, error)
}

type ConfigStore interface {
	Get(ctx context.Context) (budget.AdminConfig, error)
	Update(ctx context.Context, cfg budget.AdminConfig) (budget.AdminConfig, error)
}

type AdminHandler struct {
	log    *logger.Logger
	config ConfigStore
	spend  SpendReader
}

func NewAdminHandler(log *logger.Logger, config ConfigStore, spend SpendReader) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), config: config, spend: spend}
}

// GET /v1/admin/config
func (h *AdminHandler) GetConfig(c *gin.Context) {
	cfg, err := h.config.Get(c.Request.Context())
	if err != nil {
		h.log.Warn("admin config read failed", "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "config_unavailable", err)
		return
	}
	response.RespondOK(c, cfg)
}

// PUT /v1/admin/config replaces the whole config.
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	var cfg budget.AdminConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid json body: %w", err))
		return
	}
	if err := validateAdminConfig(&cfg); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	cfg.UpdatedBy = c.GetString("admin_subject")
	saved, err := h.config.Update(c.Request.Context(), cfg)
	if err != nil {
		h.log.Error("admin config update failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("could not save config"))
		return
	}
	h.log.Info("admin config updated",
		"updated_by", saved.UpdatedBy,
		"daily_user_budget_usd", saved.DailyUserBudgetUSD,
		"daily_global_budget_usd", saved.DailyGlobalBudgetUSD,
		"disabled_endpoints", strings.Join(saved.DisabledEndpoints, ","),
	)
	response.RespondOK(c, saved)
}

func validateAdminConfig(cfg *budget.AdminConfig) error {
	if cfg.DailyUserBudgetUSD < 0 || cfg.DailyGlobalBudgetUSD < 0 {
		return apierr.BadRequest("invalid_request", fmt.Errorf("budgets must not be negative"))
	}
	seen := map[string]bool{}
	kinds := make([]string, 0, len(cfg.DisabledEndpoints))
	for _, k := range cfg.DisabledEndpoints {
		k = strings.ToLower(strings.TrimSpace(k))
		if !content.KnownKind(k) {
			return apierr.BadRequest("invalid_request", fmt.Errorf("unknown endpoint %q", k))
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	cfg.DisabledEndpoints = kinds
	cfg.AlertWebhook = strings.TrimSpace(cfg.AlertWebhook)
	if cfg.AlertWebhook != "" && !strings.HasPrefix(cfg.AlertWebhook, "https://") && !strings.HasPrefix(cfg.AlertWebhook, "http://") {
		return apierr.BadRequest("invalid_request", fmt.Errorf("alert_webhook must be an http(s) url"))
	}
	return nil
}

type spendResponse struct {
	budget.SpendSnapshot
	Records []*types.GenerationCallRecord `json:"records,omitempty"`
}

// GET /v1/spend/:user_id?records=N
func (h *AdminHandler) GetSpend(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("user_id: %w", err))
		return
	}
	snap, err := h.spend.Spend(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("spend read failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("could not read spend"))
		return
	}
	out := spendResponse{SpendSnapshot: snap}
	if n, _ := strconv.Atoi(c.Query("records")); n > 0 {
		if out.Records, err = h.spend.Recent(c.Request.Context(), userID, n); err != nil {
			h.log.Error("call record read failed", "error", err)
			response.RespondError(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("could not read call records"))
			return
		}
	}
	response.RespondOK(c, out)
}
