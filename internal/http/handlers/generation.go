package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lessongen/internal/http/response"
	"github.com/yungbote/lessongen/internal/modules/generation"
	"github.com/yungbote/lessongen/internal/modules/generation/keys"
	"github.com/yungbote/lessongen/internal/platform/apierr"
	"github.com/yungbote/lessongen/internal/platform/ctxutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

type GenerationHandler struct {
	log *logger.Logger
	gen Generator
}

func NewGenerationHandler(log *logger.Logger, gen Generator) *GenerationHandler {
	return &GenerationHandler{log: log.With("handler", "GenerationHandler"), gen: gen}
}

type generateBody struct {
	Topic         string     `json:"topic"`
	Focus         string     `json:"focus"`
	Level         string     `json:"level"`
	MinutesPerDay int        `json:"minutes_per_day"`
	Locale        string     `json:"locale"`
	UserID        string     `json:"user_id"`
	GoalID        string     `json:"goal_id"`
	GoalCreatedAt *time.Time `json:"goal_created_at"`
	Timezone      string     `json:"timezone"`
	DayIndex      int        `json:"day_index"`
}

// POST /v1/generate/:kind
func (h *GenerationHandler) Generate(c *gin.Context) {
	var body generateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid json body: %w", err))
		return
	}
	userID, err := optionalUUID("user_id", body.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	goalID, err := optionalUUID("goal_id", body.GoalID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if body.DayIndex < 0 || body.MinutesPerDay < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("day_index and minutes_per_day must not be negative"))
		return
	}

	req := generation.Request{
		Kind: c.Param("kind"),
		Params: keys.Params{
			Topic:         body.Topic,
			Focus:         body.Focus,
			Level:         body.Level,
			MinutesPerDay: body.MinutesPerDay,
			Locale:        body.Locale,
		},
		UserID:    userID,
		GoalID:    goalID,
		Timezone:  body.Timezone,
		DayIndex:  body.DayIndex,
		RequestID: ctxutil.RequestID(c.Request.Context()),
	}
	if body.GoalCreatedAt != nil {
		req.GoalCreatedAt = *body.GoalCreatedAt
	}

	res, err := h.gen.Generate(c.Request.Context(), req)
	if err != nil {
		ae := generationError(err)
		if ae.Status >= http.StatusInternalServerError {
			h.log.Error("generation failed", "kind", req.Kind, "request_id", req.RequestID, "error", err)
		}
		_ = c.Error(err)
		response.RespondAPIError(c, ae)
		return
	}
	response.RespondOK(c, res)
}

func optionalUUID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.BadRequest("invalid_request", fmt.Errorf("%s: %w", field, err))
	}
	return id, nil
}
