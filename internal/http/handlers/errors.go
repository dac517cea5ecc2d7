package handlers

import (
	"errors"
	"net/http"

	"github.com/yungbote/lessongen/internal/modules/generation"
	"github.com/yungbote/lessongen/internal/platform/apierr"
)

// generationError maps orchestrator failures onto HTTP statuses. Provider
// details stay in the logs; callers only see the kind.
func generationError(err error) *apierr.Error {
	var ge *generation.Error
	if !errors.As(err, &ge) {
		return apierr.From(err)
	}
	switch ge.Kind {
	case generation.ErrKindInvalidRequest:
		return apierr.New(http.StatusBadRequest, string(ge.Kind), ge.Err)
	case generation.ErrKindEndpointDisabled:
		return apierr.New(http.StatusServiceUnavailable, string(ge.Kind), ge.Err)
	case generation.ErrKindBudgetExceeded:
		return apierr.New(http.StatusTooManyRequests, string(ge.Kind), ge.Err)
	default:
		return apierr.New(http.StatusBadGateway, string(generation.ErrKindGeneration), errors.New("content generation failed; try again later"))
	}
}
