package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyOutput = errors.New("openai: no output_text in response")
	ErrRefused     = errors.New("openai: model refused")
)

type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, body)
}

// IsRetryable classifies provider failures. Timeouts, transport errors, 408,
// 409, 429 and 5xx are retryable; auth and request-shape failures are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrRefused) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyOutput) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch code := httpErr.StatusCode; {
		case code == http.StatusRequestTimeout, code == http.StatusConflict, code == http.StatusTooManyRequests:
			return true
		case code >= 500:
			return true
		default:
			return false
		}
	}
	// Transport failures (resets, EOF, dial errors).
	return true
}

// IsAuthError reports 401/403 responses.
func IsAuthError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
	}
	return false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// RetryAfter returns the server-requested delay carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.RetryAfter
	}
	return 0
}

func isUnsupportedTemperature(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(httpErr.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, marker := range []string{"unsupported", "unknown parameter", "unrecognized", "not supported", "does not support", "only the default"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
