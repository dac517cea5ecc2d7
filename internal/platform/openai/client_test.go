package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	temp := 0.2
	c, err := NewClient(logger.NewNop(), Config{
		APIKey:          "sk-test",
		BaseURL:         srv.URL,
		Model:           "gpt-4o-mini",
		EmbedModel:      "text-embedding-3-small",
		Timeout:         5 * time.Second,
		EmbedMaxRetries: 2,
		Temperature:     &temp,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

const okResponse = `{
  "model": "gpt-4o-mini-2024-07-18",
  "output": [{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"a\":1}"}]}],
  "usage": {"input_tokens": 120, "output_tokens": 30}
}`

func TestCompleteSendsMessagesAndReadsUsage(t *testing.T) {
	var got responsesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header: %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = io.WriteString(w, okResponse)
	})
	out, err := c.Complete(context.Background(), CompletionRequest{
		Messages:   []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "hi"}},
		SchemaName: "x",
		Schema:     map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Text != `{"a":1}` || out.PromptTokens != 120 || out.CompletionTokens != 30 {
		t.Fatalf("unexpected completion: %#v", out)
	}
	if out.Model != "gpt-4o-mini-2024-07-18" {
		t.Fatalf("model: %s", out.Model)
	}
	if got.Model != "gpt-4o-mini" || len(got.Input) != 2 || got.Text == nil || got.Temperature == nil {
		t.Fatalf("unexpected request: %#v", got)
	}
}

func TestCompleteDoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503 HTTPError, got %v", err)
	}
	if !IsRetryable(err) || RetryAfter(err) != 3*time.Second {
		t.Fatalf("503 should be retryable with Retry-After=3s, got retryable=%v after=%v", IsRetryable(err), RetryAfter(err))
	}
	if calls.Load() != 1 {
		t.Fatalf("Complete must be single-shot, calls=%d", calls.Load())
	}
}

func TestCompleteDropsRejectedTemperature(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var req responsesRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		if req.Temperature != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`)
			return
		}
		if n == 1 {
			t.Errorf("first call should carry temperature")
		}
		_, _ = io.WriteString(w, okResponse)
	})
	req := CompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}}
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := c.Complete(context.Background(), req); err != nil {
		t.Fatalf("Complete (learned): %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("want 3 upstream calls (reject, resend, learned), got %d", calls.Load())
	}
}

func TestCompleteRefusalIsNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output":[{"type":"message","role":"assistant","content":[{"type":"refusal","refusal":"no"}]}]}`)
	})
	_, err := c.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if !errors.Is(err, ErrRefused) || IsRetryable(err) {
		t.Fatalf("want non-retryable ErrRefused, got %v", err)
	}
}

func TestEmbedOrdersByIndexAndStopsOnAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`)
	})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("order not respected: %#v", vecs)
	}

	var calls atomic.Int32
	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := bad.Embed(context.Background(), []string{"a"}); !IsAuthError(err) {
		t.Fatalf("want auth error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth errors must not be retried, calls=%d", calls.Load())
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&HTTPError{StatusCode: 429}, true},
		{&HTTPError{StatusCode: 500}, true},
		{&HTTPError{StatusCode: 400}, false},
		{&HTTPError{StatusCode: 401}, false},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{ErrEmptyOutput, true},
		{errors.New("connection reset by peer"), true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("IsRetryable(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}
