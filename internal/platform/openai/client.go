package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/envutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	// EmbedMaxRetries bounds embedding retries. Completions are single-shot;
	// the caller owns their retry policy.
	EmbedMaxRetries int
	Temperature     *float64
}

func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:          envutil.String("OPENAI_API_KEY", ""),
		BaseURL:         strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		Model:           envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		EmbedModel:      envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		Timeout:         envutil.Duration("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		EmbedMaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 3),
	}
	switch v := strings.ToLower(envutil.String("OPENAI_TEMPERATURE", "0.2")); v {
	case "off", "none", "false":
	default:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = &f
		}
	}
	return cfg
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	embedModel  string
	httpClient  *http.Client
	maxRetries  int
	temperature *float64

	// Models that rejected the temperature parameter; omitted thereafter.
	noTemp sync.Map
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.EmbedMaxRetries < 0 {
		cfg.EmbedMaxRetries = 0
	}
	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		embedModel:  cfg.EmbedModel,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.EmbedMaxRetries,
		temperature: cfg.Temperature,
	}, nil
}

func (c *client) DefaultModel() string { return c.model }

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), RetryAfter: parseRetryAfter(resp)}
	}
	return resp, raw, nil
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}
	req := embeddingsRequest{Model: c.embedModel, Input: clean}

	op := func() ([][]float32, error) {
		start := time.Now()
		resp, raw, err := c.doOnce(ctx, http.MethodPost, "/v1/embeddings", req)
		if err != nil {
			observability.Current().ObserveLLMRequest(c.embedModel, "/v1/embeddings", statusFromRespErr(resp, err), time.Since(start), 0, 0)
			if !IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		var decoded embeddingsResponse
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("openai decode embeddings: %w", err))
		}
		observability.Current().ObserveLLMRequest(c.embedModel, "/v1/embeddings", strconv.Itoa(resp.StatusCode), time.Since(start), decoded.Usage.PromptTokens, 0)
		out, ok := orderEmbeddings(decoded, len(clean))
		if !ok {
			return nil, fmt.Errorf("openai embeddings missing indices: requested=%d returned=%d model=%s", len(clean), len(decoded.Data), c.embedModel)
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.log.Warn("OpenAI embeddings retrying", "sleep", d.String(), "error", err.Error(), "inputs", len(clean))
		}),
	)
}

// orderEmbeddings places vectors by their reported index, falling back to
// response order when indices are absent.
func orderEmbeddings(resp embeddingsResponse, n int) ([][]float32, bool) {
	out := make([][]float32, n)
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < n {
			out[d.Index] = toFloat32(d.Embedding)
		}
	}
	if hasMissing(out) && len(resp.Data) == n {
		for i := range out {
			if out[i] == nil {
				out[i] = toFloat32(resp.Data[i].Embedding)
			}
		}
	}
	return out, !hasMissing(out)
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}

func hasMissing(v [][]float32) bool {
	for i := range v {
		if len(v[i]) == 0 {
			return true
		}
	}
	return false
}

// -------------------- Responses API --------------------

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
	Text  *struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
	Usage   struct {
		InputTokens      int `json:"input_tokens"`
		OutputTokens     int `json:"output_tokens"`
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func extractOutputText(resp responsesResponse) (string, string) {
	var out strings.Builder
	refusal := resp.Refusal
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				if refusal == "" {
					refusal = c.Refusal
				}
			}
		}
	}
	return out.String(), refusal
}

// Complete issues exactly one upstream generation (plus at most one
// temperature-less resend when the model rejects the parameter).
func (c *client) Complete(ctx context.Context, in CompletionRequest) (Completion, error) {
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = c.model
	}
	req := responsesRequest{Model: model, Temperature: in.Temperature}
	if req.Temperature == nil {
		req.Temperature = c.temperature
	}
	if _, skip := c.noTemp.Load(strings.ToLower(model)); skip {
		req.Temperature = nil
	}
	for _, m := range in.Messages {
		req.Input = append(req.Input, responsesInput{Role: m.Role, Content: m.Content})
	}
	if in.Schema != nil && strings.TrimSpace(in.SchemaName) != "" {
		req.Text = &struct {
			Format map[string]any `json:"format,omitempty"`
		}{Format: map[string]any{
			"type":   "json_schema",
			"name":   in.SchemaName,
			"schema": in.Schema,
			"strict": true,
		}}
	}

	start := time.Now()
	resp, raw, err := c.doOnce(ctx, http.MethodPost, "/v1/responses", &req)
	if err != nil && req.Temperature != nil && isUnsupportedTemperature(err) {
		c.noTemp.Store(strings.ToLower(model), struct{}{})
		c.log.Warn("model rejected temperature; resending without it", "model", model)
		req.Temperature = nil
		resp, raw, err = c.doOnce(ctx, http.MethodPost, "/v1/responses", &req)
	}
	if err != nil {
		observability.Current().ObserveLLMRequest(model, "/v1/responses", statusFromRespErr(resp, err), time.Since(start), 0, 0)
		return Completion{Model: model}, err
	}

	var decoded responsesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Completion{Model: model}, fmt.Errorf("openai decode response: %w", err)
	}
	out := Completion{Model: model}
	if strings.TrimSpace(decoded.Model) != "" {
		out.Model = decoded.Model
	}
	out.PromptTokens, out.CompletionTokens = decoded.Usage.InputTokens, decoded.Usage.OutputTokens
	if out.PromptTokens == 0 && out.CompletionTokens == 0 {
		out.PromptTokens, out.CompletionTokens = decoded.Usage.PromptTokens, decoded.Usage.CompletionTokens
	}
	observability.Current().ObserveLLMRequest(model, "/v1/responses", strconv.Itoa(resp.StatusCode), time.Since(start), out.PromptTokens, out.CompletionTokens)

	text, refusal := extractOutputText(decoded)
	if refusal != "" {
		return out, fmt.Errorf("%w: %s", ErrRefused, refusal)
	}
	if strings.TrimSpace(text) == "" {
		return out, ErrEmptyOutput
	}
	out.Text = text
	return out, nil
}

func statusFromRespErr(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
