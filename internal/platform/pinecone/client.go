package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/lessongen/internal/platform/ctxutil"
	"github.com/yungbote/lessongen/internal/platform/envutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

// Client is the subset of the Pinecone REST API the corpus index uses.
type Client interface {
	DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error)
	UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error)
	Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error)
}

type Config struct {
	APIKey          string
	APIVersion      string
	BaseURL         string
	IndexName       string
	IndexHost       string
	NamespacePrefix string
	Timeout         time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:          envutil.String("PINECONE_API_KEY", ""),
		APIVersion:      envutil.String("PINECONE_API_VERSION", "2025-10"),
		BaseURL:         envutil.String("PINECONE_BASE_URL", "https://api.pinecone.io"),
		IndexName:       envutil.String("PINECONE_INDEX_NAME", ""),
		IndexHost:       envutil.String("PINECONE_INDEX_HOST", ""),
		NamespacePrefix: envutil.String("PINECONE_NAMESPACE_PREFIX", "lg"),
		Timeout:         envutil.Duration("PINECONE_TIMEOUT_SECONDS", 30*time.Second),
	}
}

type client struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-10"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:  log.With("client", "PineconeClient"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

func (c *client) DescribeIndex(ctx context.Context, indexName string) (*IndexDescription, error) {
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, fmt.Errorf("indexName required")
	}
	out, err := doJSON[IndexDescription](c, ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+"/indexes/"+indexName, nil)
	if err != nil {
		return nil, fmt.Errorf("pinecone describe_index: %w", err)
	}
	if strings.TrimSpace(out.Host) == "" {
		return nil, fmt.Errorf("pinecone describe_index returned empty host")
	}
	return out, nil
}

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type UpsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

func (c *client) UpsertVectors(ctx context.Context, host string, req UpsertRequest) (*UpsertResponse, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("host required")
	}
	if len(req.Vectors) == 0 {
		return &UpsertResponse{}, nil
	}
	return doJSON[UpsertResponse](c, ctx, http.MethodPost, dataPlaneURL(host, "/vectors/upsert"), req)
}

type QueryRequest struct {
	Namespace       string         `json:"namespace,omitempty"`
	Vector          []float32      `json:"vector,omitempty"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata,omitempty"`
}

type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Matches []QueryMatch `json:"matches"`
}

func (c *client) Query(ctx context.Context, host string, req QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("host required")
	}
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}
	return doJSON[QueryResponse](c, ctx, http.MethodPost, dataPlaneURL(host, "/query"), req)
}

// dataPlaneURL accepts a bare index host (as returned by describe_index) or
// a full base URL.
func dataPlaneURL(host, path string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host + path
}

func doJSON[T any](c *client, ctx context.Context, method, url string, body any) (*T, error) {
	var rdr io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
		rdr = &buf
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, url, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", c.cfg.APIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, truncate(raw, 512))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode error: %w", err)
	}
	return &out, nil
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
