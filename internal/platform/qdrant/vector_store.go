package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
)

const (
	payloadNamespaceKey = "_lg_namespace"
	payloadVectorIDKey  = "_lg_vector_id"
	upsertBatchSize     = 128
)

type vectorStore struct {
	log        *logger.Logger
	http       *http.Client
	baseURL    string
	collection string
	nsPrefix   string
	vectorDim  int
}

// NewVectorStore validates cfg, checks the collection (creating it when a
// vector dimension is configured and it does not exist yet) and returns a
// store that satisfies pinecone.VectorStore.
func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config, hc *http.Client) (pinecone.VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	prefix := strings.TrimSpace(cfg.NamespacePrefix)
	if prefix == "" {
		prefix = "lg"
	}
	s := &vectorStore{
		log:        log.With("service", "QdrantVectorStore"),
		http:       hc,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		nsPrefix:   prefix,
		vectorDim:  cfg.VectorDim,
	}
	if err := s.verifyReady(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *vectorStore) verifyReady(ctx context.Context) error {
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	status, err := s.do(ctx, "describe_collection", http.MethodGet, s.collectionPath(""), nil, &info)
	if status == http.StatusNotFound && s.vectorDim > 0 {
		body := map[string]any{"vectors": map[string]any{"size": s.vectorDim, "distance": "Cosine"}}
		if _, err := s.do(ctx, "create_collection", http.MethodPut, s.collectionPath(""), body, nil); err != nil {
			return err
		}
		s.log.Info("qdrant collection created", "collection", s.collection, "dim", s.vectorDim)
		return nil
	}
	if err != nil {
		return err
	}
	if got := info.Config.Params.Vectors.Size; s.vectorDim > 0 && got > 0 && got != s.vectorDim {
		return opErr("describe_collection", OperationErrorValidation,
			fmt.Sprintf("collection %s has dim %d, configured %d", s.collection, got, s.vectorDim), nil)
	}
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	ns := s.qualifyNamespace(namespace)
	points := make([]point, 0, len(vectors))
	for _, v := range vectors {
		if strings.TrimSpace(v.ID) == "" {
			return opErr("upsert", OperationErrorValidation, "vector id required", nil)
		}
		if s.vectorDim > 0 && len(v.Values) != s.vectorDim {
			return opErr("upsert", OperationErrorValidation,
				fmt.Sprintf("vector %s has dim %d, want %d", v.ID, len(v.Values), s.vectorDim), nil)
		}
		payload := make(map[string]any, len(v.Metadata)+2)
		for k, val := range v.Metadata {
			payload[k] = val
		}
		payload[payloadNamespaceKey] = ns
		payload[payloadVectorIDKey] = v.ID
		points = append(points, point{ID: pointID(ns, v.ID), Vector: v.Values, Payload: payload})
	}
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		body := map[string]any{"points": points[start:end]}
		if _, err := s.do(ctx, "upsert", http.MethodPut, s.collectionPath("/points?wait=true"), body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(q) == 0 {
		return nil, opErr("query", OperationErrorValidation, "query vector required", nil)
	}
	must, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}
	must = append([]any{matchCondition(payloadNamespaceKey, s.qualifyNamespace(namespace))}, must...)
	body := map[string]any{
		"vector":       q,
		"limit":        topK,
		"with_payload": []string{payloadVectorIDKey},
		"filter":       map[string]any{"must": must},
	}
	var hits []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	}
	if _, err := s.do(ctx, "query", http.MethodPost, s.collectionPath("/points/search"), body, &hits); err != nil {
		return nil, err
	}
	out := make([]pinecone.VectorMatch, 0, len(hits))
	for _, h := range hits {
		id, _ := h.Payload[payloadVectorIDKey].(string)
		if strings.TrimSpace(id) == "" {
			continue
		}
		out = append(out, pinecone.VectorMatch{ID: id, Score: h.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// pointID maps (namespace, id) to a stable UUID since Qdrant only accepts
// UUIDs or unsigned integers as point ids.
func pointID(namespace, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(namespace+"\x00"+id)).String()
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}

func (s *vectorStore) collectionPath(suffix string) string {
	return s.baseURL + "/collections/" + url.PathEscape(s.collection) + suffix
}

// do performs one call and decodes the "result" field of the Qdrant envelope
// into out (when non-nil). The HTTP status is returned even on error.
func (s *vectorStore) do(ctx context.Context, op, method, endpoint string, body any, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, opErr(op, OperationErrorValidation, "encode request", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return 0, opErr(op, OperationErrorValidation, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return 0, classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Status any             `json:"status"`
	}
	_ = json.Unmarshal(raw, &envelope)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return resp.StatusCode, &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return resp.StatusCode, opErr(op, OperationErrorDecodeFailed, "decode result", err)
		}
	}
	return resp.StatusCode, nil
}
