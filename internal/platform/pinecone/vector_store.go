package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

// VectorStore is the provider-neutral corpus index contract. Qdrant
// implements it too.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns ids with similarity scores, best first.
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error)
}

type VectorMatch struct {
	ID    string
	Score float64
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexHost string
	nsPrefix  string
}

// NewVectorStore resolves the index host (via describe_index when
// cfg.IndexHost is empty) and returns a namespaced store.
func NewVectorStore(ctx context.Context, log *logger.Logger, pc Client, cfg Config) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	host := strings.TrimSpace(cfg.IndexHost)
	if host == "" {
		name := strings.TrimSpace(cfg.IndexName)
		if name == "" {
			return nil, fmt.Errorf("missing PINECONE_INDEX_NAME or PINECONE_INDEX_HOST")
		}
		desc, err := pc.DescribeIndex(ctx, name)
		if err != nil {
			return nil, err
		}
		host = desc.Host
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index", "index_name", name, "index_host", host)
	}
	prefix := strings.TrimSpace(cfg.NamespacePrefix)
	if prefix == "" {
		prefix = "lg"
	}
	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexHost: host,
		nsPrefix:  prefix,
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	ns := s.qualifyNamespace(namespace)
	const batch = 100
	for start := 0; start < len(vectors); start += batch {
		end := min(start+batch, len(vectors))
		if _, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{Namespace: ns, Vectors: vectors[start:end]}); err != nil {
			return fmt.Errorf("pinecone upsert [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]VectorMatch, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace: s.qualifyNamespace(namespace),
		Vector:    q,
		TopK:      topK,
		Filter:    toPineconeFilter(filter),
	})
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, VectorMatch{ID: m.ID, Score: m.Score})
	}
	return out, nil
}

// toPineconeFilter rewrites plain equality maps ({"topic":"go"}) into
// Pinecone's operator form; maps that already use operators pass through.
func toPineconeFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			out[k] = v
			continue
		}
		if _, isOp := v.(map[string]any); isOp {
			out[k] = v
			continue
		}
		out[k] = map[string]any{"$eq": v}
	}
	return out
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}
