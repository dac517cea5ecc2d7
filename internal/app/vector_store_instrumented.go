package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
)

// meteredVectorStore records latency, outcome and a span for every call
// to the configured index.
type meteredVectorStore struct {
	provider string
	inner    pinecone.VectorStore
	metrics  *observability.Metrics
}

func instrumentVectorStore(provider string, inner pinecone.VectorStore) pinecone.VectorStore {
	if inner == nil {
		return nil
	}
	return &meteredVectorStore{provider: provider, inner: inner, metrics: observability.Current()}
}

func (s *meteredVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	return s.track(ctx, "upsert", namespace, len(vectors), func(ctx context.Context) error {
		return s.inner.Upsert(ctx, namespace, vectors)
	})
}

func (s *meteredVectorStore) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]pinecone.VectorMatch, error) {
	var out []pinecone.VectorMatch
	err := s.track(ctx, "query_matches", namespace, topK, func(ctx context.Context) error {
		var err error
		out, err = s.inner.QueryMatches(ctx, namespace, q, topK, filter)
		return err
	})
	return out, err
}

func (s *meteredVectorStore) track(ctx context.Context, op, namespace string, size int, call func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "vector."+op,
		attribute.String("vector.provider", s.provider),
		attribute.String("vector.namespace", namespace),
		attribute.Int("vector.size", size),
	)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	status := vectorOpStatus(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	s.metrics.ObserveVectorStoreOperation(s.provider, op, status, time.Since(start))
	return err
}

func vectorOpStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
