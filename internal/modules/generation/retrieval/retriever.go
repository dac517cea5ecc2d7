package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/modules/generation/corpus"
	"github.com/yungbote/lessongen/internal/observability"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/openai"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
)

type Tier string

const (
	TierIndexed  Tier = "indexed"
	TierFallback Tier = "fallback"
	TierEmpty    Tier = "empty"
)

// EmptyContext is the prompt context used when no grounding was found.
const EmptyContext = "No reference material is available for this topic. Rely on well-established, widely taught fundamentals."

const (
	DefaultK = 6
	MaxK     = 20
)

type Query struct {
	Text  string
	K     int
	Topic string
}

type ScoredChunk struct {
	Chunk *types.CorpusChunk
	Score float64
}

type Result struct {
	Chunks  []ScoredChunk
	Context string
	Tier    Tier
}

// Service never fails: every error degrades to the next tier.
type Service interface {
	Retrieve(ctx context.Context, q Query) Result
}

type Retriever struct {
	log      *logger.Logger
	embed    openai.Embedder
	store    pinecone.VectorStore
	chunks   repos.CorpusChunkRepo
	fallback *FallbackIndex
}

// NewRetriever wires the tiers. store and chunks may be nil to skip the
// indexed tier; fallback may be nil to skip the in-memory tier.
func NewRetriever(log *logger.Logger, embed openai.Embedder, store pinecone.VectorStore, chunks repos.CorpusChunkRepo, fallback *FallbackIndex) *Retriever {
	return &Retriever{
		log:      log.With("service", "ContextRetriever"),
		embed:    embed,
		store:    store,
		chunks:   chunks,
		fallback: fallback,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, q Query) Result {
	ctx, span := observability.StartSpan(ctx, "retrieval.retrieve",
		attribute.String("topic", q.Topic),
	)
	defer span.End()

	k := q.K
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	topic := strings.ToLower(strings.TrimSpace(q.Topic))

	vec, embedErr := r.embedQuery(ctx, q.Text)

	if vec != nil && r.store != nil && r.chunks != nil {
		chunks, err := r.indexed(ctx, vec, k, topic)
		if err != nil {
			r.log.Warn("indexed retrieval failed; falling back", "error", err)
		} else if len(chunks) > 0 {
			return r.result(span, chunks, TierIndexed)
		}
	}

	if r.fallback != nil {
		if vec == nil {
			// one more try; the first embed may have been a transient failure
			vec, embedErr = r.embedQuery(ctx, q.Text)
		}
		if vec != nil {
			chunks, err := r.fallback.Search(ctx, vec, k, topic)
			if err != nil {
				r.log.Warn("fallback retrieval failed", "error", err)
			} else if len(chunks) > 0 {
				return r.result(span, chunks, TierFallback)
			}
		} else if embedErr != nil {
			r.log.Warn("query embedding failed; using empty context", "error", embedErr)
		}
	}
	return r.result(span, nil, TierEmpty)
}

func (r *Retriever) result(span trace.Span, chunks []ScoredChunk, tier Tier) Result {
	observability.Current().IncRetrievalTier(string(tier))
	span.SetAttributes(attribute.String("tier", string(tier)), attribute.Int("chunks", len(chunks)))
	return Result{Chunks: chunks, Context: FormatContext(chunks), Tier: tier}
}

func (r *Retriever) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if r.embed == nil || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	embs, err := r.embed.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embs) != 1 || len(embs[0]) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	return embs[0], nil
}

func (r *Retriever) indexed(ctx context.Context, vec []float32, k int, topic string) ([]ScoredChunk, error) {
	var filter map[string]any
	if topic != "" {
		filter = map[string]any{"topic": topic}
	}
	matches, err := r.store.QueryMatches(ctx, corpus.Namespace, vec, k, filter)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		scores[m.ID] = m.Score
	}
	rows, err := r.chunks.GetByIDs(dbctx.New(ctx), ids)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredChunk, 0, len(rows))
	for _, row := range rows {
		out = append(out, ScoredChunk{Chunk: row, Score: scores[row.ID]})
	}
	return out, nil
}

// FormatContext renders chunks as numbered reference lines, or EmptyContext.
func FormatContext(chunks []ScoredChunk) string {
	if len(chunks) == 0 {
		return EmptyContext
	}
	var b strings.Builder
	for i, sc := range chunks {
		c := sc.Chunk
		if c == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, c.Topic)
		if s := strings.TrimSpace(c.Subtopic); s != "" {
			b.WriteString(" › " + s)
		}
		b.WriteString(": " + strings.TrimSpace(c.TextSummary))
		if src := strings.TrimSpace(c.SourceRef); src != "" {
			b.WriteString(" (" + src + ")")
		}
	}
	return b.String()
}
