package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/openai"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
)

// Namespace is the vector-store namespace holding corpus chunks.
const Namespace = "corpus"

type IngesterConfig struct {
	BatchSize   int
	Concurrency int
}

// Ingester embeds pack chunks and persists them to the chunk table and, when
// configured, the vector store.
type Ingester struct {
	log    *logger.Logger
	embed  openai.Embedder
	chunks repos.CorpusChunkRepo
	store  pinecone.VectorStore
	cfg    IngesterConfig
}

func NewIngester(log *logger.Logger, embed openai.Embedder, chunks repos.CorpusChunkRepo, store pinecone.VectorStore, cfg IngesterConfig) *Ingester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Ingester{
		log:    log.With("service", "CorpusIngester"),
		embed:  embed,
		chunks: chunks,
		store:  store,
		cfg:    cfg,
	}
}

type IngestResult struct {
	PackID   string
	Chunks   int
	Inserted int64
	Indexed  int
}

func (in *Ingester) IngestPack(ctx context.Context, p *Pack) (*IngestResult, error) {
	if p == nil {
		return nil, fmt.Errorf("pack required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	rows, vectors, err := embedPack(ctx, in.embed, p, in.cfg.BatchSize, in.cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	points := make([]pinecone.Vector, 0, len(rows))
	for i, row := range rows {
		points = append(points, pinecone.Vector{
			ID:     row.ID,
			Values: vectors[i],
			Metadata: map[string]any{
				"topic":    row.Topic,
				"subtopic": row.Subtopic,
				"pack_id":  row.PackID,
			},
		})
	}

	inserted, err := in.chunks.UpsertMany(dbctx.New(ctx), rows)
	if err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	out := &IngestResult{PackID: p.ID, Chunks: len(rows), Inserted: inserted}
	if in.store != nil {
		if err := in.store.Upsert(ctx, Namespace, points); err != nil {
			return out, fmt.Errorf("index chunks: %w", err)
		}
		out.Indexed = len(points)
	}
	in.log.Info("corpus pack ingested",
		"pack_id", p.ID,
		"version", p.Version,
		"chunks", out.Chunks,
		"inserted", out.Inserted,
		"indexed", out.Indexed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// EmbedPack embeds every chunk of p and returns rows ready to store, with
// embeddings set.
func EmbedPack(ctx context.Context, embed openai.Embedder, p *Pack, batchSize int) ([]*types.CorpusChunk, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, _, err := embedPack(ctx, embed, p, batchSize, 4)
	return rows, err
}

func embedPack(ctx context.Context, embed openai.Embedder, p *Pack, batchSize, concurrency int) ([]*types.CorpusChunk, [][]float32, error) {
	if batchSize <= 0 {
		batchSize = 64
	}
	vectors := make([][]float32, len(p.Chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for lo := 0; lo < len(p.Chunks); lo += batchSize {
		lo := lo
		hi := min(lo+batchSize, len(p.Chunks))
		g.Go(func() error {
			texts := make([]string, 0, hi-lo)
			for _, c := range p.Chunks[lo:hi] {
				texts = append(texts, c.EmbeddingText())
			}
			embs, err := embed.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks [%d:%d]: %w", lo, hi, err)
			}
			if len(embs) != len(texts) {
				return fmt.Errorf("embed chunks [%d:%d]: got %d vectors", lo, hi, len(embs))
			}
			copy(vectors[lo:hi], embs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	rows := make([]*types.CorpusChunk, 0, len(p.Chunks))
	for i, c := range p.Chunks {
		tags, _ := json.Marshal(nonNil(c.Tags))
		emb, _ := json.Marshal(vectors[i])
		rows = append(rows, &types.CorpusChunk{
			ID:          c.ID,
			PackID:      p.ID,
			PackVersion: p.Version,
			Topic:       c.Topic,
			Subtopic:    c.Subtopic,
			TextSummary: c.Summary,
			Tags:        datatypes.JSON(tags),
			SourceRef:   c.Source,
			Embedding:   datatypes.JSON(emb),
		})
	}
	return rows, vectors, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
