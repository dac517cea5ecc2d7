package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/lessongen/internal/data/repos"
	types "github.com/yungbote/lessongen/internal/domain"
	"github.com/yungbote/lessongen/internal/modules/generation/corpus"
	"github.com/yungbote/lessongen/internal/platform/dbctx"
	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/openai"
)

// Loader supplies the pre-embedded chunks the fallback index is built from.
type Loader interface {
	Load(ctx context.Context) ([]*types.CorpusChunk, error)
}

type LoaderFunc func(ctx context.Context) ([]*types.CorpusChunk, error)

func (f LoaderFunc) Load(ctx context.Context) ([]*types.CorpusChunk, error) { return f(ctx) }

// BuildTimeout bounds the one-time fallback index build.
const BuildTimeout = 2 * time.Minute

// FallbackIndex is an in-process brute-force cosine index. It is built once,
// on first use, and is read-only afterwards. A failed build is not retried.
// The build is detached from the triggering caller's cancellation so one
// abandoned request cannot leave the process without a fallback.
type FallbackIndex struct {
	log          *logger.Logger
	loader       Loader
	buildTimeout time.Duration

	once    sync.Once
	entries []entry
	err     error
}

type entry struct {
	chunk *types.CorpusChunk
	vec   []float32
}

func NewFallbackIndex(log *logger.Logger, loader Loader) *FallbackIndex {
	return &FallbackIndex{log: log.With("service", "FallbackIndex"), loader: loader, buildTimeout: BuildTimeout}
}

// Warm builds the index now instead of on the first Search.
func (f *FallbackIndex) Warm(ctx context.Context) int {
	return f.Size(ctx)
}

func (f *FallbackIndex) build(ctx context.Context) {
	f.once.Do(func() {
		if f.loader == nil {
			f.err = fmt.Errorf("no fallback loader")
			return
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.buildTimeout)
		defer cancel()
		rows, err := f.loader.Load(bctx)
		if err != nil {
			f.err = err
			f.log.Warn("fallback index build failed", "error", err)
			return
		}
		for _, row := range rows {
			if row == nil {
				continue
			}
			vec := row.Vector()
			if len(vec) == 0 {
				continue
			}
			f.entries = append(f.entries, entry{chunk: row, vec: vec})
		}
		f.log.Info("fallback index built", "chunks", len(f.entries))
	})
}

// Size builds the index if needed and reports how many chunks it holds.
func (f *FallbackIndex) Size(ctx context.Context) int {
	f.build(ctx)
	return len(f.entries)
}

// Search returns up to k chunks by descending cosine similarity. Equal scores
// keep load order. topic, when set, must match the chunk topic.
func (f *FallbackIndex) Search(ctx context.Context, q []float32, k int, topic string) ([]ScoredChunk, error) {
	f.build(ctx)
	if f.err != nil {
		return nil, f.err
	}
	if len(q) == 0 || k <= 0 {
		return nil, nil
	}
	topic = strings.ToLower(strings.TrimSpace(topic))
	scored := make([]ScoredChunk, 0, len(f.entries))
	for _, e := range f.entries {
		if topic != "" && !strings.EqualFold(e.chunk.Topic, topic) {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: e.chunk, Score: Cosine(q, e.vec)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Cosine is dot(a,b)/(|a||b|), or 0 when either norm is 0 or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RepoLoader loads every stored chunk with its embedding.
func RepoLoader(chunks repos.CorpusChunkRepo) Loader {
	return LoaderFunc(func(ctx context.Context) ([]*types.CorpusChunk, error) {
		return chunks.ListAll(dbctx.New(ctx))
	})
}

// PackLoader reads YAML packs from disk and embeds their chunks with embed.
func PackLoader(embed openai.Embedder, paths ...string) Loader {
	return LoaderFunc(func(ctx context.Context) ([]*types.CorpusChunk, error) {
		var out []*types.CorpusChunk
		for _, path := range paths {
			p, err := corpus.LoadPackFile(path)
			if err != nil {
				return nil, err
			}
			rows, err := corpus.EmbedPack(ctx, embed, p, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
		return out, nil
	})
}

// FirstNonEmpty returns the result of the first loader that yields chunks.
// Errors from earlier loaders are kept only if every loader comes up empty.
func FirstNonEmpty(loaders ...Loader) Loader {
	return LoaderFunc(func(ctx context.Context) ([]*types.CorpusChunk, error) {
		var firstErr error
		for _, l := range loaders {
			rows, err := l.Load(ctx)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if len(rows) > 0 {
				return rows, nil
			}
		}
		return nil, firstErr
	})
}
