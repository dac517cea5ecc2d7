package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/lessongen/internal/domain"
)

func SeedTemplate(tb testing.TB, ctx context.Context, tx *gorm.DB, signature string, content string) *types.GenerationTemplate {
	tb.Helper()
	row := &types.GenerationTemplate{
		ID:        uuid.New(),
		Signature: signature,
		Version:   1,
		Kind:      types.KindPlan,
		Content:   datatypes.JSON([]byte(content)),
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed template: %v", err)
	}
	return row
}

func SeedCorpusChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, id, topic, summary string, vec []float32) *types.CorpusChunk {
	tb.Helper()
	emb, _ := json.Marshal(vec)
	row := &types.CorpusChunk{
		ID:          id,
		PackID:      "test-pack",
		PackVersion: 1,
		Topic:       topic,
		Subtopic:    "basics",
		TextSummary: summary,
		Tags:        datatypes.JSON([]byte("[]")),
		SourceRef:   "test",
		Embedding:   datatypes.JSON(emb),
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed corpus chunk: %v", err)
	}
	return row
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
