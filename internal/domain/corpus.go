package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CorpusChunk is an immutable retrieval unit from a versioned corpus pack.
type CorpusChunk struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	PackID      string         `gorm:"column:pack_id;not null;index" json:"pack_id"`
	PackVersion int            `gorm:"column:pack_version;not null" json:"pack_version"`
	Topic       string         `gorm:"column:topic;not null;index" json:"topic"`
	Subtopic    string         `gorm:"column:subtopic" json:"subtopic"`
	TextSummary string         `gorm:"column:text_summary;not null" json:"text_summary"`
	Tags        datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	SourceRef   string         `gorm:"column:source_ref" json:"source_ref"`
	Embedding   datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"-"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (CorpusChunk) TableName() string { return "corpus_chunk" }

func (c *CorpusChunk) Vector() []float32 {
	if c == nil || len(c.Embedding) == 0 {
		return nil
	}
	var v []float32
	if err := json.Unmarshal(c.Embedding, &v); err != nil {
		return nil
	}
	return v
}

func (c *CorpusChunk) TagList() []string {
	if c == nil || len(c.Tags) == 0 {
		return nil
	}
	var tags []string
	_ = json.Unmarshal(c.Tags, &tags)
	return tags
}
