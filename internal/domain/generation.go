package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	KindPlan       = "plan"
	KindLesson     = "lesson"
	KindQuiz       = "quiz"
	KindFlashcards = "flashcards"
)

// GenerationTemplate is the shared, signature-addressed learning plan.
// Rows are write-once: (signature, version) is unique and content never changes.
type GenerationTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Signature string         `gorm:"column:signature;not null;uniqueIndex:idx_generation_template_sig_version,priority:1" json:"signature"`
	Version   int            `gorm:"column:version;not null;uniqueIndex:idx_generation_template_sig_version,priority:2" json:"version"`
	Kind      string         `gorm:"column:kind;not null" json:"kind"`
	Topic     string         `gorm:"column:topic;index" json:"topic"`
	Model     string         `gorm:"column:model" json:"model,omitempty"`
	Content   datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	CreatedBy *uuid.UUID     `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (GenerationTemplate) TableName() string { return "generation_template" }

func (t *GenerationTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// GenerationDayUnit is per-day content shared by every learner on the same template.
type GenerationDayUnit struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID uuid.UUID      `gorm:"type:uuid;column:template_id;not null;uniqueIndex:idx_generation_day_unit_key,priority:1" json:"template_id"`
	DayIndex   int            `gorm:"column:day_index;not null;uniqueIndex:idx_generation_day_unit_key,priority:2" json:"day_index"`
	Kind       string         `gorm:"column:kind;not null;uniqueIndex:idx_generation_day_unit_key,priority:3" json:"kind"`
	Version    int            `gorm:"column:version;not null;uniqueIndex:idx_generation_day_unit_key,priority:4" json:"version"`
	Model      string         `gorm:"column:model" json:"model,omitempty"`
	Content    datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	CreatedBy  *uuid.UUID     `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (GenerationDayUnit) TableName() string { return "generation_day_unit" }

func (u *GenerationDayUnit) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// GenerationUserUnit is the per-user fallback record used when no shared template exists.
type GenerationUserUnit struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_generation_user_unit_key,priority:1" json:"user_id"`
	GoalID    uuid.UUID      `gorm:"type:uuid;column:goal_id;not null;uniqueIndex:idx_generation_user_unit_key,priority:2" json:"goal_id"`
	DayIndex  int            `gorm:"column:day_index;not null;uniqueIndex:idx_generation_user_unit_key,priority:3" json:"day_index"`
	Kind      string         `gorm:"column:kind;not null;uniqueIndex:idx_generation_user_unit_key,priority:4" json:"kind"`
	Model     string         `gorm:"column:model" json:"model,omitempty"`
	Content   datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (GenerationUserUnit) TableName() string { return "generation_user_unit" }

func (u *GenerationUserUnit) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
