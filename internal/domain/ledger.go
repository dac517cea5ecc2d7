package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenerationCallRecord is one row per model-call attempt. Append-only.
type GenerationCallRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           *uuid.UUID `gorm:"type:uuid;column:user_id;index" json:"user_id,omitempty"`
	GoalID           *uuid.UUID `gorm:"type:uuid;column:goal_id;index" json:"goal_id,omitempty"`
	RequestID        string     `gorm:"column:request_id;index" json:"request_id,omitempty"`
	EndpointKind     string     `gorm:"column:endpoint_kind;not null;index" json:"endpoint_kind"`
	Signature        string     `gorm:"column:signature;index" json:"signature,omitempty"`
	Model            string     `gorm:"column:model;not null" json:"model"`
	Attempt          int        `gorm:"column:attempt;not null" json:"attempt"`
	PromptTokens     int        `gorm:"column:prompt_tokens;not null" json:"prompt_tokens"`
	CompletionTokens int        `gorm:"column:completion_tokens;not null" json:"completion_tokens"`
	CostUSD          float64    `gorm:"column:cost_usd;not null" json:"cost_usd"`
	LatencyMS        int64      `gorm:"column:latency_ms;not null" json:"latency_ms"`
	Success          bool       `gorm:"column:success;not null;index" json:"success"`
	ErrorDetail      string     `gorm:"column:error_detail" json:"error_detail,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;index" json:"created_at"`
}

func (GenerationCallRecord) TableName() string { return "generation_call_record" }

func (r *GenerationCallRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

const ScopeGlobal = "global"

// UserScope is the rollup scope key for a single learner.
func UserScope(userID uuid.UUID) string { return "user:" + userID.String() }

// GenerationSpendRollup is the running spend per scope per UTC day.
type GenerationSpendRollup struct {
	Scope     string    `gorm:"column:scope;primaryKey" json:"scope"`
	Day       string    `gorm:"column:day;primaryKey" json:"day"`
	SpentUSD  float64   `gorm:"column:spent_usd;not null" json:"spent_usd"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (GenerationSpendRollup) TableName() string { return "generation_spend_rollup" }

const AdminConfigID = 1

// GenerationAdminConfig is the singleton runtime control row.
type GenerationAdminConfig struct {
	ID                   int            `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	DailyUserBudgetUSD   float64        `gorm:"column:daily_user_budget_usd;not null" json:"daily_user_budget_usd"`
	DailyGlobalBudgetUSD float64        `gorm:"column:daily_global_budget_usd;not null" json:"daily_global_budget_usd"`
	DisabledEndpoints    datatypes.JSON `gorm:"column:disabled_endpoints;type:jsonb" json:"disabled_endpoints"`
	AlertWebhook         string         `gorm:"column:alert_webhook" json:"alert_webhook,omitempty"`
	UpdatedBy            string         `gorm:"column:updated_by" json:"updated_by,omitempty"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}

func (GenerationAdminConfig) TableName() string { return "generation_admin_config" }

// Disabled decodes the disabled-endpoint set, lower-cased.
func (c *GenerationAdminConfig) Disabled() []string {
	if c == nil || len(c.DisabledEndpoints) == 0 {
		return nil
	}
	var raw []string
	if err := json.Unmarshal(c.DisabledEndpoints, &raw); err != nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *GenerationAdminConfig) SetDisabled(kinds []string) {
	if kinds == nil {
		kinds = []string{}
	}
	b, _ := json.Marshal(kinds)
	c.DisabledEndpoints = datatypes.JSON(b)
}
