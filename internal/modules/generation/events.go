package generation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const EventCompleted = "generation.completed"

// Publisher delivers events to downstream consumers (rabbitmq.Publisher).
type Publisher interface {
	Publish(ctx context.Context, eventType string, event any) error
}

type CompletedEvent struct {
	RequestID string     `json:"request_id,omitempty"`
	Kind      string     `json:"kind"`
	Signature string     `json:"signature"`
	DayIndex  int        `json:"day_index,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	GoalID    *uuid.UUID `json:"goal_id,omitempty"`
	Attempts  int        `json:"attempts"`
	CostUSD   float64    `json:"cost_usd"`
	Tier      string     `json:"retrieval_tier,omitempty"`
	At        time.Time  `json:"at"`
}
