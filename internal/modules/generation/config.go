package generation

import (
	"time"

	"github.com/yungbote/lessongen/internal/modules/generation/content"
	"github.com/yungbote/lessongen/internal/platform/envutil"
)

type RetryPolicy struct {
	// MaxAttempts counts the first try.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

type Config struct {
	Model       string
	Temperature *float64
	Retry       RetryPolicy
	Timeouts    map[string]time.Duration
	RetrievalK  int
	// TopicFilter restricts retrieval to corpus chunks of the request topic.
	TopicFilter bool
}

func DefaultTimeouts() map[string]time.Duration {
	return map[string]time.Duration{
		content.KindPlan:       120 * time.Second,
		content.KindLesson:     60 * time.Second,
		content.KindQuiz:       45 * time.Second,
		content.KindFlashcards: 45 * time.Second,
	}
}

func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts: 2,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    8 * time.Second,
			Jitter:      250 * time.Millisecond,
		},
		Timeouts:    DefaultTimeouts(),
		RetrievalK:  6,
		TopicFilter: true,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Model = envutil.String("GEN_MODEL", "")
	cfg.Retry.MaxAttempts = envutil.Int("GEN_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Retry.BaseDelay = envutil.Duration("GEN_RETRY_BASE_DELAY", cfg.Retry.BaseDelay)
	cfg.Retry.MaxDelay = envutil.Duration("GEN_RETRY_MAX_DELAY", cfg.Retry.MaxDelay)
	cfg.Retry.Jitter = envutil.Duration("GEN_RETRY_JITTER", cfg.Retry.Jitter)
	cfg.Timeouts[content.KindPlan] = envutil.Duration("GEN_TIMEOUT_PLAN", cfg.Timeouts[content.KindPlan])
	cfg.Timeouts[content.KindLesson] = envutil.Duration("GEN_TIMEOUT_LESSON", cfg.Timeouts[content.KindLesson])
	cfg.Timeouts[content.KindQuiz] = envutil.Duration("GEN_TIMEOUT_QUIZ", cfg.Timeouts[content.KindQuiz])
	cfg.Timeouts[content.KindFlashcards] = envutil.Duration("GEN_TIMEOUT_FLASHCARDS", cfg.Timeouts[content.KindFlashcards])
	cfg.RetrievalK = envutil.Int("GEN_RETRIEVAL_K", cfg.RetrievalK)
	cfg.TopicFilter = envutil.Bool("GEN_RETRIEVAL_TOPIC_FILTER", cfg.TopicFilter)
	return cfg
}

func (c Config) timeoutFor(kind string) time.Duration {
	if d, ok := c.Timeouts[kind]; ok && d > 0 {
		return d
	}
	return 60 * time.Second
}
