package generation

import (
	"testing"
	"time"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GEN_MODEL", "gpt-4.1-mini")
	t.Setenv("GEN_MAX_ATTEMPTS", "4")
	t.Setenv("GEN_RETRY_BASE_DELAY", "50ms")
	t.Setenv("GEN_TIMEOUT_QUIZ", "10")
	t.Setenv("GEN_RETRIEVAL_TOPIC_FILTER", "false")

	cfg := ConfigFromEnv()
	if cfg.Model != "gpt-4.1-mini" || cfg.Retry.MaxAttempts != 4 || cfg.Retry.BaseDelay != 50*time.Millisecond {
		t.Fatalf("unexpected: %+v", cfg)
	}
	if got := cfg.timeoutFor("quiz"); got != 10*time.Second {
		t.Fatalf("quiz timeout: %v", got)
	}
	if got := cfg.timeoutFor("plan"); got != 120*time.Second {
		t.Fatalf("plan timeout: %v", got)
	}
	if got := cfg.timeoutFor("unknown"); got != 60*time.Second {
		t.Fatalf("fallback timeout: %v", got)
	}
	if cfg.TopicFilter {
		t.Fatalf("topic filter should be off")
	}
}
