package generation

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/yungbote/lessongen/internal/modules/generation/content"
	"github.com/yungbote/lessongen/internal/platform/openai"
)

// attemptBackOff implements backoff.BackOff with
// min(base·2^n, max) + rand[0, jitter), raised to a provider Retry-After
// hint (itself capped at max) when one was seen.
type attemptBackOff struct {
	policy RetryPolicy
	n      int
	hint   time.Duration
	jitter func(time.Duration) time.Duration
}

func newAttemptBackOff(p RetryPolicy) *attemptBackOff {
	return &attemptBackOff{
		policy: p,
		jitter: func(j time.Duration) time.Duration { return time.Duration(rand.Int64N(int64(j))) },
	}
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	d := b.policy.BaseDelay
	for i := 0; i < b.n && d < b.policy.MaxDelay; i++ {
		d *= 2
	}
	if b.policy.MaxDelay > 0 && d > b.policy.MaxDelay {
		d = b.policy.MaxDelay
	}
	b.n++
	if b.policy.Jitter > 0 {
		d += b.jitter(b.policy.Jitter)
	}
	if hint := min(b.hint, b.policy.MaxDelay); hint > d {
		d = hint
	}
	b.hint = 0
	return d
}

func (b *attemptBackOff) Reset() {
	b.n = 0
	b.hint = 0
}

// retryable: malformed or off-schema output is retried like a transient
// provider failure; everything else follows the provider classification.
func retryable(err error) bool {
	if errors.Is(err, content.ErrOutputParse) || errors.Is(err, content.ErrSchemaValidation) {
		return true
	}
	return openai.IsRetryable(err)
}
