package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessongen/internal/platform/logger"
	"github.com/yungbote/lessongen/internal/platform/mockllm"
	"github.com/yungbote/lessongen/internal/platform/openai"
	"github.com/yungbote/lessongen/internal/platform/pinecone"
	"github.com/yungbote/lessongen/internal/platform/rabbitmq"
	"github.com/yungbote/lessongen/internal/platform/redisdb"
)

type Clients struct {
	LLM openai.Client
	// Vector is nil when no index is configured; retrieval then serves
	// from the in-memory fallback.
	Vector      pinecone.VectorStore
	Redis       *goredis.Client
	RedisPrefix string
	Publisher   *rabbitmq.Publisher
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// LLM
	switch cfg.LLMProvider {
	case LLMProviderMock:
		log.Warn("LLM_PROVIDER=mock; generated content is synthetic")
		out.LLM = mockllm.New()
	default:
		c, err := openai.NewClient(log, openai.ConfigFromEnv())
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.LLM = c
	}

	// Vector index
	vs, err := resolveVectorStore(ctx, log, cfg.VectorProvider)
	if err != nil {
		return Clients{}, err
	}
	out.Vector = vs

	// Redis
	if cfg.RollupBackend == RollupBackendRedis {
		rcfg := redisdb.ConfigFromEnv()
		rdb, err := redisdb.Open(ctx, log, rcfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.RedisPrefix = rcfg.KeyPrefix
	}

	// RabbitMQ
	if cfg.EventsEnabled {
		pub, err := rabbitmq.NewPublisher(log, rabbitmq.ConfigFromEnv())
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init rabbitmq publisher: %w", err)
		}
		out.Publisher = pub
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
