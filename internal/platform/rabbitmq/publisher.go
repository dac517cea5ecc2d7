package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/yungbote/lessongen/internal/platform/envutil"
	"github.com/yungbote/lessongen/internal/platform/logger"
)

type Config struct {
	URL   string
	Queue string
}

func ConfigFromEnv() Config {
	return Config{
		URL:   envutil.String("RABBITMQ_URL", ""),
		Queue: envutil.String("RABBITMQ_QUEUE", "generation.events"),
	}
}

// Publisher writes JSON events to a durable queue. The queue is declared with
// a ".retry" sibling (TTL dead-letters back to main) and a ".dlq" for rejects,
// so consumers can use the same topology.
type Publisher struct {
	log   *logger.Logger
	conn  *amqp.Connection
	mu    sync.Mutex
	ch    *amqp.Channel
	queue string
}

func NewPublisher(log *logger.Logger, cfg Config) (*Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("missing RABBITMQ_URL")
	}
	queue := strings.TrimSpace(cfg.Queue)
	if queue == "" {
		queue = "generation.events"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{
		log:   log.With("service", "RabbitPublisher"),
		conn:  conn,
		ch:    ch,
		queue: queue,
	}, nil
}

func declareTopology(ch *amqp.Channel, queue string) error {
	dlq := queue + ".dlq"
	retry := queue + ".retry"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", dlq, err)
	}
	if _, err := ch.QueueDeclare(retry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", retry, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	return nil
}

// Publish marshals event and sends it persistently to the queue. eventType is
// carried in the AMQP Type property.
func (p *Publisher) Publish(ctx context.Context, eventType string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(cctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         eventType,
		Body:         body,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
