package queue

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/internal/port"
	"github.com/cva-pasha/covali-templates/pkg/tracing"
)

type ConsumerConfig struct {
	Brokers    []string
	Group      string
	Topic      string
	RatePerSec int
	Logger     *zap.Logger
}

// UsagePayload is what consuming applications produce when they apply a template.
type UsagePayload struct {
	EventID    string            `json:"event_id"`
	TemplateID string            `json:"template_id"`
	Carrier    map[string]string `json:"carrier,omitempty"`
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	cfg     ConsumerConfig
	reader  messageReader
	writer  messageWriter
	limiter *rate.Limiter
	logger  *zap.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = cfg.RatePerSec
	}

	return &Consumer{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  cfg.Logger,
	}
}

func (c *Consumer) Start(ctx context.Context, handler port.UsageHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.cfg.Brokers,
		Topic:          c.cfg.Topic,
		GroupID:        c.cfg.Group,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	c.wg.Add(1)
	go c.consume(ctx, handler)

	c.logger.Info("usage consumer started",
		zap.Strings("brokers", c.cfg.Brokers),
		zap.String("group", c.cfg.Group),
		zap.String("topic", c.cfg.Topic),
	)

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) Stop(_ context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	var firstErr error
	if c.reader != nil {
		if err := c.reader.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (c *Consumer) consume(ctx context.Context, handler port.UsageHandler) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed",
				zap.String("topic", c.cfg.Topic),
				zap.Error(err),
			)
			time.Sleep(time.Second)
			continue
		}

		c.handle(ctx, msg, handler)
		c.commit(ctx, msg)
	}
}

// commit failures leave the offset uncommitted, so the message is redelivered after a rebalance.
func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	err := c.reader.CommitMessages(ctx, msg)
	if err == nil || ctx.Err() != nil {
		return
	}
	c.logger.Error("commit message failed",
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(err),
	)
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler port.UsageHandler) {
	payload, record, err := decodeUsage(msg.Value)
	if err != nil {
		c.logger.Error("dropping malformed usage message",
			zap.String("topic", msg.Topic),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	msgCtx := ctx
	if len(payload.Carrier) > 0 {
		msgCtx = propagation.TraceContext{}.Extract(ctx, propagation.MapCarrier(payload.Carrier))
	}

	msgCtx, span := tracing.Tracer().Start(msgCtx, "kafka.consume")
	defer span.End()
	span.SetAttributes(tracing.MessagingAttrs(msg.Topic, "receive")...)
	span.SetAttributes(
		attribute.String("messaging.consumer.group.id", c.cfg.Group),
		attribute.String("usage.event_id", record.EventID),
		attribute.String("template.id", record.TemplateID.String()),
		attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		attribute.Int("messaging.kafka.destination.partition", msg.Partition),
	)

	if err := c.limiter.Wait(msgCtx); err != nil {
		return
	}

	if err := handler(msgCtx, record); err != nil {
		span.SetAttributes(attribute.Bool("usage.will_retry", true))
		tracing.RecordError(span, err)
		c.retry(ctx, msg, record)
	}
}

func (c *Consumer) retry(ctx context.Context, original kafka.Message, record domain.UsageRecord) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(retryDelay()):
	}

	if err := c.writer.WriteMessages(ctx, kafka.Message{
		Topic: original.Topic,
		Key:   original.Key,
		Value: original.Value,
	}); err != nil {
		c.logger.Error("retry re-enqueue failed",
			zap.String("event_id", record.EventID),
			zap.Error(err),
		)
	}
}

func decodeUsage(value []byte) (UsagePayload, domain.UsageRecord, error) {
	var payload UsagePayload
	if err := json.Unmarshal(value, &payload); err != nil {
		return payload, domain.UsageRecord{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	record, err := domain.ParseUsageRecord(payload.EventID, payload.TemplateID)
	return payload, record, err
}

func retryDelay() time.Duration {
	baseDelay := 2 * time.Second
	maxDelay := 30 * time.Second
	jitter := time.Duration(rand.Int64N(1000)) * time.Millisecond

	delay := baseDelay + jitter
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
