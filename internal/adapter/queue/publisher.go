package queue

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/cva-pasha/covali-templates/internal/adapter/events"
	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes template events keyed by template id, so one template's events stay ordered.
type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (p *Producer) Publish(ctx context.Context, e domain.TemplateEvent) error {
	ctx, span := tracing.Tracer().Start(ctx, "kafka.produce")
	defer span.End()

	span.SetAttributes(tracing.MessagingAttrs(p.topic, "publish")...)
	span.SetAttributes(
		attribute.String("template.id", e.TemplateID.String()),
		attribute.String("template.event_type", string(e.Type)),
	)

	payload := events.NewTemplateEventPayload(e)
	payload.Carrier = propagateTraceContext(ctx)

	value, err := json.Marshal(payload)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(e.TemplateID.String()),
		Value: value,
	}); err != nil {
		tracing.RecordError(span, err)
		return err
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func propagateTraceContext(ctx context.Context) map[string]string {
	carrier := make(map[string]string)
	propagation.TraceContext{}.Inject(ctx, propagation.MapCarrier(carrier))
	return carrier
}
