package port

import (
	"context"

	"github.com/cva-pasha/covali-templates/internal/domain"
)

type TemplateEventPublisher interface {
	Publish(ctx context.Context, event domain.TemplateEvent) error
	Close() error
}

type UsageHandler func(ctx context.Context, record domain.UsageRecord) error

type UsageConsumer interface {
	Start(ctx context.Context, handler UsageHandler) error
	Stop(ctx context.Context) error
}
