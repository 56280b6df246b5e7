package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/internal/port"
)

var ErrPublisherClosed = errors.New("event publisher closed")

// AsyncPublisher hands events to the wrapped publisher in the background, so callers
// never wait on brokers or webhooks. At most maxInFlight deliveries run at once; beyond
// that, events are dropped and logged.
type AsyncPublisher struct {
	next    port.TemplateEventPublisher
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	group  errgroup.Group
}

func NewAsyncPublisher(next port.TemplateEventPublisher, timeout time.Duration, maxInFlight int, logger *zap.Logger) *AsyncPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &AsyncPublisher{
		next:    next,
		timeout: timeout,
		logger:  logger,
	}
	if maxInFlight > 0 {
		p.group.SetLimit(maxInFlight)
	}
	return p
}

func (p *AsyncPublisher) Publish(ctx context.Context, event domain.TemplateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	detached := context.WithoutCancel(ctx)
	started := p.group.TryGo(func() error {
		deliverCtx, cancel := context.WithTimeout(detached, p.timeout)
		defer cancel()

		if err := p.next.Publish(deliverCtx, event); err != nil {
			p.logger.Warn("template event delivery failed",
				zap.String("event_id", event.ID.String()),
				zap.String("event_type", string(event.Type)),
				zap.String("template_id", event.TemplateID.String()),
				zap.Error(err),
			)
		}
		return nil
	})
	if !started {
		p.logger.Warn("template event dropped, too many deliveries in flight",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
		)
	}
	return nil
}

// Close waits for in-flight deliveries and then closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	_ = p.group.Wait()
	return p.next.Close()
}
