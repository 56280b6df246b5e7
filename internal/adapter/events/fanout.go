package events

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/internal/port"
)

// Fanout delivers every event to all sinks concurrently and joins their errors.
type Fanout struct {
	sinks []port.TemplateEventPublisher
}

func NewFanout(sinks ...port.TemplateEventPublisher) *Fanout {
	active := make([]port.TemplateEventPublisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Fanout{sinks: active}
}

func (f *Fanout) Publish(ctx context.Context, event domain.TemplateEvent) error {
	errs := make([]error, len(f.sinks))

	var g errgroup.Group
	for i, sink := range f.sinks {
		g.Go(func() error {
			errs[i] = sink.Publish(ctx, event)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, sink := range f.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}
