package app

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/internal/port"
	"github.com/cva-pasha/covali-templates/pkg/tracing"
)

// UsageService applies usage records coming off the queue, counting each event id at most once.
type UsageService struct {
	templates  *TemplateService
	idempotent port.IdempotencyStore
	logger     *zap.Logger
}

func NewUsageService(templates *TemplateService, idempotent port.IdempotencyStore, logger *zap.Logger) *UsageService {
	return &UsageService{
		templates:  templates,
		idempotent: idempotent,
		logger:     logger,
	}
}

// HandleUsage returns an error only when the record should be redelivered.
func (s *UsageService) HandleUsage(ctx context.Context, record domain.UsageRecord) error {
	ctx, span := tracing.Tracer().Start(ctx, "usage.handle")
	defer span.End()

	span.SetAttributes(
		attribute.String("usage.event_id", record.EventID),
		attribute.String("template.id", record.TemplateID.String()),
	)

	seen, _, err := s.idempotent.Check(ctx, record.EventID)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if seen {
		span.SetAttributes(attribute.Bool("usage.duplicate", true))
		s.logger.Debug("usage event already applied", zap.String("event_id", record.EventID))
		return nil
	}

	claimed, err := s.idempotent.SetNX(ctx, record.EventID, record.TemplateID.String())
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if !claimed {
		span.SetAttributes(attribute.Bool("usage.duplicate", true))
		return nil
	}

	count, err := s.templates.IncrementUsage(ctx, record.TemplateID)
	if errors.Is(err, domain.ErrTemplateNotFound) {
		s.logger.Warn("usage event for unknown template dropped",
			zap.String("event_id", record.EventID),
			zap.String("template_id", record.TemplateID.String()),
		)
		return nil
	}
	if err != nil {
		if releaseErr := s.idempotent.Release(ctx, record.EventID); releaseErr != nil {
			s.logger.Error("failed to release usage event claim",
				zap.String("event_id", record.EventID),
				zap.Error(releaseErr),
			)
		}
		tracing.RecordError(span, err)
		return err
	}

	s.logger.Info("usage recorded",
		zap.String("event_id", record.EventID),
		zap.String("template_id", record.TemplateID.String()),
		zap.Int("usage_count", count),
		zap.String("trace_id", tracing.TraceIDFromContext(ctx)),
	)
	return nil
}
