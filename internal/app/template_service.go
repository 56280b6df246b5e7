package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/internal/port"
	"github.com/cva-pasha/covali-templates/pkg/tracing"
)

type TemplateService struct {
	repo      port.TemplateRepository
	codec     port.BodyCodec
	publisher port.TemplateEventPublisher
	metrics   *Metrics
	logger    *zap.Logger
}

// NewTemplateService panics without a repository or codec. publisher and metrics may be nil.
func NewTemplateService(
	repo port.TemplateRepository,
	codec port.BodyCodec,
	publisher port.TemplateEventPublisher,
	metrics *Metrics,
	logger *zap.Logger,
) *TemplateService {
	if repo == nil {
		panic("app: NewTemplateService requires a template repository")
	}
	if codec == nil {
		panic("app: NewTemplateService requires a body codec")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{
		repo:      repo,
		codec:     codec,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

type TemplateDTO struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	OwnerType    domain.OwnerType
	TemplateType string
	Name         string
	Description  *string
	Body         any
	UsageCount   int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type CreateTemplateInput struct {
	OwnerID      uuid.UUID
	OwnerType    domain.OwnerType
	TemplateType string
	Name         string
	Description  *string
	Body         any
}

type UpdateTemplateInput struct {
	Name        string
	Description *string
	Body        any
}

type GetTemplatesInput struct {
	OwnerID      uuid.UUID
	OwnerType    domain.OwnerType
	TemplateType string
	SortBy       domain.SortBy
	Page         int
	PageSize     int
}

func (s *TemplateService) GetByID(ctx context.Context, id uuid.UUID) (dto *TemplateDTO, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.get")
	defer span.End()
	defer s.observe("get", time.Now(), &err)

	span.SetAttributes(attribute.String("template.id", id.String()))

	tmpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if tmpl == nil {
		span.SetAttributes(attribute.Bool("template.found", false))
		return nil, nil
	}
	return s.toDTO(tmpl), nil
}

func (s *TemplateService) GetByOwner(ctx context.Context, input GetTemplatesInput) (dtos []*TemplateDTO, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.list")
	defer span.End()
	defer s.observe("list", time.Now(), &err)

	filter := domain.TemplateFilter{
		OwnerID:      input.OwnerID,
		OwnerType:    input.OwnerType,
		TemplateType: input.TemplateType,
		SortBy:       input.SortBy,
		Page:         input.Page,
		PageSize:     input.PageSize,
	}
	filter.Normalize()

	span.SetAttributes(tracing.OwnerAttrs(input.OwnerID.String(), string(input.OwnerType), input.TemplateType)...)
	span.SetAttributes(
		attribute.String("template.sort_by", string(filter.SortBy)),
		attribute.Int("template.page", filter.Page),
		attribute.Int("template.page_size", filter.PageSize),
	)

	templates, err := s.repo.GetByOwner(ctx, filter)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return s.toDTOs(templates), nil
}

func (s *TemplateService) GetMostUsed(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType string, limit int) (dtos []*TemplateDTO, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.most_used")
	defer span.End()
	defer s.observe("most_used", time.Now(), &err)

	span.SetAttributes(tracing.OwnerAttrs(ownerID.String(), string(ownerType), templateType)...)
	span.SetAttributes(attribute.Int("template.limit", limit))

	templates, err := s.repo.GetMostUsed(ctx, ownerID, ownerType, templateType, limit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return s.toDTOs(templates), nil
}

func (s *TemplateService) Add(ctx context.Context, input CreateTemplateInput) (dto *TemplateDTO, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.add")
	defer span.End()
	defer s.observe("add", time.Now(), &err)

	span.SetAttributes(tracing.OwnerAttrs(input.OwnerID.String(), string(input.OwnerType), input.TemplateType)...)

	if err := validateCreate(input); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, input.OwnerID, input.OwnerType, input.TemplateType, input.Name)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if exists {
		err := fmt.Errorf("%w: %q", domain.ErrTemplateConflict, input.Name)
		tracing.RecordError(span, err)
		return nil, err
	}

	body, err := s.encodeBody(input.Body)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	tmpl, err := domain.NewTemplate(input.OwnerID, input.OwnerType, input.TemplateType, input.Name, input.Description, body)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	stored, err := s.repo.Add(ctx, tmpl)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("template.id", stored.ID.String()))
	s.logger.Info("template created",
		zap.String("id", stored.ID.String()),
		zap.String("owner_id", stored.OwnerID.String()),
		zap.String("owner_type", string(stored.OwnerType)),
		zap.String("template_type", stored.TemplateType),
		zap.String("name", stored.Name),
		zap.Int("body_bytes", len(body)),
		zap.String("trace_id", tracing.TraceIDFromContext(ctx)),
	)

	s.publish(ctx, domain.NewTemplateEvent(domain.EventTemplateCreated, stored))
	return s.toDTO(stored), nil
}

func (s *TemplateService) Update(ctx context.Context, id uuid.UUID, input UpdateTemplateInput) (dto *TemplateDTO, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.update")
	defer span.End()
	defer s.observe("update", time.Now(), &err)

	span.SetAttributes(attribute.String("template.id", id.String()))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if existing == nil {
		err := fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
		tracing.RecordError(span, err)
		return nil, err
	}

	if err := validateUpdate(input); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	body, err := s.encodeBody(input.Body)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if err := existing.Revise(input.Name, input.Description, body); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	stored, err := s.repo.Update(ctx, existing)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("template updated",
		zap.String("id", stored.ID.String()),
		zap.String("name", stored.Name),
		zap.Int("body_bytes", len(body)),
		zap.String("trace_id", tracing.TraceIDFromContext(ctx)),
	)

	s.publish(ctx, domain.NewTemplateEvent(domain.EventTemplateUpdated, stored))
	return s.toDTO(stored), nil
}

func (s *TemplateService) Delete(ctx context.Context, id uuid.UUID) (deleted bool, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.delete")
	defer span.End()
	defer s.observe("delete", time.Now(), &err)

	span.SetAttributes(attribute.String("template.id", id.String()))

	deleted, err = s.repo.Delete(ctx, id)
	if err != nil {
		tracing.RecordError(span, err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("template.deleted", deleted))

	if deleted {
		s.logger.Info("template deleted", zap.String("id", id.String()))
		s.publish(ctx, domain.NewTemplateEvent(domain.EventTemplateDeleted, &domain.Template{ID: id}))
	}
	return deleted, nil
}

func (s *TemplateService) IncrementUsage(ctx context.Context, id uuid.UUID) (count int, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "template.increment_usage")
	defer span.End()
	defer s.observe("increment_usage", time.Now(), &err)

	span.SetAttributes(attribute.String("template.id", id.String()))

	count, err = s.repo.IncrementUsage(ctx, id)
	if err != nil {
		tracing.RecordError(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("template.usage_count", count))

	s.logger.Debug("template usage incremented",
		zap.String("id", id.String()),
		zap.Int("usage_count", count),
	)

	s.publish(ctx, domain.NewTemplateEvent(domain.EventTemplateUsed, &domain.Template{ID: id, UsageCount: count}))
	return count, nil
}

func (s *TemplateService) Exists(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType, name string) (exists bool, err error) {
	defer s.observe("exists", time.Now(), &err)
	return s.repo.Exists(ctx, ownerID, ownerType, templateType, name)
}

func (s *TemplateService) encodeBody(doc any) (string, error) {
	body, err := s.codec.Encode(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	if err := domain.ValidateBodySize(body); err != nil {
		return "", err
	}
	s.metrics.ObserveBodySize(len(body))
	return body, nil
}

func (s *TemplateService) publish(ctx context.Context, event domain.TemplateEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish template event",
			zap.String("event_type", string(event.Type)),
			zap.String("template_id", event.TemplateID.String()),
			zap.Error(err),
		)
	}
}

func (s *TemplateService) observe(operation string, start time.Time, err *error) {
	s.metrics.Observe(operation, start, *err)
}

func (s *TemplateService) toDTO(t *domain.Template) *TemplateDTO {
	return &TemplateDTO{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		OwnerType:    t.OwnerType,
		TemplateType: t.TemplateType,
		Name:         t.Name,
		Description:  t.Description,
		Body:         s.codec.Decode(t.Body),
		UsageCount:   t.UsageCount,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (s *TemplateService) toDTOs(templates []*domain.Template) []*TemplateDTO {
	result := make([]*TemplateDTO, len(templates))
	for i, t := range templates {
		result[i] = s.toDTO(t)
	}
	return result
}

func validateCreate(input CreateTemplateInput) error {
	if !input.OwnerType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidOwnerType, input.OwnerType)
	}
	if err := domain.ValidateTemplateType(input.TemplateType); err != nil {
		return err
	}
	if err := domain.ValidateName(input.Name); err != nil {
		return err
	}
	return domain.ValidateDescription(input.Description)
}

func validateUpdate(input UpdateTemplateInput) error {
	if err := domain.ValidateName(input.Name); err != nil {
		return err
	}
	return domain.ValidateDescription(input.Description)
}
