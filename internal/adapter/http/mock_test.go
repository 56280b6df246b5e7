package http

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cva-pasha/covali-templates/internal/app"
	"github.com/cva-pasha/covali-templates/internal/domain"
)

type fakeTemplateService struct {
	mu        sync.Mutex
	templates map[uuid.UUID]*app.TemplateDTO
	err       error
	lastList  app.GetTemplatesInput
	lastLimit int
}

func newFakeTemplateService() *fakeTemplateService {
	return &fakeTemplateService{templates: make(map[uuid.UUID]*app.TemplateDTO)}
}

func (f *fakeTemplateService) seed(name string) *app.TemplateDTO {
	f.mu.Lock()
	defer f.mu.Unlock()
	dto := &app.TemplateDTO{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		OwnerType:    domain.OwnerTypeUser,
		TemplateType: "checklist",
		Name:         name,
		Body:         map[string]any{"steps": []any{"a"}},
		CreatedAt:    time.Now().UTC(),
	}
	f.templates[dto.ID] = dto
	return dto
}

func (f *fakeTemplateService) GetByID(_ context.Context, id uuid.UUID) (*app.TemplateDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templates[id], nil
}

func (f *fakeTemplateService) GetByOwner(_ context.Context, input app.GetTemplatesInput) ([]*app.TemplateDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = input
	var out []*app.TemplateDTO
	for _, t := range f.templates {
		if t.OwnerID == input.OwnerID && t.OwnerType == input.OwnerType {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplateService) GetMostUsed(_ context.Context, _ uuid.UUID, _ domain.OwnerType, _ string, limit int) ([]*app.TemplateDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	return []*app.TemplateDTO{}, nil
}

func (f *fakeTemplateService) Add(_ context.Context, input app.CreateTemplateInput) (*app.TemplateDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	if input.Name == "" {
		return nil, domain.ErrEmptyTemplateName
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		if t.OwnerID == input.OwnerID && t.OwnerType == input.OwnerType && t.TemplateType == input.TemplateType && t.Name == input.Name {
			return nil, domain.ErrTemplateConflict
		}
	}
	dto := &app.TemplateDTO{
		ID:           uuid.New(),
		OwnerID:      input.OwnerID,
		OwnerType:    input.OwnerType,
		TemplateType: input.TemplateType,
		Name:         input.Name,
		Description:  input.Description,
		Body:         input.Body,
		CreatedAt:    time.Now().UTC(),
	}
	f.templates[dto.ID] = dto
	return dto, nil
}

func (f *fakeTemplateService) Update(_ context.Context, id uuid.UUID, input app.UpdateTemplateInput) (*app.TemplateDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	now := time.Now().UTC()
	t.Name = input.Name
	t.Description = input.Description
	t.Body = input.Body
	t.UpdatedAt = &now
	return t, nil
}

func (f *fakeTemplateService) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.templates[id]; !ok {
		return false, nil
	}
	delete(f.templates, id)
	return true, nil
}

func (f *fakeTemplateService) IncrementUsage(_ context.Context, id uuid.UUID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return 0, domain.ErrTemplateNotFound
	}
	t.UsageCount++
	return t.UsageCount, nil
}

func (f *fakeTemplateService) Exists(_ context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		if t.OwnerID == ownerID && t.OwnerType == ownerType && t.TemplateType == templateType && t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error { return p.err }
