package app

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cva-pasha/covali-templates/internal/domain"
)

type mockTemplateRepo struct {
	mu         sync.Mutex
	templates  map[uuid.UUID]*domain.Template
	addCalls   int
	getErr     error
	listErr    error
	addErr     error
	updateErr  error
	deleteErr  error
	existsErr  error
	incrErr    error
	skipExists bool
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{
		templates: make(map[uuid.UUID]*domain.Template),
	}
}

func clone(t *domain.Template) *domain.Template {
	c := *t
	return &c
}

func (m *mockTemplateRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.templates)
}

func (m *mockTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Template, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, nil
	}
	return clone(t), nil
}

func (m *mockTemplateRepo) GetByOwner(_ context.Context, filter domain.TemplateFilter) ([]*domain.Template, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	limit, offset := filter.Normalize()

	matched := m.match(filter.OwnerID, filter.OwnerType, filter.TemplateType)
	sortTemplates(matched, filter.SortBy)

	if offset >= len(matched) {
		return []*domain.Template{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *mockTemplateRepo) GetMostUsed(_ context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType string, limit int) ([]*domain.Template, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit <= 0 {
		return []*domain.Template{}, nil
	}
	matched := m.match(ownerID, ownerType, templateType)
	sortTemplates(matched, domain.SortByUsageCount)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *mockTemplateRepo) Add(_ context.Context, t *domain.Template) (*domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if m.addErr != nil {
		return nil, m.addErr
	}
	if m.duplicateLocked(t) {
		return nil, domain.ErrTemplateConflict
	}
	m.templates[t.ID] = clone(t)
	return clone(t), nil
}

func (m *mockTemplateRepo) Update(_ context.Context, t *domain.Template) (*domain.Template, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.templates[t.ID]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	if m.duplicateLocked(t) {
		return nil, domain.ErrTemplateConflict
	}
	existing.Name = t.Name
	existing.Description = t.Description
	existing.Body = t.Body
	existing.UpdatedAt = t.UpdatedAt
	return clone(existing), nil
}

func (m *mockTemplateRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return false, nil
	}
	delete(m.templates, id)
	return true, nil
}

func (m *mockTemplateRepo) IncrementUsage(_ context.Context, id uuid.UUID) (int, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return 0, domain.ErrTemplateNotFound
	}
	t.UsageCount++
	return t.UsageCount, nil
}

func (m *mockTemplateRepo) Exists(_ context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType, name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	if m.skipExists {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.OwnerID == ownerID && t.OwnerType == ownerType && t.TemplateType == templateType && t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// duplicateLocked plays the role of the unique index.
func (m *mockTemplateRepo) duplicateLocked(t *domain.Template) bool {
	for _, other := range m.templates {
		if other.ID != t.ID && other.OwnerID == t.OwnerID && other.OwnerType == t.OwnerType &&
			other.TemplateType == t.TemplateType && other.Name == t.Name {
			return true
		}
	}
	return false
}

func (m *mockTemplateRepo) match(ownerID uuid.UUID, ownerType domain.OwnerType, templateType string) []*domain.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Template
	for _, t := range m.templates {
		if t.OwnerID != ownerID || t.OwnerType != ownerType {
			continue
		}
		if templateType != "" && t.TemplateType != templateType {
			continue
		}
		result = append(result, clone(t))
	}
	return result
}

func sortTemplates(ts []*domain.Template, sortBy domain.SortBy) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		switch sortBy {
		case domain.SortByName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case domain.SortByCreatedAt:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID.String() > b.ID.String()
		case domain.SortByUpdatedAt:
			switch {
			case a.UpdatedAt == nil && b.UpdatedAt != nil:
				return false
			case a.UpdatedAt != nil && b.UpdatedAt == nil:
				return true
			case a.UpdatedAt != nil && !a.UpdatedAt.Equal(*b.UpdatedAt):
				return a.UpdatedAt.After(*b.UpdatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		default:
			if a.UsageCount != b.UsageCount {
				return a.UsageCount > b.UsageCount
			}
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		}
		return a.ID.String() < b.ID.String()
	})
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.TemplateEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.TemplateEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) types() []domain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockIdempotencyStore struct {
	mu         sync.Mutex
	keys       map[string]string
	checkErr   error
	setErr     error
	released   []string
	releaseErr error
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{keys: make(map[string]string)}
}

func (m *mockIdempotencyStore) Check(_ context.Context, key string) (bool, string, error) {
	if m.checkErr != nil {
		return false, "", m.checkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.keys[key]
	return ok, val, nil
}

func (m *mockIdempotencyStore) SetNX(_ context.Context, key, templateID string) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[key]; exists {
		return false, nil
	}
	m.keys[key] = templateID
	return true, nil
}

func (m *mockIdempotencyStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, key)
	delete(m.keys, key)
	return m.releaseErr
}

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	mockPublisher
	release chan struct{}
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{})}
}

func (b *blockingPublisher) Publish(ctx context.Context, event domain.TemplateEvent) error {
	<-b.release
	return b.mockPublisher.Publish(ctx, event)
}
