package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cva-pasha/covali-templates/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.TemplateEvent
	err    error
	closed bool
}

func (s *recordingSink) Publish(_ context.Context, e domain.TemplateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func sampleEvent() domain.TemplateEvent {
	return domain.NewTemplateEvent(domain.EventTemplateCreated, &domain.Template{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		OwnerType:    domain.OwnerTypeGroup,
		TemplateType: "checklist",
		Name:         "Daily",
	})
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	f := NewFanout(a, nil, b)
	assert.Equal(t, 2, f.Len())

	require.NoError(t, f.Publish(context.Background(), sampleEvent()))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestFanout_JoinsErrorsButStillDelivers(t *testing.T) {
	failing := &recordingSink{err: assert.AnError}
	ok := &recordingSink{}
	f := NewFanout(failing, ok)

	err := f.Publish(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, ok.events, 1)
}

func TestFanout_Close(t *testing.T) {
	a := &recordingSink{}
	require.NoError(t, NewFanout(a).Close())
	assert.True(t, a.closed)
}

func TestNewTemplateEventPayload(t *testing.T) {
	e := sampleEvent()
	p := NewTemplateEventPayload(e)

	assert.Equal(t, e.ID.String(), p.EventID)
	assert.Equal(t, "template.created", p.Type)
	assert.Equal(t, e.OwnerID.String(), p.OwnerID)
	assert.Equal(t, "Group", p.OwnerType)
	assert.WithinDuration(t, time.Now(), p.OccurredAt, time.Second)

	deleted := NewTemplateEventPayload(domain.NewTemplateEvent(domain.EventTemplateDeleted, &domain.Template{ID: uuid.New()}))
	assert.Empty(t, deleted.OwnerID)
	assert.Empty(t, deleted.OwnerType)
}
