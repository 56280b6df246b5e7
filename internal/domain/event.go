package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTemplateCreated EventType = "template.created"
	EventTemplateUpdated EventType = "template.updated"
	EventTemplateDeleted EventType = "template.deleted"
	EventTemplateUsed    EventType = "template.used"
)

// TemplateEvent is emitted after a successful write. It never carries the body.
type TemplateEvent struct {
	ID           uuid.UUID
	Type         EventType
	TemplateID   uuid.UUID
	OwnerID      uuid.UUID
	OwnerType    OwnerType
	TemplateType string
	Name         string
	UsageCount   int
	OccurredAt   time.Time
}

func NewTemplateEvent(eventType EventType, t *Template) TemplateEvent {
	return TemplateEvent{
		ID:           uuid.Must(uuid.NewV7()),
		Type:         eventType,
		TemplateID:   t.ID,
		OwnerID:      t.OwnerID,
		OwnerType:    t.OwnerType,
		TemplateType: t.TemplateType,
		Name:         t.Name,
		UsageCount:   t.UsageCount,
		OccurredAt:   time.Now().UTC(),
	}
}

// UsageRecord is an inbound "template was applied" message from a consuming application.
type UsageRecord struct {
	EventID    string
	TemplateID uuid.UUID
}

func ParseUsageRecord(eventID, templateID string) (UsageRecord, error) {
	if eventID == "" {
		return UsageRecord{}, fmt.Errorf("%w: event id is required", ErrInvalidEvent)
	}
	id, err := uuid.Parse(templateID)
	if err != nil {
		return UsageRecord{}, fmt.Errorf("%w: template id: %v", ErrInvalidEvent, err)
	}
	return UsageRecord{EventID: eventID, TemplateID: id}, nil
}
