package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/cva-pasha/covali-templates/internal/domain"
)

// TemplateEventPayload is the wire form shared by kafka, websocket and webhook sinks.
type TemplateEventPayload struct {
	EventID      string            `json:"event_id"`
	Type         string            `json:"type"`
	TemplateID   string            `json:"template_id"`
	OwnerID      string            `json:"owner_id,omitempty"`
	OwnerType    string            `json:"owner_type,omitempty"`
	TemplateType string            `json:"template_type,omitempty"`
	Name         string            `json:"name,omitempty"`
	UsageCount   int               `json:"usage_count"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Carrier      map[string]string `json:"carrier,omitempty"`
}

func NewTemplateEventPayload(e domain.TemplateEvent) TemplateEventPayload {
	p := TemplateEventPayload{
		EventID:      e.ID.String(),
		Type:         string(e.Type),
		TemplateID:   e.TemplateID.String(),
		OwnerType:    string(e.OwnerType),
		TemplateType: e.TemplateType,
		Name:         e.Name,
		UsageCount:   e.UsageCount,
		OccurredAt:   e.OccurredAt,
	}
	if e.OwnerID != uuid.Nil {
		p.OwnerID = e.OwnerID.String()
	}
	return p
}
