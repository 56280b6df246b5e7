package http

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cva-pasha/covali-templates/internal/app"
	"github.com/cva-pasha/covali-templates/internal/domain"
)

type CreateTemplateRequest struct {
	OwnerID      string          `json:"owner_id" binding:"required,uuid"`
	OwnerType    string          `json:"owner_type" binding:"required"`
	TemplateType string          `json:"template_type"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Body         json.RawMessage `json:"body"`
}

func (r *CreateTemplateRequest) ToInput() (app.CreateTemplateInput, error) {
	ownerID, err := uuid.Parse(r.OwnerID)
	if err != nil {
		return app.CreateTemplateInput{}, fmt.Errorf("invalid owner id: %w", err)
	}
	ownerType, err := domain.ParseOwnerType(r.OwnerType)
	if err != nil {
		return app.CreateTemplateInput{}, err
	}
	return app.CreateTemplateInput{
		OwnerID:      ownerID,
		OwnerType:    ownerType,
		TemplateType: r.TemplateType,
		Name:         r.Name,
		Description:  r.Description,
		Body:         bodyOrNil(r.Body),
	}, nil
}

type UpdateTemplateRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Body        json.RawMessage `json:"body"`
}

func (r *UpdateTemplateRequest) ToInput() app.UpdateTemplateInput {
	return app.UpdateTemplateInput{
		Name:        r.Name,
		Description: r.Description,
		Body:        bodyOrNil(r.Body),
	}
}

type ListTemplatesQuery struct {
	TemplateType string `form:"template_type"`
	SortBy       string `form:"sort_by"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

type MostUsedQuery struct {
	TemplateType string `form:"template_type"`
	Limit        int    `form:"limit,default=10"`
}

type ExistsQuery struct {
	TemplateType string `form:"template_type" binding:"required"`
	Name         string `form:"name" binding:"required"`
}

type TemplateResponse struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	OwnerType    string     `json:"owner_type"`
	TemplateType string     `json:"template_type"`
	Name         string     `json:"name"`
	Description  *string    `json:"description"`
	Body         any        `json:"body"`
	UsageCount   int        `json:"usage_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

func NewTemplateResponse(t *app.TemplateDTO) TemplateResponse {
	return TemplateResponse{
		ID:           t.ID.String(),
		OwnerID:      t.OwnerID.String(),
		OwnerType:    string(t.OwnerType),
		TemplateType: t.TemplateType,
		Name:         t.Name,
		Description:  t.Description,
		Body:         t.Body,
		UsageCount:   t.UsageCount,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func NewTemplateResponses(dtos []*app.TemplateDTO) []TemplateResponse {
	data := make([]TemplateResponse, len(dtos))
	for i, t := range dtos {
		data[i] = NewTemplateResponse(t)
	}
	return data
}

// bodyOrNil turns an omitted body into nil so the codec stores an empty document.
func bodyOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
