package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cva-pasha/covali-templates/internal/app"
	"github.com/cva-pasha/covali-templates/internal/domain"
)

// TemplateUseCases is the part of app.TemplateService the handlers drive.
type TemplateUseCases interface {
	GetByID(ctx context.Context, id uuid.UUID) (*app.TemplateDTO, error)
	GetByOwner(ctx context.Context, input app.GetTemplatesInput) ([]*app.TemplateDTO, error)
	GetMostUsed(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType string, limit int) ([]*app.TemplateDTO, error)
	Add(ctx context.Context, input app.CreateTemplateInput) (*app.TemplateDTO, error)
	Update(ctx context.Context, id uuid.UUID, input app.UpdateTemplateInput) (*app.TemplateDTO, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (int, error)
	Exists(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType, name string) (bool, error)
}

type TemplateHandler struct {
	service TemplateUseCases
}

func NewTemplateHandler(service TemplateUseCases) *TemplateHandler {
	return &TemplateHandler{service: service}
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	tmpl, err := h.service.Add(c.Request.Context(), input)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewTemplateResponse(tmpl))
}

func (h *TemplateHandler) GetByID(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	tmpl, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		handleDomainError(c, err)
		return
	}
	if tmpl == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrTemplateNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, NewTemplateResponse(tmpl))
}

func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	tmpl, err := h.service.Update(c.Request.Context(), id, req.ToInput())
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTemplateResponse(tmpl))
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		handleDomainError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrTemplateNotFound.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TemplateHandler) IncrementUsage(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	count, err := h.service.IncrementUsage(c.Request.Context(), id)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage_count": count})
}

func (h *TemplateHandler) ListByOwner(c *gin.Context) {
	ownerID, ownerType, ok := ownerParams(c)
	if !ok {
		return
	}

	var q ListTemplatesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	input := app.GetTemplatesInput{
		OwnerID:      ownerID,
		OwnerType:    ownerType,
		TemplateType: q.TemplateType,
		SortBy:       domain.ParseSortBy(q.SortBy),
		Page:         q.Page,
		PageSize:     q.PageSize,
	}

	templates, err := h.service.GetByOwner(c.Request.Context(), input)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	filter := domain.TemplateFilter{Page: q.Page, PageSize: q.PageSize}
	filter.Normalize()

	c.JSON(http.StatusOK, PageResponse[TemplateResponse]{
		Data:     NewTemplateResponses(templates),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (h *TemplateHandler) MostUsed(c *gin.Context) {
	ownerID, ownerType, ok := ownerParams(c)
	if !ok {
		return
	}

	var q MostUsedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	templates, err := h.service.GetMostUsed(c.Request.Context(), ownerID, ownerType, q.TemplateType, q.Limit)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse[TemplateResponse]{Data: NewTemplateResponses(templates)})
}

func (h *TemplateHandler) Exists(c *gin.Context) {
	ownerID, ownerType, ok := ownerParams(c)
	if !ok {
		return
	}

	var q ExistsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	exists, err := h.service.Exists(c.Request.Context(), ownerID, ownerType, q.TemplateType, q.Name)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func templateID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid template id"})
		return uuid.Nil, false
	}
	return id, true
}

func ownerParams(c *gin.Context) (uuid.UUID, domain.OwnerType, bool) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid owner id"})
		return uuid.Nil, "", false
	}
	ownerType, err := domain.ParseOwnerType(c.Param("ownerType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return uuid.Nil, "", false
	}
	return ownerID, ownerType, true
}

func handleBindError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: domain.ErrBodyTooLarge.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func handleDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrBodyTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrTemplateConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidOwnerType),
		errors.Is(err, domain.ErrEmptyTemplateType),
		errors.Is(err, domain.ErrTemplateTypeTooLong),
		errors.Is(err, domain.ErrEmptyTemplateName),
		errors.Is(err, domain.ErrTemplateNameTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrInvalidBody):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
