package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/cva-pasha/covali-templates/internal/domain"
)

// TemplateRepository reads return nil (not an error) for an absent template.
type TemplateRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error)
	GetByOwner(ctx context.Context, filter domain.TemplateFilter) ([]*domain.Template, error)
	GetMostUsed(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType string, limit int) ([]*domain.Template, error)
	Add(ctx context.Context, template *domain.Template) (*domain.Template, error)
	Update(ctx context.Context, template *domain.Template) (*domain.Template, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (int, error)
	Exists(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType, name string) (bool, error)
}
