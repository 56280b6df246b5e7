package domain

import "errors"

var (
	ErrInvalidOwnerType    = errors.New("invalid owner type")
	ErrEmptyTemplateType   = errors.New("template type is required")
	ErrTemplateTypeTooLong = errors.New("template type too long")
	ErrEmptyTemplateName   = errors.New("template name is required")
	ErrTemplateNameTooLong = errors.New("template name too long")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrInvalidBody         = errors.New("invalid template body")
	ErrBodyTooLarge        = errors.New("template body exceeds maximum size")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrTemplateConflict    = errors.New("template with the same name already exists for this owner and type")
	ErrInvalidEvent        = errors.New("invalid event")
	ErrCircuitOpen         = errors.New("circuit breaker is open")
)
