package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	TemplateTypeMaxLength = 50
	NameMaxLength         = 100
	DescriptionMaxLength  = 500

	// MaxBodySize is measured on the serialized body, before compression.
	MaxBodySize = 1_048_576
)

type OwnerType string

const (
	OwnerTypeUser         OwnerType = "User"
	OwnerTypeGroup        OwnerType = "Group"
	OwnerTypeOrganization OwnerType = "Organization"
)

var ownerTypeByNumber = map[int]OwnerType{
	1: OwnerTypeUser,
	2: OwnerTypeGroup,
	3: OwnerTypeOrganization,
}

func (o OwnerType) Valid() bool {
	switch o {
	case OwnerTypeUser, OwnerTypeGroup, OwnerTypeOrganization:
		return true
	}
	return false
}

func (o OwnerType) String() string {
	return string(o)
}

// ParseOwnerType accepts the owner type name in any case or its numeric value.
func ParseOwnerType(s string) (OwnerType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if ot, ok := ownerTypeByNumber[n]; ok {
			return ot, nil
		}
		return "", fmt.Errorf("%w: %d", ErrInvalidOwnerType, n)
	}
	for _, ot := range []OwnerType{OwnerTypeUser, OwnerTypeGroup, OwnerTypeOrganization} {
		if strings.EqualFold(s, string(ot)) {
			return ot, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOwnerType, s)
}

type Template struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	OwnerType    OwnerType
	TemplateType string
	Name         string
	Description  *string
	Body         string
	UsageCount   int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
}

// NewTemplate builds a fresh, never-used template. body must already be serialized.
func NewTemplate(ownerID uuid.UUID, ownerType OwnerType, templateType, name string, description *string, body string) (*Template, error) {
	if !ownerType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOwnerType, ownerType)
	}
	if err := ValidateTemplateType(templateType); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	if err := ValidateBodySize(body); err != nil {
		return nil, err
	}

	return &Template{
		ID:           uuid.Must(uuid.NewV7()),
		OwnerID:      ownerID,
		OwnerType:    ownerType,
		TemplateType: templateType,
		Name:         name,
		Description:  description,
		Body:         body,
		UsageCount:   0,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Revise replaces the mutable fields and stamps UpdatedAt.
func (t *Template) Revise(name string, description *string, body string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateDescription(description); err != nil {
		return err
	}
	if err := ValidateBodySize(body); err != nil {
		return err
	}

	now := time.Now().UTC()
	t.Name = name
	t.Description = description
	t.Body = body
	t.UpdatedAt = &now
	return nil
}

func ValidateTemplateType(templateType string) error {
	if strings.TrimSpace(templateType) == "" {
		return ErrEmptyTemplateType
	}
	if utf8.RuneCountInString(templateType) > TemplateTypeMaxLength {
		return fmt.Errorf("%w: max %d characters", ErrTemplateTypeTooLong, TemplateTypeMaxLength)
	}
	return nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyTemplateName
	}
	if utf8.RuneCountInString(name) > NameMaxLength {
		return fmt.Errorf("%w: max %d characters", ErrTemplateNameTooLong, NameMaxLength)
	}
	return nil
}

func ValidateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > DescriptionMaxLength {
		return fmt.Errorf("%w: max %d characters", ErrDescriptionTooLong, DescriptionMaxLength)
	}
	return nil
}

func ValidateBodySize(body string) error {
	if len(body) > MaxBodySize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrBodyTooLarge, len(body), MaxBodySize)
	}
	return nil
}
