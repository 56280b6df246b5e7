package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type SortBy string

const (
	SortByUsageCount SortBy = "usage_count"
	SortByName       SortBy = "name"
	SortByCreatedAt  SortBy = "created_at"
	SortByUpdatedAt  SortBy = "updated_at"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 50
	MaxPageSize     = 100
)

var sortByNumber = map[int]SortBy{
	1: SortByUsageCount,
	2: SortByName,
	3: SortByCreatedAt,
	4: SortByUpdatedAt,
}

// ParseSortBy never fails: anything unrecognised sorts by usage count.
func ParseSortBy(s string) SortBy {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if sb, ok := sortByNumber[n]; ok {
			return sb
		}
		return SortByUsageCount
	}

	normalized := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	switch normalized {
	case "name":
		return SortByName
	case "createdat":
		return SortByCreatedAt
	case "updatedat":
		return SortByUpdatedAt
	default:
		return SortByUsageCount
	}
}

type TemplateFilter struct {
	OwnerID      uuid.UUID
	OwnerType    OwnerType
	TemplateType string
	SortBy       SortBy
	Page         int
	PageSize     int
}

// Normalize clamps paging to sane bounds and returns the resulting limit and offset.
func (f *TemplateFilter) Normalize() (limit, offset int) {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	switch f.SortBy {
	case SortByUsageCount, SortByName, SortByCreatedAt, SortByUpdatedAt:
	default:
		f.SortBy = SortByUsageCount
	}
	return f.PageSize, (f.Page - 1) * f.PageSize
}
