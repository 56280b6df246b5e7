package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/cva-pasha/covali-templates/internal/domain"
	"github.com/cva-pasha/covali-templates/internal/port"
)

const (
	DefaultSchema = "covali_templates"

	uniqueNameConstraint = "ux_templates_owner_type_name"
	maxMostUsedLimit     = 100

	templateColumns = `id, owner_id, owner_type, template_type, name, description, body, usage_count, created_at, updated_at, deleted_at`
)

type TemplateRepo struct {
	db         *sqlx.DB
	compressor port.BodyCompressor
	table      string
}

// NewTemplateRepo panics when db or compressor is nil. A blank schema selects DefaultSchema.
func NewTemplateRepo(db *sqlx.DB, compressor port.BodyCompressor, schema string) *TemplateRepo {
	if db == nil {
		panic("postgres: NewTemplateRepo requires a database handle")
	}
	if compressor == nil {
		panic("postgres: NewTemplateRepo requires a body compressor")
	}
	return &TemplateRepo{
		db:         db,
		compressor: compressor,
		table:      qualifiedTable(schema),
	}
}

type templateRow struct {
	ID           uuid.UUID  `db:"id"`
	OwnerID      uuid.UUID  `db:"owner_id"`
	OwnerType    string     `db:"owner_type"`
	TemplateType string     `db:"template_type"`
	Name         string     `db:"name"`
	Description  *string    `db:"description"`
	Body         []byte     `db:"body"`
	UsageCount   int        `db:"usage_count"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	var row templateRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+templateColumns+` FROM `+r.table+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return r.rowToTemplate(row)
}

func (r *TemplateRepo) GetByOwner(ctx context.Context, filter domain.TemplateFilter) ([]*domain.Template, error) {
	limit, offset := filter.Normalize()

	query, args, argIdx := r.ownerQuery(filter.OwnerID, filter.OwnerType, filter.TemplateType)
	query += ` ORDER BY ` + orderClause(filter.SortBy) +
		` LIMIT $` + itoa(argIdx) + ` OFFSET $` + itoa(argIdx+1)
	args = append(args, limit, offset)

	return r.selectTemplates(ctx, query, args...)
}

func (r *TemplateRepo) GetMostUsed(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType string, limit int) ([]*domain.Template, error) {
	if limit <= 0 {
		return []*domain.Template{}, nil
	}
	if limit > maxMostUsedLimit {
		limit = maxMostUsedLimit
	}

	query, args, argIdx := r.ownerQuery(ownerID, ownerType, templateType)
	query += ` ORDER BY ` + orderClause(domain.SortByUsageCount) + ` LIMIT $` + itoa(argIdx)
	args = append(args, limit)

	return r.selectTemplates(ctx, query, args...)
}

func (r *TemplateRepo) Add(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	body, err := r.compressor.Compress(t.Body)
	if err != nil {
		return nil, fmt.Errorf("compress body: %w", err)
	}

	var row templateRow
	err = r.db.GetContext(ctx, &row,
		`INSERT INTO `+r.table+`
		(id, owner_id, owner_type, template_type, name, description, body, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+templateColumns,
		t.ID, t.OwnerID, string(t.OwnerType), t.TemplateType, t.Name, t.Description, body,
		t.UsageCount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, wrapConstraintError(err)
	}
	return r.rowToTemplate(row)
}

// Update writes only the mutable columns; owner, type, usage and creation time are left alone.
func (r *TemplateRepo) Update(ctx context.Context, t *domain.Template) (*domain.Template, error) {
	body, err := r.compressor.Compress(t.Body)
	if err != nil {
		return nil, fmt.Errorf("compress body: %w", err)
	}

	var row templateRow
	err = r.db.GetContext(ctx, &row,
		`UPDATE `+r.table+`
		SET name = $1, description = $2, body = $3, updated_at = $4
		WHERE id = $5
		RETURNING `+templateColumns,
		t.Name, t.Description, body, t.UpdatedAt, t.ID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, wrapConstraintError(err)
	}
	return r.rowToTemplate(row)
}

func (r *TemplateRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete template %s: %w", id, err)
	}
	return affected(result, id)
}

func affected(result sql.Result, id uuid.UUID) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete template %s: %w", id, err)
	}
	return rows > 0, nil
}

func (r *TemplateRepo) IncrementUsage(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`UPDATE `+r.table+` SET usage_count = usage_count + 1 WHERE id = $1 RETURNING usage_count`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrTemplateNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment usage %s: %w", id, err)
	}
	return count, nil
}

func (r *TemplateRepo) Exists(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType, templateType, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM `+r.table+`
			WHERE owner_id = $1 AND owner_type = $2 AND template_type = $3 AND name = $4
		)`,
		ownerID, string(ownerType), templateType, name,
	)
	if err != nil {
		return false, fmt.Errorf("check template exists: %w", err)
	}
	return exists, nil
}

func (r *TemplateRepo) ownerQuery(ownerID uuid.UUID, ownerType domain.OwnerType, templateType string) (string, []any, int) {
	query := `SELECT ` + templateColumns + ` FROM ` + r.table + ` WHERE owner_id = $1 AND owner_type = $2`
	args := []any{ownerID, string(ownerType)}
	argIdx := 3

	if templateType != "" {
		query += ` AND template_type = $` + itoa(argIdx)
		args = append(args, templateType)
		argIdx++
	}
	return query, args, argIdx
}

func (r *TemplateRepo) selectTemplates(ctx context.Context, query string, args ...any) ([]*domain.Template, error) {
	var rows []templateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	result := make([]*domain.Template, 0, len(rows))
	for _, row := range rows {
		t, err := r.rowToTemplate(row)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (r *TemplateRepo) rowToTemplate(row templateRow) (*domain.Template, error) {
	body, err := r.compressor.Decompress(row.Body)
	if err != nil {
		return nil, fmt.Errorf("decompress body of template %s: %w", row.ID, err)
	}
	return &domain.Template{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		OwnerType:    domain.OwnerType(row.OwnerType),
		TemplateType: row.TemplateType,
		Name:         row.Name,
		Description:  row.Description,
		Body:         body,
		UsageCount:   row.UsageCount,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    utcPtr(row.UpdatedAt),
		DeletedAt:    utcPtr(row.DeletedAt),
	}, nil
}

// orderClause always ends in a unique column so paging is stable across equal keys.
func orderClause(sortBy domain.SortBy) string {
	switch sortBy {
	case domain.SortByName:
		return `name ASC, id ASC`
	case domain.SortByCreatedAt:
		return `created_at DESC, id DESC`
	case domain.SortByUpdatedAt:
		return `updated_at DESC NULLS LAST, created_at DESC, id DESC`
	default:
		return `usage_count DESC, name ASC, id ASC`
	}
}

func wrapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, uniqueNameConstraint) {
		return fmt.Errorf("%w: %s", domain.ErrTemplateConflict, pgErr.Detail)
	}
	return err
}

func qualifiedTable(schema string) string {
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}
	return pgx.Identifier{schema, "templates"}.Sanitize()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
