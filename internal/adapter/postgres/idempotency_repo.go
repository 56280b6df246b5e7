package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyRepo remembers processed usage events so redelivered messages are counted once.
type IdempotencyRepo struct {
	db    *sqlx.DB
	table string
}

func NewIdempotencyRepo(db *sqlx.DB, schema string) *IdempotencyRepo {
	if strings.TrimSpace(schema) == "" {
		schema = DefaultSchema
	}
	return &IdempotencyRepo{
		db:    db,
		table: pgx.Identifier{schema, "idempotency_keys"}.Sanitize(),
	}
}

func (r *IdempotencyRepo) Check(ctx context.Context, key string) (bool, string, error) {
	var templateID string
	err := r.db.GetContext(ctx, &templateID,
		`SELECT template_id FROM `+r.table+` WHERE key = $1 AND expires_at > NOW()`,
		key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, templateID, nil
}

// SetNX claims key. Expired claims are taken over.
func (r *IdempotencyRepo) SetNX(ctx context.Context, key string, templateID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO `+r.table+` AS k (key, template_id, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET template_id = EXCLUDED.template_id, expires_at = EXCLUDED.expires_at
		WHERE k.expires_at <= NOW()`,
		key, templateID, time.Now().UTC().Add(idempotencyTTL),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE key = $1`, key)
	return err
}
