// Package content stores CMS content types and content items in PostgreSQL.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/dbx"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/google/uuid"
)

const typeColumns = `id, name, description, default_template, supports_comments, supports_sticky, created_at`

// PostgresTypeRepository implements TypeRepository over dbx.DBTX.
type PostgresTypeRepository struct {
	db dbx.DBTX
}

func NewPostgresTypeRepository(db dbx.DBTX) *PostgresTypeRepository {
	return &PostgresTypeRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanType(s scanner) (*models.ContentType, error) {
	t := &models.ContentType{}
	if err := s.Scan(&t.ID, &t.Name, &t.Description, &t.DefaultTemplate, &t.SupportsComments, &t.SupportsSticky, &t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts t. A duplicate name yields common.ErrorAlreadyExists.
func (r *PostgresTypeRepository) Create(ctx context.Context, t *models.ContentType) (*models.ContentType, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `
		INSERT INTO content_types (id, name, description, default_template, supports_comments, supports_sticky)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Description, t.DefaultTemplate, t.SupportsComments, t.SupportsSticky).Scan(&t.CreatedAt)
	if err != nil {
		if _, ok := dbx.IsUniqueViolation(err); ok {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresTypeRepository) FindByID(ctx context.Context, id string) (*models.ContentType, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, `SELECT `+typeColumns+` FROM content_types WHERE id = $1`, id)
}

func (r *PostgresTypeRepository) FindByName(ctx context.Context, name string) (*models.ContentType, error) {
	return r.findOne(ctx, `SELECT `+typeColumns+` FROM content_types WHERE name = $1`, name)
}

func (r *PostgresTypeRepository) findOne(ctx context.Context, query string, arg any) (*models.ContentType, error) {
	t, err := scanType(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresTypeRepository) List(ctx context.Context, limit, skip int) ([]*models.ContentType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+typeColumns+` FROM content_types ORDER BY name LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ContentType, 0)
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresTypeRepository) Update(ctx context.Context, t *models.ContentType) (*models.ContentType, error) {
	if uuid.Validate(t.ID) != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		UPDATE content_types
		SET name = $2, description = $3, default_template = $4, supports_comments = $5, supports_sticky = $6
		WHERE id = $1
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Description, t.DefaultTemplate, t.SupportsComments, t.SupportsSticky).Scan(&t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if _, ok := dbx.IsUniqueViolation(err); ok {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Delete removes a type. Types still referenced by items are rejected with a
// validation error.
func (r *PostgresTypeRepository) Delete(ctx context.Context, id string) error {
	err := deleteByID(ctx, r.db, "content_types", id)
	if dbx.IsForeignKeyViolation(err) {
		return common.NewValidationError("contentType", "content type is in use")
	}
	return err
}

func deleteByID(ctx context.Context, db dbx.DBTX, table, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
