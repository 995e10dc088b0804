// Package media keeps the metadata of objects uploaded to the media bucket.
package media

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

// PostgresRepository implements media storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts m. The caller is expected to have chosen StorageKey.
func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	var uploader any
	if m.UploadedBy != "" {
		uploader = m.UploadedBy
	}

	query := `
		INSERT INTO media (id, file_name, content_type, storage_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.FileName, m.ContentType, m.StorageKey, uploader).Scan(&m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// FindByID returns the media row used to build presigned URLs.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Media, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, file_name, content_type, storage_key, uploaded_by, created_at FROM media
		WHERE id = $1
	`
	m := &models.Media{}
	var uploader sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.FileName, &m.ContentType, &m.StorageKey, &uploader, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	m.UploadedBy = uploader.String
	return m, nil
}

// Delete removes the metadata row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
