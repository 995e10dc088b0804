package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/dbx"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/google/uuid"
)

const itemColumns = `id, title, slug, status, author_id, published_at, content_type_id, visibility, sort_order,
	content, excerpt, categories, tags, media_relations, settings, created_at, updated_at`

// PostgresItemRepository implements ItemRepository over dbx.DBTX. List-valued
// and map-valued fields live in JSONB columns.
type PostgresItemRepository struct {
	db dbx.DBTX
}

func NewPostgresItemRepository(db dbx.DBTX) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

type itemDocs struct {
	categories, tags, relations, settings string
}

func encodeDocs(item *models.ContentItem) (itemDocs, error) {
	var (
		d   itemDocs
		err error
	)
	if d.categories, err = encodeJSON(item.Categories, "[]"); err != nil {
		return d, err
	}
	if d.tags, err = encodeJSON(item.Tags, "[]"); err != nil {
		return d, err
	}
	if d.relations, err = encodeJSON(item.MediaRelations, "[]"); err != nil {
		return d, err
	}
	if d.settings, err = encodeJSON(item.Settings, "{}"); err != nil {
		return d, err
	}
	return d, nil
}

func encodeJSON[T any](v T, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func scanItem(s scanner) (*models.ContentItem, error) {
	var (
		item                                  models.ContentItem
		status, visibility                    string
		author                                sql.NullString
		categories, tags, relations, settings []byte
	)
	err := s.Scan(&item.ID, &item.Title, &item.Slug, &status, &author, &item.PublishedAt, &item.ContentTypeID,
		&visibility, &item.SortOrder, &item.Content, &item.Excerpt,
		&categories, &tags, &relations, &settings, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Status = models.ContentStatus(status)
	item.Visibility = models.Visibility(visibility)
	item.AuthorID = author.String

	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{categories, &item.Categories},
		{tags, &item.Tags},
		{relations, &item.MediaRelations},
		{settings, &item.Settings},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode json column: %w", err)
		}
	}
	return &item, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func mapItemWriteError(err error) error {
	if dbx.IsForeignKeyViolation(err) {
		return common.NewValidationError("contentType", "unknown content type or author")
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresItemRepository) Create(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	docs, err := encodeDocs(item)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO content_items (id, title, slug, status, author_id, published_at, content_type_id, visibility,
			sort_order, content, excerpt, categories, tags, media_relations, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Slug, string(item.Status), nullable(item.AuthorID), item.PublishedAt,
		item.ContentTypeID, string(item.Visibility), item.SortOrder, item.Content, item.Excerpt,
		docs.categories, docs.tags, docs.relations, docs.settings).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, mapItemWriteError(err)
	}
	return item, nil
}

func (r *PostgresItemRepository) FindByID(ctx context.Context, id string) (*models.ContentItem, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}
	item, err := scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresItemRepository) List(ctx context.Context, limit, skip int) ([]*models.ContentItem, error) {
	return r.query(ctx, `SELECT `+itemColumns+` FROM content_items ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, skip)
}

func (r *PostgresItemRepository) Update(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	if uuid.Validate(item.ID) != nil {
		return nil, common.ErrorNotFound
	}
	docs, err := encodeDocs(item)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE content_items
		SET title = $2, slug = $3, status = $4, author_id = $5, published_at = $6, content_type_id = $7,
			visibility = $8, sort_order = $9, content = $10, excerpt = $11, categories = $12, tags = $13,
			media_relations = $14, settings = $15, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		item.ID, item.Title, item.Slug, string(item.Status), nullable(item.AuthorID), item.PublishedAt,
		item.ContentTypeID, string(item.Visibility), item.SortOrder, item.Content, item.Excerpt,
		docs.categories, docs.tags, docs.relations, docs.settings).
		Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapItemWriteError(err)
	}
	return item, nil
}

func (r *PostgresItemRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "content_items", id)
}

// FindByContentTypeID returns the items of one type, newest first.
func (r *PostgresItemRepository) FindByContentTypeID(ctx context.Context, typeID string) ([]*models.ContentItem, error) {
	return r.query(ctx, `SELECT `+itemColumns+` FROM content_items WHERE content_type_id = $1 ORDER BY created_at DESC`, typeID)
}

// FindPublished returns public, published items whose publish time has been
// reached, newest publication first.
func (r *PostgresItemRepository) FindPublished(ctx context.Context, now time.Time, f PublishedFilter) ([]*models.ContentItem, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + itemColumns + ` FROM content_items
		WHERE status = 'published' AND visibility = 'public' AND published_at <= $1`)
	args := []any{now}

	if f.Tag != "" {
		args = append(args, f.Tag)
		sb.WriteString(` AND tags ? $` + strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		sb.WriteString(` AND categories ? $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY published_at DESC`)

	return r.query(ctx, sb.String(), args...)
}

func (r *PostgresItemRepository) query(ctx context.Context, query string, args ...any) ([]*models.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ContentItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
